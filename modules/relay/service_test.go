package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/khadka27/educonnect-chat/domain/chat"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// fakePublisher records published messages.
type fakePublisher struct {
	published []chat.Message
	err       error
}

func (f *fakePublisher) MessageSent(msg chat.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func openTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *fakePublisher, *gorm.DB) {
	t.Helper()

	db := openTestDB(t, &chat.User{}, &chat.Group{}, &chat.GroupMembership{}, &chat.Message{})
	pub := &fakePublisher{}
	svc := NewService(
		store.NewMessageRepository(db),
		store.NewGroupRepository(db),
		store.NewUserRepository(db),
		pub,
		chat.MessageTTL,
	)
	return svc, pub, db
}

func seedUser(t *testing.T, db *gorm.DB, id string, role chat.Role) {
	t.Helper()
	u := chat.User{ID: id, Name: "user " + id, Role: role, CreatedAt: time.Now()}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

func seedGroup(t *testing.T, db *gorm.DB, id, adminID string) {
	t.Helper()
	g := chat.Group{ID: id, Name: "group " + id, AdminID: adminID, CreatedAt: time.Now()}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("failed to seed group %s: %v", id, err)
	}
}

func TestService_Send_Direct(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "u1", chat.RoleStudent)
	seedUser(t, db, "u2", chat.RoleStudent)

	msg, err := svc.Send(ctx, SendInput{
		Content:  "hello",
		SenderID: "u1",
		Dest:     chat.DirectTo{UserID: "u2"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.ReceiverID == nil || *msg.ReceiverID != "u2" {
		t.Errorf("ReceiverID = %v, want u2", msg.ReceiverID)
	}
	if msg.GroupID != nil {
		t.Errorf("GroupID = %v, want nil", msg.GroupID)
	}
	if !msg.ExpiresAt.After(msg.CreatedAt) {
		t.Error("ExpiresAt must be after CreatedAt")
	}

	var count int64
	if err := db.Model(&chat.Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 stored message, got %d", count)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.published))
	}
	if pub.published[0].ID != msg.ID {
		t.Error("published message does not match stored message")
	}
}

func TestService_Send_Group(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "u1", chat.RoleStudent)
	seedGroup(t, db, "g1", "t1")

	msg, err := svc.Send(ctx, SendInput{
		Content:  "hello group",
		SenderID: "u1",
		Dest:     chat.GroupTo{GroupID: "g1"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.GroupID == nil || *msg.GroupID != "g1" {
		t.Errorf("GroupID = %v, want g1", msg.GroupID)
	}
	if msg.ReceiverID != nil {
		t.Errorf("ReceiverID = %v, want nil", msg.ReceiverID)
	}
	if len(pub.published) != 1 {
		t.Errorf("expected 1 published message, got %d", len(pub.published))
	}
}

func TestService_Send_Validation(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "u1", chat.RoleStudent)
	seedUser(t, db, "u2", chat.RoleStudent)

	tests := []struct {
		name    string
		in      SendInput
		wantErr error
	}{
		{
			name:    "missing sender",
			in:      SendInput{Content: "hi", Dest: chat.DirectTo{UserID: "u2"}},
			wantErr: chat.ErrValidation,
		},
		{
			name:    "no content and no file",
			in:      SendInput{SenderID: "u1", Dest: chat.DirectTo{UserID: "u2"}},
			wantErr: chat.ErrValidation,
		},
		{
			name:    "file without type",
			in:      SendInput{SenderID: "u1", FileURL: "/files/a.png", Dest: chat.DirectTo{UserID: "u2"}},
			wantErr: chat.ErrValidation,
		},
		{
			name:    "no destination",
			in:      SendInput{Content: "hi", SenderID: "u1"},
			wantErr: chat.ErrValidation,
		},
		{
			name:    "unknown sender",
			in:      SendInput{Content: "hi", SenderID: "ghost", Dest: chat.DirectTo{UserID: "u2"}},
			wantErr: chat.ErrNotFound,
		},
		{
			name:    "unknown receiver",
			in:      SendInput{Content: "hi", SenderID: "u1", Dest: chat.DirectTo{UserID: "ghost"}},
			wantErr: chat.ErrNotFound,
		},
		{
			name:    "unknown group",
			in:      SendInput{Content: "hi", SenderID: "u1", Dest: chat.GroupTo{GroupID: "ghost"}},
			wantErr: chat.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Send(ctx, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No side effects from rejected sends.
	var count int64
	if err := db.Model(&chat.Message{}).Count(&count).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 stored messages, got %d", count)
	}
	if len(pub.published) != 0 {
		t.Errorf("expected 0 published messages, got %d", len(pub.published))
	}
}

func TestService_Send_PersistFailureSkipsPublish(t *testing.T) {
	ctx := context.Background()

	// No messages table: persistence must fail and nothing may publish.
	db := openTestDB(t, &chat.User{}, &chat.Group{}, &chat.GroupMembership{})
	pub := &fakePublisher{}
	svc := NewService(
		store.NewMessageRepository(db),
		store.NewGroupRepository(db),
		store.NewUserRepository(db),
		pub,
		chat.MessageTTL,
	)
	seedUser(t, db, "u1", chat.RoleStudent)
	seedUser(t, db, "u2", chat.RoleStudent)

	_, err := svc.Send(ctx, SendInput{
		Content:  "doomed",
		SenderID: "u1",
		Dest:     chat.DirectTo{UserID: "u2"},
	})
	if !errors.Is(err, chat.ErrPersistence) {
		t.Fatalf("Send() error = %v, want ErrPersistence", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("expected no publish on persistence failure, got %d", len(pub.published))
	}
}

func TestService_Send_PublishFailureStillStores(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	pub.err = errors.New("bus down")
	seedUser(t, db, "u1", chat.RoleStudent)
	seedUser(t, db, "u2", chat.RoleStudent)

	msg, err := svc.Send(ctx, SendInput{
		Content:  "still delivered to storage",
		SenderID: "u1",
		Dest:     chat.DirectTo{UserID: "u2"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var stored chat.Message
	if err := db.First(&stored, "id = ?", msg.ID).Error; err != nil {
		t.Errorf("message should be stored despite publish failure: %v", err)
	}
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	svc, _, db := newTestService(t)
	seedUser(t, db, "u1", chat.RoleStudent)
	seedUser(t, db, "u2", chat.RoleStudent)

	msg, err := svc.Send(ctx, SendInput{Content: "hi", SenderID: "u1", Dest: chat.DirectTo{UserID: "u2"}})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	read, err := svc.MarkRead(ctx, msg.ID)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !read.Read {
		t.Error("message should be read")
	}

	if _, err := svc.MarkRead(ctx, ""); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("MarkRead(\"\") error = %v, want ErrValidation", err)
	}
}

func TestService_GroupHistory_UnknownGroup(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.GroupHistory(ctx, "ghost", 10, nil); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("GroupHistory() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GroupHistory(ctx, "", 10, nil); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("GroupHistory(\"\") error = %v, want ErrValidation", err)
	}
}
