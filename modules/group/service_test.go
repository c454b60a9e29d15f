package group

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

// fakePublisher counts published group events by kind.
type fakePublisher struct {
	created    int
	added      int
	kicked     int
	left       int
	renamed    int
	reassigned int
	deleted    int
}

func (f *fakePublisher) GroupCreated(_ chat.Group, _ []string) error { f.created++; return nil }
func (f *fakePublisher) MemberAdded(_, _ string) error               { f.added++; return nil }
func (f *fakePublisher) MemberKicked(_, _ string) error              { f.kicked++; return nil }
func (f *fakePublisher) MemberLeft(_, _ string) error                { f.left++; return nil }
func (f *fakePublisher) GroupRenamed(_, _ string) error              { f.renamed++; return nil }
func (f *fakePublisher) AdminReassigned(_, _ string) error           { f.reassigned++; return nil }
func (f *fakePublisher) GroupDeleted(_ string) error                 { f.deleted++; return nil }

func newTestService(t *testing.T) (*Service, *fakePublisher, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&chat.User{}, &chat.Group{}, &chat.GroupMembership{}, &chat.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	pub := &fakePublisher{}
	svc := NewService(store.NewGroupRepository(db), store.NewUserRepository(db), pub)
	return svc, pub, db
}

func seedUser(t *testing.T, db *gorm.DB, id string, role chat.Role) {
	t.Helper()
	u := chat.User{ID: id, Name: "user " + id, Role: role, CreatedAt: time.Now()}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)
	seedUser(t, db, "s2", chat.RoleStudent)

	g, members, err := svc.Create(ctx, "Physics 101", "t1", []string{"s1", "s2", "ghost"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if g.AdminID != "t1" {
		t.Errorf("AdminID = %q, want t1", g.AdminID)
	}
	// Unknown member ids are dropped, valid ones kept.
	if len(members) != 2 {
		t.Errorf("expected 2 members, got %v", members)
	}
	if pub.created != 1 {
		t.Errorf("created events = %d, want 1", pub.created)
	}

	stored, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Name != "Physics 101" {
		t.Errorf("Name = %q, want Physics 101", stored.Name)
	}
}

func TestService_Create_Authorization(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "s1", chat.RoleStudent)

	tests := []struct {
		name    string
		admin   string
		wantErr error
	}{
		{"student may not create", "s1", chat.ErrNotAuthorized},
		{"unknown admin", "ghost", chat.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Create(ctx, "Group", tt.admin, nil); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, _, err := svc.Create(ctx, "", "s1", nil); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("Create() with empty name: error = %v, want ErrValidation", err)
	}
	if pub.created != 0 {
		t.Errorf("created events = %d, want 0", pub.created)
	}
}

func TestService_AddMember_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Maths", "t1", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.AddMember(ctx, "t1", g.ID, "s1"); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if pub.added != 1 {
		t.Fatalf("added events = %d, want 1", pub.added)
	}

	// Second add is a silent no-op: no error and no second broadcast.
	if err := svc.AddMember(ctx, "t1", g.ID, "s1"); err != nil {
		t.Fatalf("duplicate AddMember() error = %v", err)
	}
	if pub.added != 1 {
		t.Errorf("added events = %d after duplicate add, want 1", pub.added)
	}
}

func TestService_AddMember_Authorization(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "t2", chat.RoleTeacher)
	seedUser(t, db, "root", chat.RoleAdmin)
	seedUser(t, db, "s1", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Maths", "t1", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Another teacher is not this group's admin.
	if err := svc.AddMember(ctx, "t2", g.ID, "s1"); !errors.Is(err, chat.ErrNotAuthorized) {
		t.Errorf("AddMember() by non-admin: error = %v, want ErrNotAuthorized", err)
	}
	if pub.added != 0 {
		t.Errorf("added events = %d, want 0", pub.added)
	}

	// A global admin may act on any group.
	if err := svc.AddMember(ctx, "root", g.ID, "s1"); err != nil {
		t.Errorf("AddMember() by global admin: error = %v", err)
	}

	// Unknown user to add.
	if err := svc.AddMember(ctx, "t1", g.ID, "ghost"); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("AddMember(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestService_KickAndLeave(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)
	seedUser(t, db, "s2", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Maths", "t1", []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Kick(ctx, "t1", g.ID, "s1"); err != nil {
		t.Fatalf("Kick() error = %v", err)
	}
	if pub.kicked != 1 {
		t.Errorf("kicked events = %d, want 1", pub.kicked)
	}
	// Kicking a non-member fails and does not broadcast again.
	if err := svc.Kick(ctx, "t1", g.ID, "s1"); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("Kick() non-member: error = %v, want ErrNotFound", err)
	}
	if pub.kicked != 1 {
		t.Errorf("kicked events = %d, want 1", pub.kicked)
	}

	if err := svc.Leave(ctx, "s2", g.ID); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if pub.left != 1 {
		t.Errorf("left events = %d, want 1", pub.left)
	}
}

func TestService_Leave_AdminMustReassignFirst(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "t2", chat.RoleTeacher)

	g, _, err := svc.Create(ctx, "Maths", "t1", []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Leave(ctx, "t1", g.ID); !errors.Is(err, chat.ErrNotAuthorized) {
		t.Fatalf("Leave() by admin: error = %v, want ErrNotAuthorized", err)
	}
	if pub.left != 0 {
		t.Errorf("left events = %d, want 0", pub.left)
	}

	// After reassignment the former admin may leave.
	if err := svc.ReassignAdmin(ctx, "t1", g.ID, "t2"); err != nil {
		t.Fatalf("ReassignAdmin() error = %v", err)
	}
	if pub.reassigned != 1 {
		t.Errorf("reassigned events = %d, want 1", pub.reassigned)
	}
	if err := svc.Leave(ctx, "t1", g.ID); err != nil {
		t.Errorf("Leave() after reassignment: error = %v", err)
	}
}

func TestService_ReassignAdmin_RequiresPrivilegedTarget(t *testing.T) {
	ctx := context.Background()
	svc, _, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Maths", "t1", []string{"s1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.ReassignAdmin(ctx, "t1", g.ID, "s1"); !errors.Is(err, chat.ErrNotAuthorized) {
		t.Errorf("ReassignAdmin() to student: error = %v, want ErrNotAuthorized", err)
	}

	stored, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.AdminID != "t1" {
		t.Errorf("AdminID = %q, want t1 unchanged", stored.AdminID)
	}
}

func TestService_Rename(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Old", "t1", []string{"s1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Non-admin rename rejected, name unchanged, nothing published.
	if err := svc.Rename(ctx, "s1", g.ID, "Hijacked"); !errors.Is(err, chat.ErrNotAuthorized) {
		t.Fatalf("Rename() by member: error = %v, want ErrNotAuthorized", err)
	}
	stored, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Name != "Old" {
		t.Errorf("Name = %q, want Old", stored.Name)
	}
	if pub.renamed != 0 {
		t.Errorf("renamed events = %d, want 0", pub.renamed)
	}

	if err := svc.Rename(ctx, "t1", g.ID, "New"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if pub.renamed != 1 {
		t.Errorf("renamed events = %d, want 1", pub.renamed)
	}
	if err := svc.Rename(ctx, "t1", g.ID, ""); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("Rename() empty name: error = %v, want ErrValidation", err)
	}
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Doomed", "t1", []string{"s1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, "s1", g.ID); !errors.Is(err, chat.ErrNotAuthorized) {
		t.Errorf("Delete() by member: error = %v, want ErrNotAuthorized", err)
	}

	if err := svc.Delete(ctx, "t1", g.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if pub.deleted != 1 {
		t.Errorf("deleted events = %d, want 1", pub.deleted)
	}
	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("Get() after delete: error = %v, want ErrNotFound", err)
	}
}

func TestService_Delete_EmptyGroup(t *testing.T) {
	ctx := context.Background()
	svc, pub, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)

	// Creation with an empty member list is legal.
	g, members, err := svc.Create(ctx, "Empty", "t1", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members, got %v", members)
	}

	if err := svc.Delete(ctx, "t1", g.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if pub.deleted != 1 {
		t.Errorf("deleted events = %d, want 1", pub.deleted)
	}

	var groups int64
	if err := db.Model(&chat.Group{}).Where("id = ?", g.ID).Count(&groups).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if groups != 0 {
		t.Errorf("expected 0 groups, got %d", groups)
	}
	var memberships int64
	if err := db.Model(&chat.GroupMembership{}).Where("group_id = ?", g.ID).Count(&memberships).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if memberships != 0 {
		t.Errorf("expected 0 memberships, got %d", memberships)
	}
	var messages int64
	if err := db.Model(&chat.Message{}).Where("group_id = ?", g.ID).Count(&messages).Error; err != nil {
		t.Fatalf("count error = %v", err)
	}
	if messages != 0 {
		t.Errorf("expected 0 messages, got %d", messages)
	}
}

func TestService_Members(t *testing.T) {
	ctx := context.Background()
	svc, _, db := newTestService(t)
	seedUser(t, db, "t1", chat.RoleTeacher)
	seedUser(t, db, "s1", chat.RoleStudent)

	g, _, err := svc.Create(ctx, "Maths", "t1", []string{"s1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	members, err := svc.Members(ctx, g.ID)
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members) != 1 || members[0] != "s1" {
		t.Errorf("Members() = %v, want [s1]", members)
	}

	if _, err := svc.Members(ctx, "ghost"); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("Members(ghost) error = %v, want ErrNotFound", err)
	}
}
