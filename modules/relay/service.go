package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khadka27/educonnect-chat/domain/chat"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// Publisher publishes stored messages for fan-out. Publishing happens only
// after the message is durably persisted.
type Publisher interface {
	MessageSent(chat.Message) error
}

// SendInput carries a send request. Content may be empty when a file is
// attached; at least one of Content and FileURL must be present.
type SendInput struct {
	Content  string
	SenderID string
	Dest     chat.Destination
	FileURL  string
	FileType string
}

// Service validates, persists and dispatches chat messages.
type Service struct {
	messages  *store.MessageRepository
	groups    *store.GroupRepository
	users     *store.UserRepository
	publisher Publisher
	ttl       time.Duration
}

// NewService creates a new relay service.
func NewService(messages *store.MessageRepository, groups *store.GroupRepository, users *store.UserRepository, publisher Publisher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = chat.MessageTTL
	}
	return &Service{
		messages:  messages,
		groups:    groups,
		users:     users,
		publisher: publisher,
		ttl:       ttl,
	}
}

// Send validates and persists a message, then publishes it for fan-out to
// the destination room. If persistence fails no publish happens and the
// error is surfaced to the caller only.
func (s *Service) Send(ctx context.Context, in SendInput) (*chat.Message, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	receiverID, groupID := chat.RowColumns(in.Dest)
	now := time.Now()
	msg := &chat.Message{
		ID:         uuid.New().String(),
		Content:    in.Content,
		SenderID:   in.SenderID,
		ReceiverID: receiverID,
		GroupID:    groupID,
		FileURL:    in.FileURL,
		FileType:   in.FileType,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	// Fire-and-forget fan-out: a failed publish never undoes the stored
	// message.
	if err := s.publisher.MessageSent(*msg); err != nil {
		slog.Warn("Failed to publish MessageSent event", "messageID", msg.ID, "error", err)
	}

	return msg, nil
}

// validate checks required fields and resolves referenced ids before any
// persistence attempt.
func (s *Service) validate(ctx context.Context, in SendInput) error {
	if in.SenderID == "" {
		return fmt.Errorf("%w: senderId is required", chat.ErrValidation)
	}
	if in.Content == "" && in.FileURL == "" {
		return fmt.Errorf("%w: message needs content or a file", chat.ErrValidation)
	}
	if in.FileURL != "" && in.FileType == "" {
		return fmt.Errorf("%w: fileType is required with fileUrl", chat.ErrValidation)
	}
	if in.Dest == nil {
		return fmt.Errorf("%w: message needs a receiver or a group", chat.ErrValidation)
	}

	if _, err := s.users.FindByID(ctx, in.SenderID); err != nil {
		return err
	}

	switch d := in.Dest.(type) {
	case chat.DirectTo:
		if _, err := s.users.FindByID(ctx, d.UserID); err != nil {
			return err
		}
	case chat.GroupTo:
		if _, err := s.groups.FindByID(ctx, d.GroupID); err != nil {
			return err
		}
	}
	return nil
}

// DirectHistory returns the paginated conversation between two users.
func (s *Service) DirectHistory(ctx context.Context, senderID, receiverID string, limit int, cursor *time.Time) (store.Page, error) {
	if senderID == "" || receiverID == "" {
		return store.Page{}, fmt.Errorf("%w: senderId and receiverId are required", chat.ErrValidation)
	}
	return s.messages.DirectHistory(ctx, senderID, receiverID, limit, cursor)
}

// GroupHistory returns the paginated history of a group.
func (s *Service) GroupHistory(ctx context.Context, groupID string, limit int, cursor *time.Time) (store.Page, error) {
	if groupID == "" {
		return store.Page{}, fmt.Errorf("%w: groupId is required", chat.ErrValidation)
	}
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return store.Page{}, err
	}
	return s.messages.GroupHistory(ctx, groupID, limit, cursor)
}

// Unseen returns all unread messages addressed to the user.
func (s *Service) Unseen(ctx context.Context, userID string) ([]chat.Message, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", chat.ErrValidation)
	}
	return s.messages.Unseen(ctx, userID)
}

// MarkRead flips the read flag on a message. Idempotent.
func (s *Service) MarkRead(ctx context.Context, messageID string) (*chat.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("%w: messageId is required", chat.ErrValidation)
	}
	return s.messages.MarkRead(ctx, messageID)
}
