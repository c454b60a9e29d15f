package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// Pagination bounds for history queries.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is one page of a cursor-paginated history query, newest first.
// NextCursor is nil when there are no older messages left.
type Page struct {
	Messages      []chat.Message `json:"messages"`
	NextCursor    *time.Time     `json:"nextCursor"`
	TotalMessages int64          `json:"totalMessages"`
}

// MessageRepository provides access to message storage.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create saves a new message.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("%w: failed to create message: %v", chat.ErrPersistence, err)
	}
	return nil
}

// FindByID retrieves a message by its ID.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*chat.Message, error) {
	var msg chat.Message
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %s", chat.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to find message: %v", chat.ErrPersistence, err)
	}
	return &msg, nil
}

// MarkRead sets the read flag on a message. Idempotent: marking an
// already-read message succeeds without another write.
func (r *MessageRepository) MarkRead(ctx context.Context, id string) (*chat.Message, error) {
	msg, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Read {
		return msg, nil
	}

	if err := r.db.WithContext(ctx).Model(&chat.Message{}).
		Where("id = ?", id).
		Update("read", true).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to mark message read: %v", chat.ErrPersistence, err)
	}
	msg.Read = true
	return msg, nil
}

// DirectHistory returns non-expired messages between two users, in either
// direction, newest first. The cursor is the CreatedAt of the oldest
// message already seen; only older rows are returned.
func (r *MessageRepository) DirectHistory(ctx context.Context, userA, userB string, limit int, cursor *time.Time) (Page, error) {
	conv := r.db.WithContext(ctx).Model(&chat.Message{}).
		Where("expires_at > ?", time.Now()).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA)
	return r.page(conv, limit, cursor)
}

// GroupHistory returns non-expired messages for a group, newest first,
// with the same cursor semantics as DirectHistory.
func (r *MessageRepository) GroupHistory(ctx context.Context, groupID string, limit int, cursor *time.Time) (Page, error) {
	conv := r.db.WithContext(ctx).Model(&chat.Message{}).
		Where("expires_at > ?", time.Now()).
		Where("group_id = ?", groupID)
	return r.page(conv, limit, cursor)
}

// page applies count, cursor and limit to a conversation query.
func (r *MessageRepository) page(conv *gorm.DB, limit int, cursor *time.Time) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var total int64
	if err := conv.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page{}, fmt.Errorf("%w: failed to count messages: %v", chat.ErrPersistence, err)
	}

	q := conv.Session(&gorm.Session{}).Order("created_at DESC").Limit(limit)
	if cursor != nil {
		q = q.Where("created_at < ?", *cursor)
	}

	var msgs []chat.Message
	if err := q.Find(&msgs).Error; err != nil {
		return Page{}, fmt.Errorf("%w: failed to fetch messages: %v", chat.ErrPersistence, err)
	}

	page := Page{Messages: msgs, TotalMessages: total}
	if len(msgs) == limit {
		last := msgs[len(msgs)-1].CreatedAt
		page.NextCursor = &last
	}
	return page, nil
}

// Unseen returns all non-expired unread messages addressed to the user,
// either directly or via membership in the message's group. The user's own
// group messages are excluded.
func (r *MessageRepository) Unseen(ctx context.Context, userID string) ([]chat.Message, error) {
	memberOf := r.db.Model(&chat.GroupMembership{}).
		Select("group_id").
		Where("user_id = ?", userID)

	var msgs []chat.Message
	if err := r.db.WithContext(ctx).
		Where("read = ?", false).
		Where("expires_at > ?", time.Now()).
		Where("receiver_id = ? OR (group_id IN (?) AND sender_id <> ?)", userID, memberOf, userID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to fetch unseen messages: %v", chat.ErrPersistence, err)
	}
	return msgs, nil
}

// DeleteExpired removes every message whose expiry timestamp is at or
// before now, returning the number of rows deleted.
func (r *MessageRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&chat.Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: failed to delete expired messages: %v", chat.ErrPersistence, result.Error)
	}
	return result.RowsAffected, nil
}
