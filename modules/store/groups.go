package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// GroupRepository provides access to group and membership storage.
type GroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create saves a group and its initial memberships in one transaction.
func (r *GroupRepository) Create(ctx context.Context, group *chat.Group, memberIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		for _, userID := range memberIDs {
			m := chat.GroupMembership{GroupID: group.ID, UserID: userID, JoinedAt: time.Now()}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create group: %v", chat.ErrPersistence, err)
	}
	return nil
}

// FindByID retrieves a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*chat.Group, error) {
	var group chat.Group
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %s", chat.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to find group: %v", chat.ErrPersistence, err)
	}
	return &group, nil
}

// Rename updates the group name.
func (r *GroupRepository) Rename(ctx context.Context, id, name string) error {
	result := r.db.WithContext(ctx).Model(&chat.Group{}).
		Where("id = ?", id).
		Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("%w: failed to rename group: %v", chat.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: group %s", chat.ErrNotFound, id)
	}
	return nil
}

// UpdateAdmin reassigns the group admin.
func (r *GroupRepository) UpdateAdmin(ctx context.Context, id, adminID string) error {
	result := r.db.WithContext(ctx).Model(&chat.Group{}).
		Where("id = ?", id).
		Update("admin_id", adminID)
	if result.Error != nil {
		return fmt.Errorf("%w: failed to update group admin: %v", chat.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: group %s", chat.ErrNotFound, id)
	}
	return nil
}

// AddMember inserts a membership row. Duplicate adds are no-ops.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	m := chat.GroupMembership{GroupID: groupID, UserID: userID, JoinedAt: time.Now()}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m).Error; err != nil {
		return fmt.Errorf("%w: failed to add member: %v", chat.ErrPersistence, err)
	}
	return nil
}

// RemoveMember deletes a membership row. Reports chat.ErrNotFound when the
// user is not a member.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&chat.GroupMembership{})
	if result.Error != nil {
		return fmt.Errorf("%w: failed to remove member: %v", chat.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s is not a member of group %s", chat.ErrNotFound, userID, groupID)
	}
	return nil
}

// IsMember reports whether the user belongs to the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&chat.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("%w: failed to check membership: %v", chat.ErrPersistence, err)
	}
	return count > 0, nil
}

// MemberIDs returns the user ids of all members of a group.
func (r *GroupRepository) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&chat.GroupMembership{}).
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list members: %v", chat.ErrPersistence, err)
	}
	return ids, nil
}

// ListForUser returns every group the user belongs to or administers.
func (r *GroupRepository) ListForUser(ctx context.Context, userID string) ([]chat.Group, error) {
	memberOf := r.db.Model(&chat.GroupMembership{}).
		Select("group_id").
		Where("user_id = ?", userID)

	var groups []chat.Group
	if err := r.db.WithContext(ctx).
		Where("admin_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list groups: %v", chat.ErrPersistence, err)
	}
	return groups, nil
}

// DeleteCascade removes the group's messages, memberships and the group
// row itself in a single transaction. Partial deletion is never visible.
func (r *GroupRepository) DeleteCascade(ctx context.Context, groupID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&chat.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&chat.GroupMembership{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", groupID).Delete(&chat.Group{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: group %s", chat.ErrNotFound, groupID)
		}
		return fmt.Errorf("%w: failed to delete group: %v", chat.ErrPersistence, err)
	}
	return nil
}
