package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// UserRepository provides read access to user records. The chat core
// references users but never mutates them.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*chat.User, error) {
	var user chat.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", chat.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to find user: %v", chat.ErrPersistence, err)
	}
	return &user, nil
}

// FindAll retrieves all users.
func (r *UserRepository) FindAll(ctx context.Context) ([]chat.User, error) {
	var users []chat.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list users: %v", chat.ErrPersistence, err)
	}
	return users, nil
}

// FilterExisting returns the subset of ids that resolve to stored users,
// preserving input order. Unknown ids are dropped, not reported.
func (r *UserRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).Model(&chat.User{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to resolve users: %v", chat.ErrPersistence, err)
	}

	exists := make(map[string]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}

	result := make([]string, 0, len(found))
	for _, id := range ids {
		if exists[id] {
			result = append(result, id)
			exists[id] = false
		}
	}
	return result, nil
}
