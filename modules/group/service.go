package group

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/khadka27/educonnect-chat/domain/chat"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// Publisher publishes group lifecycle events for fan-out to the group
// room. Every publish happens after the corresponding rows are stored.
type Publisher interface {
	GroupCreated(group chat.Group, memberIDs []string) error
	MemberAdded(groupID, userID string) error
	MemberKicked(groupID, userID string) error
	MemberLeft(groupID, userID string) error
	GroupRenamed(groupID, newName string) error
	AdminReassigned(groupID, newAdminID string) error
	GroupDeleted(groupID string) error
}

// Service manages groups and their memberships.
type Service struct {
	groups    *store.GroupRepository
	users     *store.UserRepository
	publisher Publisher
}

// NewService creates a new group service.
func NewService(groups *store.GroupRepository, users *store.UserRepository, publisher Publisher) *Service {
	return &Service{
		groups:    groups,
		users:     users,
		publisher: publisher,
	}
}

// Create makes a new group administered by adminID. The admin must resolve
// to a user with a privileged role. Invalid initial member ids are silently
// dropped. Returns the group with its resolved membership list.
func (s *Service) Create(ctx context.Context, name, adminID string, memberIDs []string) (*chat.Group, []string, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("%w: group name is required", chat.ErrValidation)
	}

	admin, err := s.users.FindByID(ctx, adminID)
	if err != nil {
		return nil, nil, err
	}
	if !admin.Role.Privileged() {
		return nil, nil, fmt.Errorf("%w: user %s may not create groups", chat.ErrNotAuthorized, adminID)
	}

	members, err := s.users.FilterExisting(ctx, memberIDs)
	if err != nil {
		return nil, nil, err
	}

	g := &chat.Group{
		ID:        uuid.New().String(),
		Name:      name,
		AdminID:   adminID,
		CreatedAt: time.Now(),
	}
	if err := s.groups.Create(ctx, g, members); err != nil {
		return nil, nil, err
	}

	if err := s.publisher.GroupCreated(*g, members); err != nil {
		slog.Warn("Failed to publish GroupCreated event", "groupID", g.ID, "error", err)
	}
	return g, members, nil
}

// AddMember adds a user to a group. Admin-only. Idempotent: adding an
// existing member is a no-op with no broadcast.
func (s *Service) AddMember(ctx context.Context, actorID, groupID, userID string) error {
	if _, err := s.authorize(ctx, actorID, groupID); err != nil {
		return err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}

	already, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		return err
	}

	if err := s.publisher.MemberAdded(groupID, userID); err != nil {
		slog.Warn("Failed to publish MemberAdded event", "groupID", groupID, "error", err)
	}
	return nil
}

// Kick removes a member from a group. Admin-only.
func (s *Service) Kick(ctx context.Context, actorID, groupID, userID string) error {
	if _, err := s.authorize(ctx, actorID, groupID); err != nil {
		return err
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	if err := s.publisher.MemberKicked(groupID, userID); err != nil {
		slog.Warn("Failed to publish MemberKicked event", "groupID", groupID, "error", err)
	}
	return nil
}

// Leave removes the user from the group on their own initiative. The
// current admin may not leave; admin rights must be reassigned first so
// the group is never left without an admin.
func (s *Service) Leave(ctx context.Context, userID, groupID string) error {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.AdminID == userID {
		return fmt.Errorf("%w: the group admin must reassign admin rights before leaving", chat.ErrNotAuthorized)
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	if err := s.publisher.MemberLeft(groupID, userID); err != nil {
		slog.Warn("Failed to publish MemberLeft event", "groupID", groupID, "error", err)
	}
	return nil
}

// Rename updates the group name. Admin-only.
func (s *Service) Rename(ctx context.Context, actorID, groupID, newName string) error {
	if newName == "" {
		return fmt.Errorf("%w: group name is required", chat.ErrValidation)
	}
	if _, err := s.authorize(ctx, actorID, groupID); err != nil {
		return err
	}

	if err := s.groups.Rename(ctx, groupID, newName); err != nil {
		return err
	}

	if err := s.publisher.GroupRenamed(groupID, newName); err != nil {
		slog.Warn("Failed to publish GroupRenamed event", "groupID", groupID, "error", err)
	}
	return nil
}

// ReassignAdmin transfers admin rights to another privileged user.
// Admin-only.
func (s *Service) ReassignAdmin(ctx context.Context, actorID, groupID, newAdminID string) error {
	if _, err := s.authorize(ctx, actorID, groupID); err != nil {
		return err
	}

	newAdmin, err := s.users.FindByID(ctx, newAdminID)
	if err != nil {
		return err
	}
	if !newAdmin.Role.Privileged() {
		return fmt.Errorf("%w: user %s may not administer groups", chat.ErrNotAuthorized, newAdminID)
	}

	if err := s.groups.UpdateAdmin(ctx, groupID, newAdminID); err != nil {
		return err
	}

	if err := s.publisher.AdminReassigned(groupID, newAdminID); err != nil {
		slog.Warn("Failed to publish AdminReassigned event", "groupID", groupID, "error", err)
	}
	return nil
}

// Delete removes a group, its memberships and its messages as one atomic
// unit. Admin-only.
func (s *Service) Delete(ctx context.Context, actorID, groupID string) error {
	if _, err := s.authorize(ctx, actorID, groupID); err != nil {
		return err
	}

	if err := s.groups.DeleteCascade(ctx, groupID); err != nil {
		return err
	}

	if err := s.publisher.GroupDeleted(groupID); err != nil {
		slog.Warn("Failed to publish GroupDeleted event", "groupID", groupID, "error", err)
	}
	return nil
}

// Get retrieves a group by id.
func (s *Service) Get(ctx context.Context, groupID string) (*chat.Group, error) {
	return s.groups.FindByID(ctx, groupID)
}

// ListForUser returns every group the user belongs to or administers.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]chat.Group, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", chat.ErrValidation)
	}
	return s.groups.ListForUser(ctx, userID)
}

// Members returns the member ids of a group.
func (s *Service) Members(ctx context.Context, groupID string) ([]string, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groups.MemberIDs(ctx, groupID)
}

// authorize resolves the group and checks that the actor is its admin or a
// global admin.
func (s *Service) authorize(ctx context.Context, actorID, groupID string) (*chat.Group, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.AdminID == actorID {
		return g, nil
	}

	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role == chat.RoleAdmin {
		return g, nil
	}
	return nil, fmt.Errorf("%w: user %s is not the admin of group %s", chat.ErrNotAuthorized, actorID, groupID)
}
