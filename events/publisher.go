package events

import (
	"time"

	"github.com/go-monolith/mono"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// Publisher wraps the framework event bus behind per-event methods so the
// relay and group services can depend on small local interfaces instead of
// the bus itself.
type Publisher struct {
	bus mono.EventBus
}

// NewPublisher creates a Publisher on top of the given bus.
func NewPublisher(bus mono.EventBus) *Publisher {
	return &Publisher{bus: bus}
}

// MessageSent publishes a stored message for fan-out.
func (p *Publisher) MessageSent(msg chat.Message) error {
	return MessageSentV1.Publish(p.bus, MessageSentEvent{Message: msg}, nil)
}

// GroupCreated publishes a newly created group with its member list.
func (p *Publisher) GroupCreated(group chat.Group, memberIDs []string) error {
	return GroupCreatedV1.Publish(p.bus, GroupCreatedEvent{Group: group, MemberIDs: memberIDs}, nil)
}

// MemberAdded publishes a membership addition.
func (p *Publisher) MemberAdded(groupID, userID string) error {
	return MemberAddedV1.Publish(p.bus, MemberAddedEvent{GroupID: groupID, UserID: userID, Timestamp: time.Now()}, nil)
}

// MemberKicked publishes an admin-initiated removal.
func (p *Publisher) MemberKicked(groupID, userID string) error {
	return MemberKickedV1.Publish(p.bus, MemberKickedEvent{GroupID: groupID, UserID: userID, Timestamp: time.Now()}, nil)
}

// MemberLeft publishes a self-initiated removal.
func (p *Publisher) MemberLeft(groupID, userID string) error {
	return MemberLeftV1.Publish(p.bus, MemberLeftEvent{GroupID: groupID, UserID: userID, Timestamp: time.Now()}, nil)
}

// GroupRenamed publishes a group rename.
func (p *Publisher) GroupRenamed(groupID, newName string) error {
	return GroupRenamedV1.Publish(p.bus, GroupRenamedEvent{GroupID: groupID, NewGroupName: newName}, nil)
}

// AdminReassigned publishes an admin handover.
func (p *Publisher) AdminReassigned(groupID, newAdminID string) error {
	return AdminReassignedV1.Publish(p.bus, AdminReassignedEvent{GroupID: groupID, NewAdminID: newAdminID}, nil)
}

// GroupDeleted publishes a completed cascade deletion.
func (p *Publisher) GroupDeleted(groupID string) error {
	return GroupDeletedV1.Publish(p.bus, GroupDeletedEvent{GroupID: groupID}, nil)
}
