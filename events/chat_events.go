package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// MessageSentEvent is emitted after a message (direct, group or file) has
// been durably stored. Broadcast never happens before this event exists.
type MessageSentEvent struct {
	Message chat.Message `json:"message"`
}

// GroupCreatedEvent is emitted when a privileged user creates a group.
type GroupCreatedEvent struct {
	Group     chat.Group `json:"group"`
	MemberIDs []string   `json:"memberIds"`
}

// MemberAddedEvent is emitted when a user is added to a group.
type MemberAddedEvent struct {
	GroupID   string    `json:"groupId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberKickedEvent is emitted when the admin removes a member.
type MemberKickedEvent struct {
	GroupID   string    `json:"groupId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted when a member removes themselves.
type MemberLeftEvent struct {
	GroupID   string    `json:"groupId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// GroupRenamedEvent is emitted when the admin renames a group.
type GroupRenamedEvent struct {
	GroupID      string `json:"groupId"`
	NewGroupName string `json:"newGroupName"`
}

// AdminReassignedEvent is emitted when group adminship moves to another
// privileged user.
type AdminReassignedEvent struct {
	GroupID    string `json:"groupId"`
	NewAdminID string `json:"newAdminId"`
}

// GroupDeletedEvent is emitted after the group, its memberships and its
// messages have been removed in one transaction.
type GroupDeletedEvent struct {
	GroupID string `json:"groupId"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"relay",
		"MessageSent",
		"v1",
	)

	GroupCreatedV1 = helper.EventDefinition[GroupCreatedEvent](
		"group",
		"GroupCreated",
		"v1",
	)

	MemberAddedV1 = helper.EventDefinition[MemberAddedEvent](
		"group",
		"MemberAdded",
		"v1",
	)

	MemberKickedV1 = helper.EventDefinition[MemberKickedEvent](
		"group",
		"MemberKicked",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"group",
		"MemberLeft",
		"v1",
	)

	GroupRenamedV1 = helper.EventDefinition[GroupRenamedEvent](
		"group",
		"GroupRenamed",
		"v1",
	)

	AdminReassignedV1 = helper.EventDefinition[AdminReassignedEvent](
		"group",
		"AdminReassigned",
		"v1",
	)

	GroupDeletedV1 = helper.EventDefinition[GroupDeletedEvent](
		"group",
		"GroupDeleted",
		"v1",
	)
)
