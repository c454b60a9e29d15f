// Package broadcast owns the room registry: an in-process mapping from
// room keys to connected sessions. It consumes the chat events published
// after persistence and fans them out to the subscribed sessions.
package broadcast

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/khadka27/educonnect-chat/domain/chat"
	"github.com/khadka27/educonnect-chat/events"
)

// Outbound event names on the websocket surface. Any message carrying an
// attachment goes out as newFileMessage, whether it arrived as a direct or
// a group send; the destination room key still tells the two apart.
const (
	EventNewMessage          = "newMessage"
	EventNewGroupMessage     = "newGroupMessage"
	EventNewFileMessage      = "newFileMessage"
	EventGroupCreated        = "groupCreated"
	EventUserAddedToGroup    = "userAddedToGroup"
	EventUserKickedFromGroup = "userKickedFromGroup"
	EventUserLeftGroup       = "userLeftGroup"
	EventGroupRenamed        = "groupRenamed"
	EventAdminReassigned     = "adminReassigned"
	EventGroupDeleted        = "groupDeleted"
)

// Module consumes chat events and broadcasts them to websocket sessions.
type Module struct {
	hub    *Hub
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module.
func NewModule(moduleLogger types.Logger) *Module {
	return &Module{
		hub:    NewHub(),
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop closes all client connections.
func (m *Module) Stop(_ context.Context) error {
	count := m.hub.SessionCount()
	m.hub.CloseAll()
	m.logger.Info("Broadcast module stopped", "closedSessions", count)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_sessions": m.hub.SessionCount(),
		},
	}
}

// Hub returns the room registry for the websocket server to use.
func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterEventConsumers registers handlers for every chat event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.GroupCreatedV1, m.handleGroupCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register GroupCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberAddedV1, m.handleMemberAdded, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberAdded consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberKickedV1, m.handleMemberKicked, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberKicked consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberLeftV1, m.handleMemberLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.GroupRenamedV1, m.handleGroupRenamed, m,
	); err != nil {
		return fmt.Errorf("failed to register GroupRenamed consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.AdminReassignedV1, m.handleAdminReassigned, m,
	); err != nil {
		return fmt.Errorf("failed to register AdminReassigned consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.GroupDeletedV1, m.handleGroupDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register GroupDeleted consumer: %w", err)
	}

	m.logger.Info("Registered broadcast event consumers")
	return nil
}

// handleMessageSent fans a stored message out to its destination room.
func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	msg := event.Message
	dest, err := msg.Destination()
	if err != nil {
		m.logger.Error("Dropping message with invalid destination", "messageID", msg.ID, "error", err)
		return nil
	}

	name := EventNewMessage
	if msg.FileURL != "" {
		name = EventNewFileMessage
	} else if msg.GroupID != nil {
		name = EventNewGroupMessage
	}

	m.hub.Broadcast(dest.RoomKey(), name, msg)
	return nil
}

func (m *Module) handleGroupCreated(_ context.Context, event events.GroupCreatedEvent, _ *mono.Msg) error {
	m.hub.Broadcast("", EventGroupCreated, event.Group)
	return nil
}

func (m *Module) handleMemberAdded(_ context.Context, event events.MemberAddedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(chat.GroupRoomKey(event.GroupID), EventUserAddedToGroup, event)
	return nil
}

func (m *Module) handleMemberKicked(_ context.Context, event events.MemberKickedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(chat.GroupRoomKey(event.GroupID), EventUserKickedFromGroup, event)
	return nil
}

func (m *Module) handleMemberLeft(_ context.Context, event events.MemberLeftEvent, _ *mono.Msg) error {
	m.hub.Broadcast(chat.GroupRoomKey(event.GroupID), EventUserLeftGroup, event)
	return nil
}

func (m *Module) handleGroupRenamed(_ context.Context, event events.GroupRenamedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(chat.GroupRoomKey(event.GroupID), EventGroupRenamed, event)
	return nil
}

func (m *Module) handleAdminReassigned(_ context.Context, event events.AdminReassignedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(chat.GroupRoomKey(event.GroupID), EventAdminReassigned, event)
	return nil
}

func (m *Module) handleGroupDeleted(_ context.Context, event events.GroupDeletedEvent, _ *mono.Msg) error {
	m.hub.Broadcast(chat.GroupRoomKey(event.GroupID), EventGroupDeleted, event)
	return nil
}
