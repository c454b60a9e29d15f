// Package group implements the group membership manager: group creation,
// member add/kick/leave, rename, admin reassignment and cascade deletion,
// with admin-only enforcement on the mutating operations.
package group

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/khadka27/educonnect-chat/events"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// Module wires the group service into the application.
type Module struct {
	store    *store.Module
	svc      *Service
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new group module.
func NewModule(storeModule *store.Module, moduleLogger types.Logger) *Module {
	return &Module{
		store:  storeModule,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "group"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.GroupCreatedV1.ToBase(),
		events.MemberAddedV1.ToBase(),
		events.MemberKickedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.GroupRenamedV1.ToBase(),
		events.AdminReassignedV1.ToBase(),
		events.GroupDeletedV1.ToBase(),
	}
}

// Start builds the service once the store is up.
func (m *Module) Start(_ context.Context) error {
	m.svc = NewService(
		m.store.Groups(),
		m.store.Users(),
		events.NewPublisher(m.eventBus),
	)
	m.logger.Info("Group module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Group module stopped")
	return nil
}

// Service returns the group service. Valid after Start.
func (m *Module) Service() *Service {
	return m.svc
}
