// Package relay implements the message relay: it validates and dispatches
// direct, group and file chat messages, persists them through the store,
// and publishes them for fan-out to subscribed sessions.
package relay

import (
	"context"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/khadka27/educonnect-chat/events"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// Module wires the relay service into the application.
type Module struct {
	store    *store.Module
	svc      *Service
	eventBus mono.EventBus
	ttl      time.Duration
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new relay module.
func NewModule(storeModule *store.Module, ttl time.Duration, moduleLogger types.Logger) *Module {
	return &Module{
		store:  storeModule,
		ttl:    ttl,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// Start builds the service once the store is up.
func (m *Module) Start(_ context.Context) error {
	m.svc = NewService(
		m.store.Messages(),
		m.store.Groups(),
		m.store.Users(),
		events.NewPublisher(m.eventBus),
		m.ttl,
	)
	m.logger.Info("Relay module started", "messageTTL", m.ttl)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Relay module stopped")
	return nil
}

// Service returns the relay service. Valid after Start.
func (m *Module) Service() *Service {
	return m.svc
}
