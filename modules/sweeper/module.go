// Package sweeper runs the recurring expiry sweep: every interval it
// deletes messages whose expiry timestamp has passed. Each run evaluates
// "now" independently; nothing is checkpointed between runs or across
// restarts, and expiry is silent towards clients.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/khadka27/educonnect-chat/modules/store"
)

// Module schedules the expiry sweep.
type Module struct {
	store    *store.Module
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	logger   types.Logger
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new sweeper module.
func NewModule(storeModule *store.Module, interval time.Duration, moduleLogger types.Logger) *Module {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Module{
		store:    storeModule,
		interval: interval,
		logger:   moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "sweeper"
}

// Start launches the sweep loop.
func (m *Module) Start(_ context.Context) error {
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})

	go m.run()

	m.logger.Info("Sweeper module started", "interval", m.interval)
	return nil
}

// run ticks at the configured interval until stopped.
func (m *Module) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.doneChan)

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep deletes every message past its expiry. Failures are logged and
// swallowed; the next scheduled run retries the same condition.
func (m *Module) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := m.store.Messages().DeleteExpired(ctx, time.Now())
	if err != nil {
		m.logger.Error("Expiry sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		m.logger.Info("Expiry sweep completed", "deleted", deleted)
	}
}

// Stop shuts the loop down, waiting for an in-flight sweep to finish.
func (m *Module) Stop(ctx context.Context) error {
	if m.stopChan == nil {
		return nil
	}

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	select {
	case <-m.doneChan:
		m.logger.Info("Sweeper module stopped")
	case <-ctx.Done():
		m.logger.Error("Sweeper shutdown timeout exceeded")
		return ctx.Err()
	}
	return nil
}
