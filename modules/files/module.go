// Package files stores chat attachments in a JetStream object store
// bucket and resolves them back for download.
package files

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module wires attachment storage into the application.
type Module struct {
	natsURL string
	bucket  string
	maxSize int64
	store   *JetStreamObjectStore
	svc     *Service
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new files module.
func NewModule(natsURL, bucket string, maxSize int64, moduleLogger types.Logger) *Module {
	return &Module{
		natsURL: natsURL,
		bucket:  bucket,
		maxSize: maxSize,
		logger:  moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "files"
}

// Start connects to the object store and builds the service.
func (m *Module) Start(ctx context.Context) error {
	store, err := NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to init object store: %w", err)
	}

	m.store = store
	m.svc = NewService(store, m.maxSize)
	m.logger.Info("Files module started", "bucket", m.bucket, "maxSize", m.maxSize)
	return nil
}

// Stop closes the object store connection.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	m.logger.Info("Files module stopped")
	return nil
}

// Health reports whether the object store connection is alive.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.store == nil || m.store.conn == nil || !m.store.conn.IsConnected() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "object store not connected",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"bucket": m.bucket,
		},
	}
}

// Service returns the file service. Valid after Start.
func (m *Module) Service() *Service {
	return m.svc
}
