// Package store is the persistence gateway: GORM repositories over the
// four record kinds (User, Group, GroupMembership, Message).
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// Module owns the database connection and hands out repositories.
type Module struct {
	db       *gorm.DB
	dbPath   string
	messages *MessageRepository
	groups   *GroupRepository
	users    *UserRepository
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new store module.
func NewModule(dbPath string, moduleLogger types.Logger) *Module {
	return &Module{
		dbPath: dbPath,
		logger: moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "store"
}

// Start opens the database and runs migrations.
func (m *Module) Start(_ context.Context) error {
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&chat.User{},
		&chat.Group{},
		&chat.GroupMembership{},
		&chat.Message{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.db = db
	m.messages = NewMessageRepository(db)
	m.groups = NewGroupRepository(db)
	m.users = NewUserRepository(db)

	m.logger.Info("Store module started", "dbPath", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	m.logger.Info("Store module stopped")
	return nil
}

// Health pings the underlying connection.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// Messages returns the message repository. Valid after Start.
func (m *Module) Messages() *MessageRepository {
	return m.messages
}

// Groups returns the group repository. Valid after Start.
func (m *Module) Groups() *GroupRepository {
	return m.groups
}

// Users returns the user repository. Valid after Start.
func (m *Module) Users() *UserRepository {
	return m.users
}
