// Package wsserver exposes the chat core over a Fiber HTTP server: the
// websocket event surface plus a small REST API.
package wsserver

import (
	"context"
	"fmt"
	"net"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/khadka27/educonnect-chat/modules/broadcast"
	"github.com/khadka27/educonnect-chat/modules/files"
	"github.com/khadka27/educonnect-chat/modules/group"
	"github.com/khadka27/educonnect-chat/modules/relay"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// Module implements the websocket server module using the Fiber framework.
type Module struct {
	app         *fiber.App
	handlers    *Handlers
	addr        string
	corsOrigins string
	relay       *relay.Module
	groups      *group.Module
	files       *files.Module
	store       *store.Module
	broadcast   *broadcast.Module
	logger      types.Logger
}

// Compile-time interface check.
var _ mono.Module = (*Module)(nil)

// NewModule creates a new websocket server module.
func NewModule(addr, corsOrigins string, relayModule *relay.Module, groupModule *group.Module, filesModule *files.Module, storeModule *store.Module, broadcastModule *broadcast.Module, moduleLogger types.Logger) *Module {
	return &Module{
		addr:        addr,
		corsOrigins: corsOrigins,
		relay:       relayModule,
		groups:      groupModule,
		files:       filesModule,
		store:       storeModule,
		broadcast:   broadcastModule,
		logger:      moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Start initializes and starts the server.
func (m *Module) Start(_ context.Context) error {
	m.app = fiber.New(fiber.Config{
		AppName:               "EduConnect Chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.corsOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.handlers = NewHandlers(
		m.relay.Service(),
		m.groups.Service(),
		m.files.Service(),
		m.store.Users(),
		m.broadcast.Hub(),
		m.logger,
	)

	m.registerRoutes()

	// Bind before returning so an unavailable address fails Start
	// synchronously; serving continues in the background.
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("websocket server failed to bind %s: %w", m.addr, err)
	}

	go func() {
		if err := m.app.Listener(ln); err != nil {
			m.logger.Error("WebSocket server stopped unexpectedly", "error", err)
		}
	}()

	m.logger.Info("WebSocket server started", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("WebSocket server stopped")
	return nil
}

// registerRoutes sets up all HTTP and websocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	// Attachment downloads
	m.app.Get("/files/:name", m.handlers.GetFile)

	// REST API routes
	api := m.app.Group("/api/v1")
	api.Get("/users", m.handlers.ListUsers)
	api.Get("/groups/:id", m.handlers.GetGroup)
	api.Get("/groups/:id/messages", m.handlers.GetGroupMessages)
	api.Post("/files", m.handlers.UploadFile)
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
