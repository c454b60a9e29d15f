package wsserver

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/khadka27/educonnect-chat/domain/chat"
)

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "educonnect-chat",
	})
}

// ListUsers handles user listing requests (GET /api/v1/users).
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.FindAll(c.Context())
	if err != nil {
		return h.restError(c, err)
	}
	return c.JSON(fiber.Map{
		"users": users,
		"total": len(users),
	})
}

// GetGroup handles group detail requests (GET /api/v1/groups/:id).
func (h *Handlers) GetGroup(c *fiber.Ctx) error {
	groupID := c.Params("id")

	g, err := h.groups.Get(c.Context(), groupID)
	if err != nil {
		return h.restError(c, err)
	}
	members, err := h.groups.Members(c.Context(), groupID)
	if err != nil {
		return h.restError(c, err)
	}

	return c.JSON(fiber.Map{
		"group":   g,
		"members": members,
	})
}

// GetGroupMessages handles group history requests
// (GET /api/v1/groups/:id/messages?limit=&cursor=).
func (h *Handlers) GetGroupMessages(c *fiber.Ctx) error {
	groupID := c.Params("id")
	limit := c.QueryInt("limit", 0)

	var cursor *time.Time
	if raw := c.Query("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "cursor must be an RFC3339 timestamp",
			})
		}
		cursor = &t
	}

	page, err := h.relay.GroupHistory(c.Context(), groupID, limit, cursor)
	if err != nil {
		return h.restError(c, err)
	}
	return c.JSON(page)
}

// UploadFile handles multipart attachment uploads (POST /api/v1/files).
// Websocket clients normally send attachments inline via sendFile; this is
// the fallback for large files.
func (h *Handlers) UploadFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file field is required",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return h.restError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return h.restError(c, err)
	}

	stored, err := h.files.Save(c.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		return h.restError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

// GetFile serves a stored attachment (GET /files/:name).
func (h *Handlers) GetFile(c *fiber.Ctx) error {
	data, contentType, err := h.files.Get(c.Context(), c.Params("name"))
	if err != nil {
		return h.restError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// restError maps the error taxonomy to HTTP status codes.
func (h *Handlers) restError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, chat.ErrNotAuthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("Request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
