package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"

	"github.com/khadka27/educonnect-chat/domain/chat"
	"github.com/khadka27/educonnect-chat/modules/broadcast"
	"github.com/khadka27/educonnect-chat/modules/files"
	"github.com/khadka27/educonnect-chat/modules/group"
	"github.com/khadka27/educonnect-chat/modules/relay"
	"github.com/khadka27/educonnect-chat/modules/store"
)

// Rate limiting for send commands.
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// Handlers contains the websocket and HTTP handlers.
type Handlers struct {
	relay    *relay.Service
	groups   *group.Service
	files    *files.Service
	users    *store.UserRepository
	registry broadcast.Registry
	validate *validator.Validate
	logger   types.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(relaySvc *relay.Service, groupSvc *group.Service, fileSvc *files.Service, users *store.UserRepository, registry broadcast.Registry, logger types.Logger) *Handlers {
	return &Handlers{
		relay:    relaySvc,
		groups:   groupSvc,
		files:    fileSvc,
		users:    users,
		registry: registry,
		validate: validator.New(),
		logger:   logger,
	}
}

// HandleWebSocket runs the read loop for one client connection.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	session := broadcast.NewSession(c)
	h.registry.Register(session)
	limiter := newRateLimiter(burstSize, messagesPerSecond)

	defer func() {
		h.registry.Unregister(session.ID)
		_ = session.Close()
	}()

	h.logger.Info("Session connected", "sessionID", session.ID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "sessionID", session.ID, "error", err)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(msgBytes, &cmd); err != nil {
			_ = session.SendError("invalid message format")
			continue
		}

		h.handleCommand(session, limiter, cmd)
	}

	h.logger.Info("Session disconnected", "sessionID", session.ID)
}

// handleCommand routes one inbound frame to its handler. Every handler
// either succeeds silently, replies to this session, or sends an error ack
// to this session; other sessions are never affected by a failure here.
func (h *Handlers) handleCommand(session *broadcast.Session, limiter *rateLimiter, cmd Command) {
	ctx := context.Background()

	var err error
	switch cmd.Type {
	case CmdJoinRoom:
		err = h.handleJoinRoom(session, cmd.Payload)
	case CmdJoinGroup:
		err = h.handleJoinGroup(session, cmd.Payload)
	case CmdSendMessage:
		err = h.handleSendMessage(ctx, limiter, cmd.Payload)
	case CmdSendGroupMessage:
		err = h.handleSendGroupMessage(ctx, limiter, cmd.Payload)
	case CmdSendFile:
		err = h.handleSendFile(ctx, limiter, cmd.Payload)
	case CmdFetchMessages:
		err = h.handleFetchMessages(ctx, session, cmd.Payload)
	case CmdFetchGroupMessages:
		err = h.handleFetchGroupMessages(ctx, session, cmd.Payload)
	case CmdFetchUnseenMessages:
		err = h.handleFetchUnseen(ctx, session, cmd.Payload)
	case CmdMarkAsRead:
		err = h.handleMarkAsRead(ctx, session, cmd.Payload)
	case CmdFetchGroups:
		err = h.handleFetchGroups(ctx, session, cmd.Payload)
	case CmdFetchUsers:
		err = h.handleFetchUsers(ctx, session)
	case CmdCreateGroup:
		err = h.handleCreateGroup(ctx, cmd.Payload)
	case CmdAddUserToGroup:
		err = h.handleAddUserToGroup(ctx, cmd.Payload)
	case CmdKickUserFromGroup:
		err = h.handleKickUserFromGroup(ctx, cmd.Payload)
	case CmdLeaveGroup:
		err = h.handleLeaveGroup(ctx, cmd.Payload)
	case CmdRenameGroup:
		err = h.handleRenameGroup(ctx, cmd.Payload)
	case CmdReassignAdmin:
		err = h.handleReassignAdmin(ctx, cmd.Payload)
	case CmdDeleteGroup:
		err = h.handleDeleteGroup(ctx, cmd.Payload)
	default:
		err = fmt.Errorf("%w: unknown command %q", chat.ErrValidation, cmd.Type)
	}

	if err != nil {
		h.sendError(session, cmd.Type, err)
	}
}

// sendError maps an error to the taxonomy and acknowledges it to the
// originating session only. Store failures are logged server-side and
// surfaced as a generic failure.
func (h *Handlers) sendError(session *broadcast.Session, cmdType string, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation),
		errors.Is(err, chat.ErrNotFound),
		errors.Is(err, chat.ErrNotAuthorized):
		_ = session.SendError(err.Error())
	default:
		h.logger.Error("Command failed", "command", cmdType, "sessionID", session.ID, "error", err)
		_ = session.SendError("internal error")
	}
}

// decode unmarshals and validates a command payload.
func decode[T any](v *validator.Validate, payload json.RawMessage) (T, error) {
	var value T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &value); err != nil {
			return value, fmt.Errorf("%w: invalid payload", chat.ErrValidation)
		}
	}
	if err := v.Struct(&value); err != nil {
		return value, fmt.Errorf("%w: %v", chat.ErrValidation, err)
	}
	return value, nil
}

func (h *Handlers) handleJoinRoom(session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[joinRoomPayload](h.validate, payload)
	if err != nil {
		return err
	}
	h.registry.Join(session.ID, p.UserID)
	return nil
}

func (h *Handlers) handleJoinGroup(session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[joinGroupPayload](h.validate, payload)
	if err != nil {
		return err
	}
	h.registry.Join(session.ID, chat.GroupRoomKey(p.GroupID))
	return nil
}

func (h *Handlers) handleSendMessage(ctx context.Context, limiter *rateLimiter, payload json.RawMessage) error {
	if !limiter.allow() {
		return fmt.Errorf("%w: rate limit exceeded, slow down", chat.ErrValidation)
	}

	p, err := decode[sendMessagePayload](h.validate, payload)
	if err != nil {
		return err
	}

	_, err = h.relay.Send(ctx, relay.SendInput{
		Content:  p.Content,
		SenderID: p.SenderID,
		Dest:     chat.DirectTo{UserID: p.ReceiverID},
		FileURL:  p.FileURL,
		FileType: p.FileType,
	})
	return err
}

func (h *Handlers) handleSendGroupMessage(ctx context.Context, limiter *rateLimiter, payload json.RawMessage) error {
	if !limiter.allow() {
		return fmt.Errorf("%w: rate limit exceeded, slow down", chat.ErrValidation)
	}

	p, err := decode[sendGroupMessagePayload](h.validate, payload)
	if err != nil {
		return err
	}

	_, err = h.relay.Send(ctx, relay.SendInput{
		Content:  p.Content,
		SenderID: p.SenderID,
		Dest:     chat.GroupTo{GroupID: p.GroupID},
		FileURL:  p.FileURL,
		FileType: p.FileType,
	})
	return err
}

// handleSendFile stores the inline attachment first, then relays it as a
// file message to the direct or group destination.
func (h *Handlers) handleSendFile(ctx context.Context, limiter *rateLimiter, payload json.RawMessage) error {
	if !limiter.allow() {
		return fmt.Errorf("%w: rate limit exceeded, slow down", chat.ErrValidation)
	}

	p, err := decode[sendFilePayload](h.validate, payload)
	if err != nil {
		return err
	}

	var dest chat.Destination
	switch {
	case p.ReceiverID != "" && p.GroupID != "":
		return fmt.Errorf("%w: receiverId and groupId are mutually exclusive", chat.ErrValidation)
	case p.ReceiverID != "":
		dest = chat.DirectTo{UserID: p.ReceiverID}
	case p.GroupID != "":
		dest = chat.GroupTo{GroupID: p.GroupID}
	default:
		return fmt.Errorf("%w: receiverId or groupId is required", chat.ErrValidation)
	}

	stored, err := h.files.SaveBase64(ctx, p.FileName, p.FileType, p.FileData)
	if err != nil {
		return err
	}

	_, err = h.relay.Send(ctx, relay.SendInput{
		Content:  p.Content,
		SenderID: p.SenderID,
		Dest:     dest,
		FileURL:  stored.URL,
		FileType: stored.ContentType,
	})
	return err
}

func (h *Handlers) handleFetchMessages(ctx context.Context, session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[fetchMessagesPayload](h.validate, payload)
	if err != nil {
		return err
	}

	page, err := h.relay.DirectHistory(ctx, p.SenderID, p.ReceiverID, p.Limit, p.Cursor)
	if err != nil {
		return err
	}
	return session.SendEvent(EventMessageHistory, page)
}

func (h *Handlers) handleFetchGroupMessages(ctx context.Context, session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[fetchGroupMessagesPayload](h.validate, payload)
	if err != nil {
		return err
	}

	page, err := h.relay.GroupHistory(ctx, p.GroupID, p.Limit, p.Cursor)
	if err != nil {
		return err
	}
	return session.SendEvent(EventGroupMessageHistory, page)
}

func (h *Handlers) handleFetchUnseen(ctx context.Context, session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[fetchUnseenPayload](h.validate, payload)
	if err != nil {
		return err
	}

	msgs, err := h.relay.Unseen(ctx, p.UserID)
	if err != nil {
		return err
	}
	return session.SendEvent(EventUnseenMessages, msgs)
}

func (h *Handlers) handleMarkAsRead(ctx context.Context, session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[markAsReadPayload](h.validate, payload)
	if err != nil {
		return err
	}

	msg, err := h.relay.MarkRead(ctx, p.MessageID)
	if err != nil {
		return err
	}
	return session.SendEvent(EventMessageRead, map[string]string{"messageId": msg.ID})
}

func (h *Handlers) handleFetchGroups(ctx context.Context, session *broadcast.Session, payload json.RawMessage) error {
	p, err := decode[fetchGroupsPayload](h.validate, payload)
	if err != nil {
		return err
	}

	groups, err := h.groups.ListForUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	return session.SendEvent(EventGroupList, groups)
}

func (h *Handlers) handleFetchUsers(ctx context.Context, session *broadcast.Session) error {
	users, err := h.users.FindAll(ctx)
	if err != nil {
		return err
	}
	return session.SendEvent(EventUserList, users)
}

func (h *Handlers) handleCreateGroup(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[createGroupPayload](h.validate, payload)
	if err != nil {
		return err
	}

	_, _, err = h.groups.Create(ctx, p.GroupName, p.TeacherID, p.MemberIDs)
	return err
}

func (h *Handlers) handleAddUserToGroup(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[memberActionPayload](h.validate, payload)
	if err != nil {
		return err
	}
	return h.groups.AddMember(ctx, p.AdminID, p.GroupID, p.UserID)
}

func (h *Handlers) handleKickUserFromGroup(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[memberActionPayload](h.validate, payload)
	if err != nil {
		return err
	}
	return h.groups.Kick(ctx, p.AdminID, p.GroupID, p.UserID)
}

func (h *Handlers) handleLeaveGroup(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[leaveGroupPayload](h.validate, payload)
	if err != nil {
		return err
	}
	return h.groups.Leave(ctx, p.UserID, p.GroupID)
}

func (h *Handlers) handleRenameGroup(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[renameGroupPayload](h.validate, payload)
	if err != nil {
		return err
	}
	return h.groups.Rename(ctx, p.AdminID, p.GroupID, p.NewGroupName)
}

func (h *Handlers) handleReassignAdmin(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[reassignAdminPayload](h.validate, payload)
	if err != nil {
		return err
	}
	return h.groups.ReassignAdmin(ctx, p.AdminID, p.GroupID, p.NewAdminID)
}

func (h *Handlers) handleDeleteGroup(ctx context.Context, payload json.RawMessage) error {
	p, err := decode[deleteGroupPayload](h.validate, payload)
	if err != nil {
		return err
	}
	return h.groups.Delete(ctx, p.AdminID, p.GroupID)
}
