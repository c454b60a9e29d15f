package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Frame is the outbound wire format for every event sent to a client.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// wsConn is the subset of the websocket connection the hub writes to.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one physical client connection with an opaque handle. Writes
// are serialized per session; the underlying connection is not safe for
// concurrent writers.
type Session struct {
	ID   string
	conn wsConn
	mu   sync.Mutex
}

// NewSession wraps a websocket connection with a fresh session handle.
func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		ID:   uuid.New().String(),
		conn: conn,
	}
}

// SendEvent writes a typed event frame to the client.
func (s *Session) SendEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write(Frame{Type: event, Payload: data})
}

// SendError writes an error acknowledgment to the client.
func (s *Session) SendError(message string) error {
	return s.write(Frame{Type: "error", Error: message})
}

func (s *Session) write(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Registry maps room keys to the sessions currently subscribed to them.
// Pure process state: nothing is persisted and the registry starts empty
// on every restart, so reconnecting clients must re-join their rooms. The
// interface exists so a distributed pub/sub fan-out can replace the
// in-process hub when running multiple server instances.
type Registry interface {
	Register(s *Session)
	Unregister(sessionID string)
	Join(sessionID, roomKey string)
	Leave(sessionID, roomKey string)
	Broadcast(roomKey, event string, payload any)
}

// Hub is the in-process Registry implementation.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string][]string        // roomKey -> session ids, in join order
	joined   map[string]map[string]bool // sessionID -> room keys
}

// Compile-time interface check.
var _ Registry = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string][]string),
		joined:   make(map[string]map[string]bool),
	}
}

// Register adds a session to the hub.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.ID] = s
	h.joined[s.ID] = make(map[string]bool)
	slog.Debug("Session registered", "sessionID", s.ID)
}

// Unregister removes a session from the hub and from every room it was
// subscribed to.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomKey := range h.joined[sessionID] {
		h.removeFromRoom(sessionID, roomKey)
	}
	delete(h.joined, sessionID)
	delete(h.sessions, sessionID)
	slog.Debug("Session unregistered", "sessionID", sessionID)
}

// Join subscribes a session to a room. Idempotent: joining the same room
// twice with the same session handle changes nothing.
func (h *Hub) Join(sessionID, roomKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.joined[sessionID]
	if !ok {
		return
	}
	if rooms[roomKey] {
		return
	}
	rooms[roomKey] = true
	h.rooms[roomKey] = append(h.rooms[roomKey], sessionID)
}

// Leave unsubscribes a session from a room.
func (h *Hub) Leave(sessionID, roomKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rooms, ok := h.joined[sessionID]; ok && rooms[roomKey] {
		delete(rooms, roomKey)
		h.removeFromRoom(sessionID, roomKey)
	}
}

// removeFromRoom drops sessionID from the room's ordered member list.
// Caller holds the write lock.
func (h *Hub) removeFromRoom(sessionID, roomKey string) {
	members := h.rooms[roomKey]
	for i, id := range members {
		if id == sessionID {
			h.rooms[roomKey] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(h.rooms[roomKey]) == 0 {
		delete(h.rooms, roomKey)
	}
}

// Broadcast delivers the event to every session currently in the room, in
// join order. Fire-and-forget multicast: sessions not present receive
// nothing, and a failed write to one session does not stop delivery to the
// rest. An empty roomKey targets all connected sessions.
func (h *Hub) Broadcast(roomKey, event string, payload any) {
	for _, s := range h.snapshot(roomKey) {
		if err := s.SendEvent(event, payload); err != nil {
			slog.Warn("Failed to deliver event", "sessionID", s.ID, "event", event, "error", err)
		}
	}
}

// snapshot returns the room's sessions in join order without holding the
// lock during writes.
func (h *Hub) snapshot(roomKey string) []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if roomKey == "" {
		all := make([]*Session, 0, len(h.sessions))
		for _, s := range h.sessions {
			all = append(all, s)
		}
		return all
	}

	members := h.rooms[roomKey]
	result := make([]*Session, 0, len(members))
	for _, id := range members {
		if s, ok := h.sessions[id]; ok {
			result = append(result, s)
		}
	}
	return result
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RoomSize returns the number of sessions subscribed to a room.
func (h *Hub) RoomSize(roomKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomKey])
}

// CloseAll closes every connection and resets the hub.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		_ = s.Close()
	}
	h.sessions = make(map[string]*Session)
	h.rooms = make(map[string][]string)
	h.joined = make(map[string]map[string]bool)
}
