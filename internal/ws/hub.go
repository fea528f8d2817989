package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/metrics"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// conn is the subset of *websocket.Conn the hub needs. Narrowed so tests can
// substitute failing connections.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors websocket.TextMessage without importing gorilla here.
const textMessage = 1

// Session is one live subscriber connection. Writes are serialized through
// the session mutex; gorilla connections allow only one concurrent writer.
type Session struct {
	ID   uuid.UUID
	conn conn

	mu sync.Mutex
}

// Send marshals env and writes it to the underlying connection.
func (s *Session) Send(env model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.send(data)
}

func (s *Session) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(textMessage, data)
}

// Hub tracks the live set of subscriber sessions. A session is added on
// first contact and removed exactly once, on terminal disconnect or
// unrecoverable send fault.
type Hub struct {
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewHub creates an empty session registry.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Add registers a connection and returns its session handle.
func (h *Hub) Add(c conn) *Session {
	s := &Session{ID: uuid.New(), conn: c}

	h.mu.Lock()
	h.sessions[s.ID] = s
	count := len(h.sessions)
	h.mu.Unlock()

	metrics.ConnectedClients.Set(float64(count))
	h.logger.Info("ws.client_connected",
		zap.String("session", s.ID.String()),
		zap.Int("clients", count))
	return s
}

// Remove unregisters a session and closes its connection. Safe to call more
// than once; only the first call for a session has any effect.
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	_, present := h.sessions[s.ID]
	delete(h.sessions, s.ID)
	count := len(h.sessions)
	h.mu.Unlock()

	if !present {
		return
	}

	_ = s.conn.Close()
	metrics.ConnectedClients.Set(float64(count))
	h.logger.Info("ws.client_disconnected",
		zap.String("session", s.ID.String()),
		zap.Int("clients", count))
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Broadcast sends env to every live session. A per-session send fault is
// non-fatal: the failed session is removed and the broadcast continues with
// the remaining ones.
func (h *Hub) Broadcast(env model.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("ws.broadcast_marshal_failed", zap.Error(err))
		metrics.IncError("hub", "marshal_failed")
		return
	}

	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		if err := s.send(data); err != nil {
			h.logger.Warn("ws.broadcast_send_failed",
				zap.String("session", s.ID.String()),
				zap.Error(err))
			metrics.MessagesSentTotal.WithLabelValues(env.Event, "error").Inc()
			h.Remove(s)
			continue
		}
		metrics.MessagesSentTotal.WithLabelValues(env.Event, "ok").Inc()
	}
}
