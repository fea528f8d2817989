package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Checker-Finance/rates-gateway/internal/validate"
	"github.com/Checker-Finance/rates-gateway/pkg/model"
)

// Path is the only WebSocket path the gateway serves.
const Path = "/markets/ws"

// RateSource runs one aggregation pass on demand.
type RateSource interface {
	FetchAllRates(ctx context.Context) []model.Rate
}

// Handler upgrades inbound connections and serves the subscribe protocol.
type Handler struct {
	logger       *zap.Logger
	hub          *Hub
	rates        RateSource
	universeSize int
	upgrader     websocket.Upgrader
}

// NewHandler constructs the WebSocket entry point.
func NewHandler(logger *zap.Logger, hub *Hub, rates RateSource, universeSize int) *Handler {
	return &Handler{
		logger:       logger,
		hub:          hub,
		rates:        rates,
		universeSize: universeSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws.upgrade_failed", zap.Error(err))
		return
	}

	if r.URL.Path != Path {
		reason := "Unsupported path: " + r.URL.Path
		h.logger.Warn("ws.unsupported_path", zap.String("path", r.URL.Path))
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
		_ = c.Close()
		return
	}

	session := h.hub.Add(c)
	defer h.hub.Remove(session)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("ws.read_failed",
					zap.String("session", session.ID.String()),
					zap.Error(err))
			}
			return
		}

		var req model.Envelope
		if err := json.Unmarshal(data, &req); err != nil {
			h.logger.Warn("ws.bad_message",
				zap.String("session", session.ID.String()),
				zap.Error(err))
			continue
		}

		h.logger.Info("ws.message_received",
			zap.String("session", session.ID.String()),
			zap.String("channel", req.Channel),
			zap.String("event", req.Event))

		if req.Channel == model.ChannelRates && req.Event == model.EventSubscribe {
			h.handleSubscribe(r.Context(), session)
		}
	}
}

// handleSubscribe runs an on-demand pass and replies to the requesting
// session only, with either the data or an error envelope.
func (h *Handler) handleSubscribe(ctx context.Context, session *Session) {
	rates := h.rates.FetchAllRates(ctx)

	env := model.DataEnvelope(rates)
	if !validate.Response(h.logger, env, h.universeSize) {
		if err := session.Send(model.ErrorEnvelope("Invalid rate data format")); err != nil {
			h.logger.Warn("ws.send_failed",
				zap.String("session", session.ID.String()),
				zap.Error(err))
			h.hub.Remove(session)
		}
		return
	}

	if err := session.Send(env); err != nil {
		h.logger.Warn("ws.send_failed",
			zap.String("session", session.ID.String()),
			zap.Error(err))
		h.hub.Remove(session)
	}
}
