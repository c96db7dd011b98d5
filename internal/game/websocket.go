package game

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/puzzle-labs/internal/identity"
	"github.com/coder/websocket"
)

// WebSocketHandler serves the live trial protocol over a websocket. One
// connection carries one participant's message stream; every inbound message
// is processed to completion before the next is read.
type WebSocketHandler struct {
	engine        *Engine
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new live protocol handler.
func NewWebSocketHandler(engine *Engine, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		engine:        engine,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// errorFrame is the only payload sent for a rejected transition.
type errorFrame struct {
	Error string `json:"error"`
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	participantID := identity.ParticipantIDFromContext(r.Context())
	if participantID == "" {
		http.Error(w, "unknown participant", http.StatusForbidden)
		return
	}
	slog.Info("live connection request", "participant_id", participantID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "participant_id", participantID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "participant_id", participantID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, participantID)
	slog.Info("live connection ended", "participant_id", participantID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, participantID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("websocket closed by client", "participant_id", participantID)
			} else {
				slog.Warn("websocket read error", "error", err, "participant_id", participantID)
			}
			return
		}

		resp, err := h.engine.HandleMessage(ctx, participantID, message)
		if err != nil {
			// Protocol violations end the live session for this participant;
			// recovery belongs to the host page, not this layer.
			if kind := ErrorKind(err); kind != "" {
				slog.Warn("protocol violation", "participant_id", participantID, "kind", kind, "error", err)
				if writeErr := h.writeJSON(ctx, ws, errorFrame{Error: kind}); writeErr != nil {
					slog.Debug("failed to send error frame", "error", writeErr)
				}
				_ = ws.Close(websocket.StatusPolicyViolation, kind)
				return
			}

			slog.Error("message handling failed", "error", err, "participant_id", participantID)
			_ = ws.Close(websocket.StatusInternalError, "internal error")
			return
		}

		if err := h.writeJSON(ctx, ws, resp); err != nil {
			slog.Warn("websocket write error", "error", err, "participant_id", participantID)
			return
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
