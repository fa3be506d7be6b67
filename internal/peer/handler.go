package peer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/identity"
	"github.com/ashureev/jecnabot/internal/store"
)

const (
	defaultPingInterval = 30 * time.Second
	writeTimeout        = 10 * time.Second
	saveTimeout         = 5 * time.Second
)

// WebSocketHandler serves chat sessions over WebSocket.
type WebSocketHandler struct {
	repo          store.Repository
	responder     *Responder
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
	messageLog    bool
	pingInterval  time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(repo store.Repository, responder *Responder, sm *SessionManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		responder:     responder,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		messageLog:    true,
		pingInterval:  defaultPingInterval,
	}
}

// SetMessageLog toggles persisting questions and answers.
func (h *WebSocketHandler) SetMessageLog(enabled bool) {
	h.messageLog = enabled
}

// SetPingInterval changes the keepalive period; <= 0 disables pings.
func (h *WebSocketHandler) SetPingInterval(d time.Duration) {
	h.pingInterval = d
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.CloseNow(); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sm.Register(userID, sessionID, ws)
	defer h.sm.Unregister(userID, sessionID, ws)

	var msgLog *messageLog
	if h.messageLog {
		msgLog = newMessageLog(h.repo, userID, sessionID, defaultLogQueueSize)
		defer msgLog.Close()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if h.pingInterval > 0 {
		go h.keepAlive(ctx, ws, userID)
	}

	if err := h.writeEnvelope(ctx, ws, h.responder.Welcome()); err != nil {
		slog.Debug("Failed to send welcome", "error", err, "user_id", userID)
		return
	}

	h.chatLoop(ctx, ws, msgLog, userID, sessionID)
	slog.Info("Chat session ended", "user_id", userID, "session_id", sessionID)
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
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) chatLoop(ctx context.Context, ws *websocket.Conn, msgLog *messageLog, userID, sessionID string) {
	for {
		typ, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}
		if typ != websocket.MessageText {
			slog.Debug("Ignoring binary frame", "user_id", userID, "bytes", len(message))
			continue
		}

		text := string(message)
		if msgLog != nil {
			msgLog.Record(text, true)
		}

		reply, done := h.responder.Reply(text)
		if err := h.writeEnvelope(ctx, ws, reply); err != nil {
			slog.Debug("Failed to send reply", "error", err, "user_id", userID)
			return
		}
		if msgLog != nil {
			msgLog.Record(reply.Message, false)
		}

		if done {
			slog.Info("Client requested exit", "user_id", userID, "session_id", sessionID)
			if err := ws.Close(websocket.StatusNormalClosure, "goodbye"); err != nil {
				slog.Debug("Failed to close after exit", "error", err, "user_id", userID)
			}
			return
		}
	}
}

func (h *WebSocketHandler) keepAlive(ctx context.Context, ws *websocket.Conn, userID string) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					slog.Debug("Keepalive ping failed", "error", err, "user_id", userID)
				}
				return
			}
		}
	}
}

func (h *WebSocketHandler) writeEnvelope(ctx context.Context, ws *websocket.Conn, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
