package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/ashureev/convoguide/internal/agent"
	"github.com/ashureev/convoguide/internal/identity"
)

const (
	defaultEventsPerSecond = 5
	defaultBurst           = 10
	maxFrameBytes          = 64 << 10
	pendingFrames          = 16
)

// Joiner attaches participants to the room's agent session.
type Joiner interface {
	Join(ctx context.Context, room, participant string) (*agent.Session, error)
	Leave(room, participant string)
}

// HandlerConfig configures a WebSocketHandler.
type HandlerConfig struct {
	Hub             *Hub
	Worker          Joiner
	AllowedOrigin   string
	IsDev           bool
	EventsPerSecond float64
	Burst           int
	Logger          *slog.Logger
}

// WebSocketHandler serves GET /ws/rooms/{room}. It expects identity.Middleware
// to have verified the join token.
type WebSocketHandler struct {
	hub           *Hub
	worker        Joiner
	allowedOrigin string
	isDev         bool
	limit         rate.Limit
	burst         int
	logger        *slog.Logger
}

// NewWebSocketHandler creates a handler.
func NewWebSocketHandler(cfg HandlerConfig) *WebSocketHandler {
	if cfg.EventsPerSecond <= 0 {
		cfg.EventsPerSecond = defaultEventsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:           cfg.Hub,
		worker:        cfg.Worker,
		allowedOrigin: cfg.AllowedOrigin,
		isDev:         cfg.IsDev,
		limit:         rate.Limit(cfg.EventsPerSecond),
		burst:         cfg.Burst,
		logger:        cfg.Logger,
	}
}

// inbound is a frame sent by a participant.
type inbound struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	IsFinal    *bool  `json:"is_final,omitempty"`
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	participant := identity.ParticipantFromContext(r.Context())
	h.logger.Info("WebSocket connection request", "room", room, "participant", participant, "ip", identity.IPFromRequest(r))

	if participant == "" || identity.RoomFromContext(r.Context()) != room {
		http.Error(w, `{"error":"token not valid for this room"}`, http.StatusForbidden)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "room", room)
		return
	}
	ws.SetReadLimit(maxFrameBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "room", room)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.hub.Register(room, participant, ws)
	// A replaced connection leaves the session to its successor.
	defer func() {
		if h.hub.Unregister(room, participant, ws) {
			h.worker.Leave(room, participant)
		}
	}()

	if err := h.writeJSON(ctx, ws, map[string]string{"type": "joined", "room": room, "participant": participant}); err != nil {
		h.logger.Debug("Failed to send joined acknowledgment", "error", err)
		return
	}

	sess, err := h.worker.Join(ctx, room, participant)
	if err != nil {
		h.logger.Error("Failed to join agent session", "room", room, "error", err)
		_ = h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "agent_unavailable"})
		return
	}

	frames := make(chan inbound, pendingFrames)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.processLoop(ctx, ws, sess, participant, frames)
	}()

	h.readLoop(ctx, ws, room, participant, frames)
	close(frames)
	cancel()
	<-done
	h.logger.Info("Room connection ended", "room", room, "participant", participant)
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
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// readLoop reads frames until the connection ends or an end frame arrives.
// Conversation frames are queued for processLoop so pings stay responsive
// while a turn runs.
func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, room, participant string, frames chan<- inbound) {
	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed", "room", room, "participant", participant)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "room", room)
			}
			return
		}

		if !limiter.Allow() {
			h.logger.Warn("Inbound frame rate limited", "room", room, "participant", participant)
			_ = h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "rate_limited"})
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "invalid_frame"})
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				h.logger.Debug("Failed to send pong", "error", err)
			}
		case "end":
			h.logger.Info("Participant ended session", "room", room, "participant", participant)
			_ = h.writeJSON(ctx, ws, map[string]string{"type": "ended"})
			return
		case "utterance", "user_input", "user_input_transcribed":
			select {
			case frames <- msg:
			default:
				_ = h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "busy"})
			}
		default:
			_ = h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "unknown_type"})
		}
	}
}

func (h *WebSocketHandler) processLoop(ctx context.Context, ws *websocket.Conn, sess *agent.Session, participant string, frames <-chan inbound) {
	for msg := range frames {
		var err error
		switch msg.Type {
		case "utterance":
			if text := strings.TrimSpace(msg.Text); text != "" {
				err = sess.HandleUtterance(ctx, participant, text)
			}
		case "user_input":
			if text := strings.TrimSpace(msg.Text); text != "" {
				err = sess.HandleUserInput(ctx, participant, text)
			}
		case "user_input_transcribed":
			final := msg.IsFinal == nil || *msg.IsFinal
			if text := strings.TrimSpace(msg.Transcript); text != "" {
				err = sess.HandleTranscript(ctx, participant, text, final)
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, agent.ErrSessionClosed), errors.Is(err, context.Canceled):
			return
		default:
			h.logger.Error("Turn failed", "room", sess.Room(), "participant", participant, "error", err)
			_ = h.writeJSON(ctx, ws, map[string]string{"type": "error", "error": "agent_unavailable"})
		}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
