// Package api provides HTTP handlers for the ConvoGuide API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/convoguide/internal/session"
)

// RoomCloser ends the live agent session of a room.
type RoomCloser interface {
	CloseRoom(room string)
	Participants(room string) []string
	ActiveRooms() int
}

// ConnCloser drops the realtime connections of a room.
type ConnCloser interface {
	CloseRoom(room string)
}

// HealthChecker reports whether the generation backend can serve requests.
type HealthChecker interface {
	Health(ctx context.Context) error
}

const defaultHealthCheckTimeout = 5 * time.Second

// Config wires a Handler.
type Config struct {
	Store       *session.Store
	Worker      RoomCloser
	Hub         ConnCloser
	TokenSecret []byte
	TokenTTL    time.Duration
	PublicURL   string
	Backend     string
	// BackendHealth is optional; backends without a health check report "ok".
	BackendHealth      HealthChecker
	HealthCheckTimeout time.Duration
	Now                func() time.Time
	Logger             *slog.Logger
}

// Handler serves the REST surface.
type Handler struct {
	store       *session.Store
	worker      RoomCloser
	hub         ConnCloser
	tokenSecret []byte
	tokenTTL    time.Duration
	publicURL   string
	backend     string
	health      HealthChecker
	healthWait  time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = defaultHealthCheckTimeout
	}
	return &Handler{
		store:       cfg.Store,
		worker:      cfg.Worker,
		hub:         cfg.Hub,
		tokenSecret: cfg.TokenSecret,
		tokenTTL:    cfg.TokenTTL,
		publicURL:   cfg.PublicURL,
		backend:     cfg.Backend,
		health:      cfg.BackendHealth,
		healthWait:  cfg.HealthCheckTimeout,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/token", h.IssueToken)
		r.Get("/rooms/{room}", h.GetRoom)
		r.Delete("/rooms/{room}", h.DeleteRoom)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health reports liveness, how many rooms are held and whether the
// generation backend is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":       "healthy",
		"backend":      h.backend,
		"rooms":        h.store.Len(),
		"active_rooms": h.worker.ActiveRooms(),
		"checks":       map[string]string{"api": "ok", "backend": "ok"},
	}
	statusCode := http.StatusOK

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.healthWait)
		defer cancel()
		if err := h.health.Health(ctx); err != nil {
			h.logger.Error("Health check failed", "backend", h.backend, "error", err)
			status["status"] = "degraded"
			status["checks"].(map[string]string)["backend"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		}
	}

	JSON(w, statusCode, status)
}
