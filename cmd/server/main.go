// ConvoGuide - voice conversation agent server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/convoguide/internal/agent"
	"github.com/ashureev/convoguide/internal/api"
	"github.com/ashureev/convoguide/internal/config"
	"github.com/ashureev/convoguide/internal/identity"
	"github.com/ashureev/convoguide/internal/inference"
	"github.com/ashureev/convoguide/internal/llm"
	"github.com/ashureev/convoguide/internal/middleware"
	"github.com/ashureev/convoguide/internal/persona"
	"github.com/ashureev/convoguide/internal/room"
	"github.com/ashureev/convoguide/internal/session"
	"github.com/ashureev/convoguide/internal/style"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "llm_backend", cfg.LLM.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Generation backend shared by the persona and the style transformers.
	backend, err := llm.NewBackend(ctx, llm.BackendConfig{
		Kind: cfg.LLM.Backend,
		GenAI: llm.GenAIConfig{
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			Project:  cfg.LLM.Project,
			Location: cfg.LLM.Location,
		},
		GeneratorAddr: cfg.LLM.GeneratorAddr,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize LLM backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("Failed to close LLM backend", "error", closeErr)
		}
	}()

	styles := style.NewRegistry(backend, logger)
	guide := persona.New(backend, styles, persona.Options{
		MaxToolRounds: cfg.LLM.MaxToolRounds,
		Logger:        logger,
	})

	store := session.NewStore(session.Options{
		TTL:      cfg.Session.TTL,
		MaxRooms: cfg.Session.MaxRooms,
		Logger:   logger,
	})

	convLog, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := convLog.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	hub := room.NewHub(logger)
	worker := agent.NewWorker(agent.WorkerConfig{
		Store:            store,
		Persona:          guide,
		Publisher:        hub,
		Classifier:       inference.NewKeywordClassifier(),
		HistoryTurns:     cfg.Session.HistoryTurns,
		BroadcastTimeout: cfg.BroadcastTimeout,
		ConvLog:          convLog,
		Logger:           logger,
	})
	defer worker.Close()

	store.SetEvictCallback(func(roomID string, _ session.EvictReason) {
		worker.CloseRoom(roomID)
		hub.CloseRoom(roomID)
		convLog.CloseRoom(roomID)
	})
	store.StartSweeper(ctx, cfg.Session.SweepInterval)

	secret := []byte(cfg.Token.Secret)
	var backendHealth api.HealthChecker
	if hc, ok := backend.(api.HealthChecker); ok {
		backendHealth = hc
	}
	apiHandler := api.NewHandler(api.Config{
		Store:       store,
		Worker:      worker,
		Hub:         hub,
		TokenSecret: secret,
		TokenTTL:    cfg.Token.TTL,
		PublicURL:   cfg.PublicURL,
		Backend:     cfg.LLM.Backend,
		// Only the gRPC sidecar reports health today.
		BackendHealth: backendHealth,
		Logger:        logger,
	})
	wsHandler := room.NewWebSocketHandler(room.HandlerConfig{
		Hub:             hub,
		Worker:          worker,
		AllowedOrigin:   cfg.FrontendURL,
		IsDev:           cfg.IsDevelopment(),
		EventsPerSecond: cfg.RateLimit.EventsPerSecond,
		Burst:           cfg.RateLimit.Burst,
		Logger:          logger,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(middleware.Origins(cfg.FrontendURL)))

	apiHandler.RegisterRoutes(r)

	if cfg.MCPEnabled {
		r.Handle("/mcp", api.NewMCPHandler(styles, logger))
		slog.Info("MCP style tools enabled", "path", "/mcp")
	}

	// WebSocket endpoint, authorized by the join token.
	r.With(identity.Middleware(secret)).Get("/ws/rooms/{room}", wsHandler.ServeHTTP)

	// Note: WebSocket connections require long timeouts (no WriteTimeout)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}
