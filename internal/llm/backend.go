package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend kinds accepted by NewBackend.
const (
	KindGenAI = "genai"
	KindGrpc  = "grpc"
	KindStub  = "stub"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind          string
	GenAI         GenAIConfig
	GeneratorAddr string
}

// NewBackend builds the configured backend.
func NewBackend(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Kind {
	case KindGenAI:
		c, err := NewGenAIClient(ctx, cfg.GenAI, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindGrpc:
		c, err := NewGrpcClient(cfg.GeneratorAddr, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case KindStub, "":
		logger.Warn("Using stub text generation backend; replies are echoes")
		return NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Kind)
	}
}
