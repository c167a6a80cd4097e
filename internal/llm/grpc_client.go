package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// Generation sidecar methods. Messages are google.protobuf.Struct on both sides,
// so no generated stubs are needed.
const (
	generateMethod = "/convoguide.llm.v1.Generation/Generate"
	chatMethod     = "/convoguide.llm.v1.Generation/Chat"
)

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
	errNotServing               = errors.New("generation service not serving")
)

// GrpcClientConfig holds configuration for the generation sidecar client.
type GrpcClientConfig struct {
	Address          string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultGrpcClientConfig returns default configuration.
func DefaultGrpcClientConfig() GrpcClientConfig {
	return GrpcClientConfig{
		Address:          "localhost:50051",
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   60 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GrpcClient is a Backend that delegates generation to a sidecar over gRPC.
type GrpcClient struct {
	conn           *grpc.ClientConn
	health         healthpb.HealthClient
	addr           string
	requestTimeout time.Duration
	logger         *slog.Logger
}

var _ Backend = (*GrpcClient)(nil)

// NewGrpcClient connects to the generation sidecar and fails fast if it is unreachable.
func NewGrpcClient(addr string, logger *slog.Logger) (*GrpcClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := DefaultGrpcClientConfig()
	if addr != "" {
		cfg.Address = addr
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	conn, err := grpc.NewClient(cfg.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to generation service at %s: %w", cfg.Address, err)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := waitForReady(connectCtx, conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close gRPC connection after readiness failure", "error", closeErr)
		}
		return nil, fmt.Errorf("generation service at %s not ready: %w", cfg.Address, err)
	}

	logger.Info("Connected to generation service", "address", cfg.Address)

	return &GrpcClient{
		conn:           conn,
		health:         healthpb.NewHealthClient(conn),
		addr:           cfg.Address,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Close closes the gRPC connection.
func (c *GrpcClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Health checks the sidecar through the standard gRPC health service.
func (c *GrpcClient) Health(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", errNotServing, resp.GetStatus())
	}
	return nil
}

// Generate implements Generator.
func (c *GrpcClient) Generate(ctx context.Context, req Request) (string, error) {
	in, err := structpb.NewStruct(map[string]any{
		"system":      req.System,
		"user":        req.User,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	return out.GetFields()["text"].GetStringValue(), nil
}

// Chat implements ChatModel.
func (c *GrpcClient) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	in, err := encodeChatRequest(req)
	if err != nil {
		return ChatResult{}, fmt.Errorf("encode chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, chatMethod, in, out); err != nil {
		return ChatResult{}, fmt.Errorf("chat request failed: %w", err)
	}

	res := decodeChatResult(out)
	if res.Text == "" && len(res.ToolCalls) == 0 {
		return ChatResult{}, ErrEmptyResponse
	}
	return res, nil
}

func encodeChatRequest(req ChatRequest) (*structpb.Struct, error) {
	messages := make([]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		}
		if m.ToolName != "" {
			msg["tool_name"] = m.ToolName
		}
		if len(m.ToolCalls) > 0 {
			msg["tool_calls"] = encodeToolCalls(m.ToolCalls)
		}
		messages = append(messages, msg)
	}

	tools := make([]any, 0, len(req.Tools))
	for _, t := range req.Tools {
		params := make([]any, 0, len(t.Params))
		for _, p := range t.Params {
			enum := make([]any, 0, len(p.Enum))
			for _, v := range p.Enum {
				enum = append(enum, v)
			}
			params = append(params, map[string]any{
				"name":        p.Name,
				"description": p.Description,
				"required":    p.Required,
				"enum":        enum,
			})
		}
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"params":      params,
		})
	}

	return structpb.NewStruct(map[string]any{
		"system":      req.System,
		"messages":    messages,
		"tools":       tools,
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})
}

func encodeToolCalls(calls []ToolCall) []any {
	out := make([]any, 0, len(calls))
	for _, call := range calls {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		out = append(out, map[string]any{"name": call.Name, "args": args})
	}
	return out
}

func decodeChatResult(s *structpb.Struct) ChatResult {
	fields := s.GetFields()
	res := ChatResult{Text: fields["text"].GetStringValue()}
	for _, v := range fields["tool_calls"].GetListValue().GetValues() {
		call := v.GetStructValue()
		if call == nil {
			continue
		}
		name := call.GetFields()["name"].GetStringValue()
		if name == "" {
			continue
		}
		res.ToolCalls = append(res.ToolCalls, ToolCall{
			Name: name,
			Args: call.GetFields()["args"].GetStructValue().AsMap(),
		})
	}
	return res
}
