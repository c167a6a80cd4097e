package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ashureev/convoguide/internal/llm"
	"github.com/ashureev/convoguide/internal/style"
)

const (
	mcpServerName    = "convoguide-styles"
	mcpServerVersion = "1.0.0"
)

// StyleTools is the style transformer registry as seen by the MCP endpoint.
type StyleTools interface {
	Specs() []llm.ToolSpec
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	Fallback(name string, args map[string]any) string
}

// NewMCPServer exposes every style transformer as an MCP tool.
func NewMCPServer(tools StyleTools, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(mcpServerName, mcpServerVersion)
	for _, spec := range tools.Specs() {
		s.AddTool(mcpTool(spec), styleToolHandler(tools, spec.Name, logger))
	}
	return s
}

// NewMCPHandler serves the MCP server over streamable HTTP.
func NewMCPHandler(tools StyleTools, logger *slog.Logger) http.Handler {
	return server.NewStreamableHTTPServer(NewMCPServer(tools, logger))
}

func mcpTool(spec llm.ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, p := range spec.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(p.Enum...))
		}
		opts = append(opts, mcp.WithString(p.Name, propOpts...))
	}
	return mcp.NewTool(spec.Name, opts...)
}

func styleToolHandler(tools StyleTools, name string, logger *slog.Logger) server.ToolHandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("Invalid args"), nil
		}

		out, err := tools.Invoke(ctx, name, args)
		var terr *style.TransformerError
		switch {
		case err == nil:
			return mcp.NewToolResultText(out), nil
		case errors.As(err, &terr):
			logger.Warn("Style tool failed, returning fallback", "tool", name, "error", err)
			return mcp.NewToolResultText(tools.Fallback(name, args)), nil
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
}
