package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GenAIConfig selects the Gemini API or Vertex AI.
type GenAIConfig struct {
	Model    string
	APIKey   string
	Project  string
	Location string
}

// GenAIClient is a Backend on top of google.golang.org/genai.
type GenAIClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

var _ Backend = (*GenAIClient)(nil)

// NewGenAIClient creates a client. An API key selects the Gemini API; otherwise
// project and location select Vertex AI.
func NewGenAIClient(ctx context.Context, cfg GenAIConfig, logger *slog.Logger) (*GenAIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("genai backend needs GOOGLE_API_KEY or GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_LOCATION")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	logger.Info("GenAI client ready", "model", cfg.Model, "backend", cc.Backend)
	return &GenAIClient{client: client, model: cfg.Model, logger: logger}, nil
}

// Generate implements Generator.
func (c *GenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, generationConfig(req.System, req.Temperature, req.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("genai generate content: %w", err)
	}
	return res.Text(), nil
}

// Chat implements ChatModel using Gemini function calling.
func (c *GenAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	cfg := generationConfig(req.System, req.Temperature, req.MaxTokens)
	if len(req.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(req.Tools)}}
	}

	res, err := c.client.Models.GenerateContent(ctx, c.model, chatContents(req.Messages), cfg)
	if err != nil {
		return ChatResult{}, fmt.Errorf("genai chat: %w", err)
	}

	out := ChatResult{Text: res.Text()}
	for _, fc := range res.FunctionCalls() {
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: fc.Name, Args: fc.Args})
	}
	if out.Text == "" && len(out.ToolCalls) == 0 {
		return ChatResult{}, ErrEmptyResponse
	}
	return out, nil
}

// Close is a no-op; the genai client holds no closable resources.
func (c *GenAIClient) Close() error {
	return nil
}

func generationConfig(system string, temperature float32, maxTokens int32) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

func functionDeclarations(tools []ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Params)),
		}
		for _, p := range t.Params {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func chatContents(messages []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(call.Name, call.Args))
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			part := genai.NewPartFromFunctionResponse(m.ToolName, map[string]any{"output": m.Content})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents
}
