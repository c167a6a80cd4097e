// Package llm is the boundary to external text generation.
// The rest of the server only sees Generator and ChatModel; the backends live here.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned by backends when the model produced no text and no tool calls.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Request is a single-shot completion request.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int32
}

// Generator produces one completion for a fixed instruction and user content.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a chat transcript sent to a ChatModel.
// Assistant messages may carry the tool calls they requested; tool messages
// carry the result of one call in Content and the call name in ToolName.
type Message struct {
	Role      Role
	Content   string
	ToolName  string
	ToolCalls []ToolCall
}

// Param describes one string argument of a tool.
type Param struct {
	Name        string
	Description string
	Required    bool
	Enum        []string
}

// ToolSpec describes a capability the model may invoke.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// ToolCall is a capability invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ChatRequest asks a ChatModel for the next assistant step.
type ChatRequest struct {
	System      string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float32
	MaxTokens   int32
}

// ChatResult is the next assistant step: text, zero or more tool calls, or both.
type ChatResult struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatModel selects tools and writes replies. It is the persona's decision seam:
// given the available capabilities it returns zero or more invocations.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResult, error)
}

// Backend is a text-generation service usable for both transformers and the persona.
type Backend interface {
	Generator
	ChatModel
	Close() error
}
