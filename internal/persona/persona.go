// Package persona runs the single user-facing conversational identity. Which
// style tools to call is decided by the chat model from the instructions; this
// package only executes the calls and feeds their results back.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/convoguide/internal/llm"
	"github.com/ashureev/convoguide/internal/style"
)

// DefaultMaxToolRounds bounds tool chaining within one turn.
const DefaultMaxToolRounds = 3

// Tools is the capability set offered to the chat model.
type Tools interface {
	Specs() []llm.ToolSpec
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
	Fallback(name string, args map[string]any) string
}

var _ Tools = (*style.Registry)(nil)

// Turn is one user turn.
type Turn struct {
	Room         string
	UserText     string
	History      []llm.Message
	StateContext string
}

// ToolExecution is one executed tool call and what it returned to the model.
type ToolExecution struct {
	Name   string
	Args   map[string]any
	Output string
	Err    error
}

// Hooks receive intermediate events of a turn. Both are optional.
type Hooks struct {
	// OnSpeech receives text the persona says before its tools run.
	OnSpeech func(text string)
	// OnToolsExecuted receives each batch of executed calls.
	OnToolsExecuted func(execs []ToolExecution)
}

// Reply is the outcome of a turn.
type Reply struct {
	Text       string
	Executions []ToolExecution
	Rounds     int
}

// Options configures a Persona.
type Options struct {
	MaxToolRounds int
	Temperature   float32
	MaxTokens     int32
	Logger        *slog.Logger
}

// Persona composes chat model replies with style tool output.
type Persona struct {
	model         llm.ChatModel
	tools         Tools
	maxToolRounds int
	temperature   float32
	maxTokens     int32
	logger        *slog.Logger
}

// New creates a Persona.
func New(model llm.ChatModel, tools Tools, opts Options) *Persona {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 600
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Persona{
		model:         model,
		tools:         tools,
		maxToolRounds: opts.MaxToolRounds,
		temperature:   opts.Temperature,
		maxTokens:     opts.MaxTokens,
		logger:        opts.Logger,
	}
}

// Instructions returns the system prompt for a turn with the given session context.
func Instructions(stateContext string) string {
	if stateContext == "" {
		return instructions
	}
	return instructions + "\n\n---\n\n## Session\n\n" + stateContext
}

// Respond runs one turn. Errors from the chat model propagate; tool failures
// are replaced by the tool's fallback text.
func (p *Persona) Respond(ctx context.Context, turn Turn, hooks Hooks) (Reply, error) {
	messages := make([]llm.Message, 0, len(turn.History)+1)
	messages = append(messages, turn.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: turn.UserText})

	system := Instructions(turn.StateContext)
	var reply Reply
	var lastOutput string

	for round := 0; ; round++ {
		req := llm.ChatRequest{
			System:      system,
			Messages:    messages,
			Temperature: p.temperature,
			MaxTokens:   p.maxTokens,
		}
		// The final round offers no tools so the model has to answer in text.
		if round < p.maxToolRounds {
			req.Tools = p.tools.Specs()
		}

		res, err := p.model.Chat(ctx, req)
		if err != nil {
			return Reply{}, fmt.Errorf("persona reply in room %s: %w", turn.Room, err)
		}
		reply.Rounds = round + 1

		text := strings.TrimSpace(res.Text)
		if len(res.ToolCalls) == 0 || round >= p.maxToolRounds {
			if text == "" {
				text = lastOutput
			}
			reply.Text = text
			return reply, nil
		}

		if text != "" && hooks.OnSpeech != nil {
			hooks.OnSpeech(text)
		}
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: text, ToolCalls: res.ToolCalls})

		execs := make([]ToolExecution, 0, len(res.ToolCalls))
		for _, call := range res.ToolCalls {
			exec := p.execute(ctx, turn.Room, call)
			execs = append(execs, exec)
			messages = append(messages, llm.Message{Role: llm.RoleTool, ToolName: call.Name, Content: exec.Output})
			if exec.Err == nil || isTransformerError(exec.Err) {
				lastOutput = exec.Output
			}
		}
		reply.Executions = append(reply.Executions, execs...)

		if hooks.OnToolsExecuted != nil {
			hooks.OnToolsExecuted(execs)
		}
	}
}

func (p *Persona) execute(ctx context.Context, room string, call llm.ToolCall) ToolExecution {
	exec := ToolExecution{Name: call.Name, Args: call.Args}

	out, err := p.tools.Invoke(ctx, call.Name, call.Args)
	switch {
	case err == nil:
		exec.Output = out
	case isTransformerError(err):
		p.logger.Warn("Style transformer failed, using fallback", "room", room, "tool", call.Name, "error", err)
		exec.Err = err
		exec.Output = p.tools.Fallback(call.Name, call.Args)
	default:
		// Bad arguments or an unknown tool go back to the model so it can retry.
		p.logger.Warn("Rejected tool call", "room", room, "tool", call.Name, "error", err)
		exec.Err = err
		exec.Output = "error: " + err.Error()
	}
	return exec
}

func isTransformerError(err error) bool {
	var te *style.TransformerError
	return errors.As(err, &te)
}
