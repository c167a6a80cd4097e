package style

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/convoguide/internal/llm"
)

// Tool names as seen by the chat model.
const (
	ToolHumor       = "humor_style"
	ToolEmpathy     = "empathy_style"
	ToolSerious     = "serious_style"
	ToolStoryweaver = "storyweaver_style"
	ToolCreativity  = "creativity_style"
	ToolDebate      = "debate_style"
	ToolClarity     = "clarity_style"
)

// ErrUnknownTransformer is returned for a tool name not in the registry.
var ErrUnknownTransformer = errors.New("unknown style transformer")

func baseMessage(desc string) field {
	return field{name: "base_message", description: desc, required: true}
}

func conversationContext(desc string) field {
	return field{name: "conversation_context", description: desc, required: true}
}

// builtins returns the seven transformers in their presentation order.
func builtins() []*Transformer {
	return []*Transformer{
		{
			name:        ToolHumor,
			description: "Punch up a reply with light, user-appropriate humor, wit, or playful tone.",
			system:      humorPrompt,
			fields: []field{
				baseMessage("The straightforward reply before adding humor"),
				conversationContext("Recent conversation turns for context"),
				{name: "humor_level", description: "Intensity of humor", enum: []string{"subtle", "moderate", "goofy"}, def: "subtle"},
			},
			directive:     "Transform the base_message with the appropriate level of humor.",
			temperature:   0.8,
			maxTokens:     500,
			fallbackField: "base_message",
		},
		{
			name:        ToolEmpathy,
			description: "Transform a reply to be more emotionally attuned and validating while staying honest.",
			system:      empathyPrompt,
			fields: []field{
				baseMessage("The factual/helpful reply to transform"),
				conversationContext("Recent conversation including user feelings"),
				{name: "emotion_hint", description: "Optional emotion label (e.g., sad, anxious, frustrated, excited)"},
			},
			directive:     "Transform the base_message to be more emotionally sensitive and validating.",
			temperature:   0.7,
			maxTokens:     500,
			fallbackField: "base_message",
		},
		{
			name:        ToolSerious,
			description: "Make a reply more grounded, thoughtful, and serious, focusing on clarity and structure.",
			system:      seriousPrompt,
			fields: []field{
				baseMessage("The draft reply to make more serious"),
				conversationContext("Recent conversation for context"),
				{name: "focus", description: "Optional hint for how to structure the response", enum: []string{"analysis", "advice", "step_by_step"}},
			},
			directive:     "Transform the base_message to be more serious and structured.",
			temperature:   0.5,
			maxTokens:     500,
			fallbackField: "base_message",
		},
		{
			name:        ToolStoryweaver,
			description: "Turn ideas into short stories, scenes, or narrative snippets in a chosen style.",
			system:      storyweaverPrompt,
			fields: []field{
				{name: "prompt", description: "High-level idea or situation to narrativize", required: true},
				{name: "story_goal", description: "The type of story to create", enum: []string{"funny_anecdote", "short_fable", "tiny_scene", "character_intro"}, def: "tiny_scene"},
			},
			directive:    "Create a short story or scene that fulfills this goal.",
			temperature:  0.9,
			maxTokens:    800,
			fallbackText: "Once upon a time...",
		},
		{
			name:        ToolCreativity,
			description: "Generate or transform content with extra creativity: ideas, metaphors, names, variations.",
			system:      creativityPrompt,
			fields: []field{
				{name: "prompt", description: "Description of what the user is working on", required: true},
				{name: "output_type", description: "What kind of creative help is needed", required: true, enum: []string{"ideas", "names", "metaphors", "variations", "twists"}},
			},
			directive:    "Generate creative options for this request.",
			temperature:  0.95,
			maxTokens:    600,
			fallbackText: "Here are some ideas...",
		},
		{
			name:        ToolDebate,
			description: "Construct arguments, counterpoints, or balanced pros/cons for a given position.",
			system:      debatePrompt,
			fields: []field{
				{name: "topic", description: "The subject under debate", required: true},
				{name: "goal", description: "How to frame the debate output", required: true, enum: []string{"steelman", "pros_cons", "counterargument"}},
				{name: "stance", description: "Optional side to argue for. If omitted, provide balanced view."},
			},
			directive:    "Construct the requested argumentative content.",
			temperature:  0.6,
			maxTokens:    700,
			fallbackText: "Here's the argument...",
		},
		{
			name:        ToolClarity,
			description: "Simplify or reframe content to be clearer and easier to understand.",
			system:      clarityPrompt,
			fields: []field{
				baseMessage("The content that needs to be clearer"),
				{name: "target_level", description: "Rough audience level to adapt to", enum: []string{"child", "teen", "adult", "expert"}, def: "adult"},
			},
			directive:     "Rewrite the message for clarity at this comprehension level.",
			temperature:   0.5,
			maxTokens:     500,
			fallbackField: "base_message",
		},
	}
}

// Registry holds the style transformers and the generator they share.
type Registry struct {
	gen          llm.Generator
	logger       *slog.Logger
	transformers []*Transformer
	byName       map[string]*Transformer
}

// NewRegistry creates a registry with the seven built-in transformers.
func NewRegistry(gen llm.Generator, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	ts := builtins()
	byName := make(map[string]*Transformer, len(ts))
	for _, t := range ts {
		byName[t.name] = t
	}
	return &Registry{gen: gen, logger: logger, transformers: ts, byName: byName}
}

// Lookup returns the transformer registered under name.
func (r *Registry) Lookup(name string) (*Transformer, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the tool names in presentation order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transformers))
	for _, t := range r.transformers {
		names = append(names, t.name)
	}
	return names
}

// Specs returns the tool descriptions offered to the chat model.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.transformers))
	for _, t := range r.transformers {
		specs = append(specs, t.Spec())
	}
	return specs
}

// Invoke runs the named transformer. Generation failures come back as
// *TransformerError; callers decide whether to substitute Fallback.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTransformer, name)
	}

	out, err := t.Run(ctx, r.gen, args)
	if err != nil {
		return "", err
	}
	r.logger.Debug("Style transformer completed", "tool", name, "chars", len(out))
	return out, nil
}

// Fallback returns the named transformer's fallback text for args. Invalid
// arguments fall back to whatever base text is present.
func (r *Registry) Fallback(name string, args map[string]any) string {
	t, ok := r.byName[name]
	if !ok {
		return ""
	}
	in, err := t.Resolve(args)
	if err != nil {
		in = make(map[string]string, len(args))
		for k, v := range args {
			if s, ok := v.(string); ok {
				in[k] = s
			}
		}
	}
	return t.Fallback(in)
}
