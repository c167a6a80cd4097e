// Package style implements the stylistic rewriting capabilities the persona can
// invoke. Each transformer is a single text-generation call with a fixed role
// prompt and fixed sampling parameters.
package style

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ashureev/convoguide/internal/llm"
)

// ErrInvalidArguments is returned when a required field is missing or a hint is
// outside its allowed values.
var ErrInvalidArguments = errors.New("invalid transformer arguments")

// TransformerError reports a failed generation call inside a transformer.
type TransformerError struct {
	Transformer string
	Cause       error
}

func (e *TransformerError) Error() string {
	return fmt.Sprintf("style transformer %s failed: %v", e.Transformer, e.Cause)
}

func (e *TransformerError) Unwrap() error {
	return e.Cause
}

// field describes one labeled input of a transformer.
type field struct {
	name        string
	description string
	required    bool
	enum        []string
	def         string
}

// Transformer is one style capability.
type Transformer struct {
	name        string
	description string
	system      string
	fields      []field
	directive   string
	temperature float32
	maxTokens   int32

	// fallbackField names the input echoed back on empty output; when empty,
	// fallbackText is used instead.
	fallbackField string
	fallbackText  string
}

// Name returns the tool name the persona uses to invoke the transformer.
func (t *Transformer) Name() string { return t.name }

// Temperature returns the sampling temperature.
func (t *Transformer) Temperature() float32 { return t.temperature }

// MaxTokens returns the output length bound.
func (t *Transformer) MaxTokens() int32 { return t.maxTokens }

// Spec describes the transformer as a tool for the chat model.
func (t *Transformer) Spec() llm.ToolSpec {
	params := make([]llm.Param, 0, len(t.fields))
	for _, f := range t.fields {
		desc := f.description
		if f.def != "" {
			desc += ". Default: " + f.def
		}
		params = append(params, llm.Param{
			Name:        f.name,
			Description: desc,
			Required:    f.required,
			Enum:        slices.Clone(f.enum),
		})
	}
	return llm.ToolSpec{Name: t.name, Description: t.description, Params: params}
}

// Resolve validates raw arguments and applies defaults. Unknown keys are ignored.
func (t *Transformer) Resolve(args map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(t.fields))
	for _, f := range t.fields {
		raw, present := args[f.name]
		var value string
		if present && raw != nil {
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s must be a string, got %T", ErrInvalidArguments, t.name, f.name, raw)
			}
			value = s
		}

		if f.required && (!present || raw == nil) {
			return nil, fmt.Errorf("%w: %s requires %s", ErrInvalidArguments, t.name, f.name)
		}
		if value == "" {
			value = f.def
		}
		if len(f.enum) > 0 && (value != "" || f.required) && !slices.Contains(f.enum, value) {
			return nil, fmt.Errorf("%w: %s.%s must be one of %s, got %q",
				ErrInvalidArguments, t.name, f.name, strings.Join(f.enum, ", "), value)
		}
		out[f.name] = value
	}
	return out, nil
}

// Content renders resolved inputs as labeled blocks followed by the directive.
// Optional fields without a default are omitted when empty.
func (t *Transformer) Content(in map[string]string) string {
	blocks := make([]string, 0, len(t.fields)+1)
	for _, f := range t.fields {
		v := in[f.name]
		if v == "" && !f.required && f.def == "" {
			continue
		}
		blocks = append(blocks, f.name+": "+v)
	}
	blocks = append(blocks, t.directive)
	return strings.Join(blocks, "\n\n")
}

// Fallback returns the text used when generation produces nothing.
func (t *Transformer) Fallback(in map[string]string) string {
	if t.fallbackField != "" {
		return in[t.fallbackField]
	}
	return t.fallbackText
}

// Run validates args, makes one generation call, and returns the cleaned output.
func (t *Transformer) Run(ctx context.Context, gen llm.Generator, args map[string]any) (string, error) {
	in, err := t.Resolve(args)
	if err != nil {
		return "", err
	}

	text, err := gen.Generate(ctx, llm.Request{
		System:      t.system,
		User:        t.Content(in),
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	})
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		return "", &TransformerError{Transformer: t.name, Cause: err}
	}

	if out := trimFraming(text); out != "" {
		return out, nil
	}
	return t.Fallback(in), nil
}

// trimFraming strips surrounding whitespace, code fences, and wrapping quotes.
func trimFraming(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag on the opening fence line.
		if first, rest, ok := strings.Cut(s, "\n"); ok && !strings.ContainsAny(strings.TrimSpace(first), " \t") {
			s = rest
		}
		s = strings.TrimSpace(s)
	}
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			inner := s[len(q[0]) : len(s)-len(q[1])]
			if !strings.Contains(inner, q[0]) && !strings.Contains(inner, q[1]) {
				s = strings.TrimSpace(inner)
			}
			break
		}
	}
	return s
}
