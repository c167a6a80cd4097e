package style

import "context"

// HumorInput are the inputs of the humor transformer.
type HumorInput struct {
	BaseMessage         string
	ConversationContext string
	HumorLevel          string // subtle, moderate or goofy; empty means subtle
}

// EmpathyInput are the inputs of the empathy transformer.
type EmpathyInput struct {
	BaseMessage         string
	ConversationContext string
	EmotionHint         string
}

// SeriousInput are the inputs of the serious transformer.
type SeriousInput struct {
	BaseMessage         string
	ConversationContext string
	Focus               string // analysis, advice or step_by_step
}

// StoryweaverInput are the inputs of the storyweaver transformer.
type StoryweaverInput struct {
	Prompt    string
	StoryGoal string // empty means tiny_scene
}

// CreativityInput are the inputs of the creativity transformer.
type CreativityInput struct {
	Prompt     string
	OutputType string
}

// DebateInput are the inputs of the debate transformer.
type DebateInput struct {
	Topic  string
	Goal   string
	Stance string
}

// ClarityInput are the inputs of the clarity transformer.
type ClarityInput struct {
	BaseMessage string
	TargetLevel string // empty means adult
}

// Humor rewrites a reply with light humor at the requested level.
func (r *Registry) Humor(ctx context.Context, in HumorInput) (string, error) {
	return r.Invoke(ctx, ToolHumor, map[string]any{
		"base_message":         in.BaseMessage,
		"conversation_context": in.ConversationContext,
		"humor_level":          in.HumorLevel,
	})
}

// Empathy rewrites a reply to acknowledge the listener's feelings.
func (r *Registry) Empathy(ctx context.Context, in EmpathyInput) (string, error) {
	return r.Invoke(ctx, ToolEmpathy, map[string]any{
		"base_message":         in.BaseMessage,
		"conversation_context": in.ConversationContext,
		"emotion_hint":         in.EmotionHint,
	})
}

// Serious rewrites a reply in a focused, plain register.
func (r *Registry) Serious(ctx context.Context, in SeriousInput) (string, error) {
	return r.Invoke(ctx, ToolSerious, map[string]any{
		"base_message":         in.BaseMessage,
		"conversation_context": in.ConversationContext,
		"focus":                in.Focus,
	})
}

// Storyweaver turns a prompt into a short spoken story.
func (r *Registry) Storyweaver(ctx context.Context, in StoryweaverInput) (string, error) {
	return r.Invoke(ctx, ToolStoryweaver, map[string]any{
		"prompt":     in.Prompt,
		"story_goal": in.StoryGoal,
	})
}

// Creativity produces a poem, idea list or other creative piece from a prompt.
func (r *Registry) Creativity(ctx context.Context, in CreativityInput) (string, error) {
	return r.Invoke(ctx, ToolCreativity, map[string]any{
		"prompt":      in.Prompt,
		"output_type": in.OutputType,
	})
}

// Debate argues a stance on a topic toward the given goal.
func (r *Registry) Debate(ctx context.Context, in DebateInput) (string, error) {
	return r.Invoke(ctx, ToolDebate, map[string]any{
		"topic":  in.Topic,
		"goal":   in.Goal,
		"stance": in.Stance,
	})
}

// Clarity simplifies a reply for the target audience level.
func (r *Registry) Clarity(ctx context.Context, in ClarityInput) (string, error) {
	return r.Invoke(ctx, ToolClarity, map[string]any{
		"base_message": in.BaseMessage,
		"target_level": in.TargetLevel,
	})
}
