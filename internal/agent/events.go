// Package agent runs the per-room conversational session and bridges its
// events to the front end.
package agent

import "context"

// EventType names a session event.
type EventType string

const (
	EventUserInput             EventType = "user_input"
	EventUserInputTranscribed  EventType = "user_input_transcribed"
	EventSpeechCreated         EventType = "speech_created"
	EventFunctionToolsExecuted EventType = "function_tools_executed"
)

// Event is emitted by a Session.
type Event interface {
	Type() EventType
}

// Handler reacts to a session event. Handlers run on the emitting goroutine
// and must not block.
type Handler func(ctx context.Context, ev Event)

// UserInputEvent carries raw user text.
type UserInputEvent struct {
	Text string
}

func (UserInputEvent) Type() EventType { return EventUserInput }

// UserInputTranscribedEvent carries a speech-to-text transcript.
type UserInputTranscribedEvent struct {
	Transcript string
	IsFinal    bool
}

func (UserInputTranscribedEvent) Type() EventType { return EventUserInputTranscribed }

// SpeechCreatedEvent carries text the agent is about to speak.
type SpeechCreatedEvent struct {
	Text string
}

func (SpeechCreatedEvent) Type() EventType { return EventSpeechCreated }

// FunctionInfo describes the function behind a call.
type FunctionInfo struct {
	Name string
}

// FunctionCall is one executed tool call. The name is carried either directly
// or through FunctionInfo.
type FunctionCall struct {
	Name         string
	FunctionInfo *FunctionInfo
	Arguments    map[string]any
}

// ToolName resolves the call's tool name.
func (c FunctionCall) ToolName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.FunctionInfo != nil {
		return c.FunctionInfo.Name
	}
	return ""
}

// ZippedCall pairs a call with its output.
type ZippedCall struct {
	Call   FunctionCall
	Output string
}

// FunctionToolsExecutedEvent reports a batch of executed tools, either as a flat
// call list or as call/output pairs. A nil slice means the shape is absent.
type FunctionToolsExecutedEvent struct {
	FunctionCalls []FunctionCall
	Zipped        []ZippedCall
}

func (FunctionToolsExecutedEvent) Type() EventType { return EventFunctionToolsExecuted }
