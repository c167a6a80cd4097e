package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/convoguide/internal/llm"
	"github.com/ashureev/convoguide/internal/persona"
	"github.com/ashureev/convoguide/internal/session"
)

// DefaultHistoryTurns is how many user/agent exchanges a session remembers.
const DefaultHistoryTurns = 12

var (
	ErrSessionClosed     = errors.New("session closed")
	ErrSessionNotStarted = errors.New("session not started")
)

// Responder produces the persona's reply for one turn.
type Responder interface {
	Respond(ctx context.Context, turn persona.Turn, hooks persona.Hooks) (persona.Reply, error)
}

var _ Responder = (*persona.Persona)(nil)

// SessionConfig configures a Session.
type SessionConfig struct {
	Room         string
	Persona      Responder
	State        func() *session.State
	HistoryTurns int
	ConvLog      ConversationLogger
	Logger       *slog.Logger
}

// Session is the live conversation of one room. It emits events to registered
// handlers and runs persona turns one at a time.
type Session struct {
	room       string
	persona    Responder
	state      func() *session.State
	maxHistory int
	convLog    ConversationLogger
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[EventType][]Handler
	started  bool
	closed   bool

	turnMu  sync.Mutex
	history []llm.Message
}

// NewSession creates a Session. Handlers should be attached before Start.
func NewSession(cfg SessionConfig) *Session {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.ConvLog == nil {
		cfg.ConvLog = noopConversationLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		room:       cfg.Room,
		persona:    cfg.Persona,
		state:      cfg.State,
		maxHistory: cfg.HistoryTurns * 2,
		convLog:    cfg.ConvLog,
		logger:     cfg.Logger.With("room", cfg.Room),
		handlers:   make(map[EventType][]Handler),
	}
}

// Room returns the room the session belongs to.
func (s *Session) Room() string { return s.room }

// On registers h for events of type t. Handlers run in registration order.
func (s *Session) On(t EventType, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = append(s.handlers[t], h)
}

// Start marks the session live.
func (s *Session) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.started = true
	s.logger.Info("Agent session started")
	return nil
}

// Close stops accepting input. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.logger.Info("Agent session closed")
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Session) live() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.closed:
		return ErrSessionClosed
	case !s.started:
		return ErrSessionNotStarted
	}
	return nil
}

// Emit delivers ev to the handlers registered for its type.
func (s *Session) Emit(ctx context.Context, ev Event) {
	s.mu.RLock()
	hs := append([]Handler(nil), s.handlers[ev.Type()]...)
	s.mu.RUnlock()

	for _, h := range hs {
		h(ctx, ev)
	}
}

// HandleUserInput emits a user_input event for raw text.
func (s *Session) HandleUserInput(ctx context.Context, participant, text string) error {
	if err := s.live(); err != nil {
		return err
	}
	s.Emit(ctx, UserInputEvent{Text: text})
	return nil
}

// HandleTranscript emits a user_input_transcribed event; a final transcript
// also runs a persona turn.
func (s *Session) HandleTranscript(ctx context.Context, participant, transcript string, isFinal bool) error {
	if err := s.live(); err != nil {
		return err
	}
	s.Emit(ctx, UserInputTranscribedEvent{Transcript: transcript, IsFinal: isFinal})
	if !isFinal {
		return nil
	}
	return s.runTurn(ctx, participant, transcript)
}

// HandleUtterance treats text as both raw input and its final transcript.
func (s *Session) HandleUtterance(ctx context.Context, participant, text string) error {
	if err := s.HandleUserInput(ctx, participant, text); err != nil {
		return err
	}
	return s.HandleTranscript(ctx, participant, text, true)
}

// History returns a copy of the remembered conversation.
func (s *Session) History() []llm.Message {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return append([]llm.Message(nil), s.history...)
}

func (s *Session) runTurn(ctx context.Context, participant, text string) error {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.convLog.Log(ConversationLogEvent{
		Room:        s.room,
		Participant: participant,
		Direction:   "inbound",
		EventType:   "user_transcript",
		ContentRaw:  text,
	})

	turn := persona.Turn{
		Room:         s.room,
		UserText:     text,
		History:      append([]llm.Message(nil), s.history...),
		StateContext: s.state().ContextString(),
	}
	hooks := persona.Hooks{
		OnSpeech: func(t string) { s.speak(ctx, t) },
		OnToolsExecuted: func(execs []persona.ToolExecution) {
			calls := make([]FunctionCall, 0, len(execs))
			for _, e := range execs {
				calls = append(calls, FunctionCall{Name: e.Name, Arguments: e.Args})
				s.convLog.Log(ConversationLogEvent{
					Room:       s.room,
					Direction:  "internal",
					EventType:  "tool_executed",
					Tool:       e.Name,
					ContentRaw: e.Output,
				})
			}
			s.Emit(ctx, FunctionToolsExecutedEvent{FunctionCalls: calls})
		},
	}

	reply, err := s.persona.Respond(ctx, turn, hooks)
	if err != nil {
		s.logger.Error("Persona turn failed", "error", err)
		return fmt.Errorf("agent turn: %w", err)
	}

	s.history = append(s.history, llm.Message{Role: llm.RoleUser, Content: text})
	if reply.Text != "" {
		s.speak(ctx, reply.Text)
		s.history = append(s.history, llm.Message{Role: llm.RoleAssistant, Content: reply.Text})
	}
	if over := len(s.history) - s.maxHistory; over > 0 {
		s.history = append([]llm.Message(nil), s.history[over:]...)
	}
	return nil
}

func (s *Session) speak(ctx context.Context, text string) {
	s.convLog.Log(ConversationLogEvent{
		Room:       s.room,
		Direction:  "outbound",
		EventType:  "agent_speech",
		ContentRaw: text,
	})
	s.Emit(ctx, SpeechCreatedEvent{Text: text})
}
