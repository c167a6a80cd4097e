package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/convoguide/internal/domain"
	"github.com/ashureev/convoguide/internal/llm"
	"github.com/ashureev/convoguide/internal/persona"
	"github.com/ashureev/convoguide/internal/session"
)

// scriptedResponder plays fixed persona behavior through the hooks.
type scriptedResponder struct {
	ack   string
	tools []string
	reply string
	err   error
	turns []persona.Turn
}

func (r *scriptedResponder) Respond(_ context.Context, turn persona.Turn, hooks persona.Hooks) (persona.Reply, error) {
	r.turns = append(r.turns, turn)
	if r.err != nil {
		return persona.Reply{}, r.err
	}
	if r.ack != "" && hooks.OnSpeech != nil {
		hooks.OnSpeech(r.ack)
	}
	if len(r.tools) > 0 && hooks.OnToolsExecuted != nil {
		execs := make([]persona.ToolExecution, 0, len(r.tools))
		for _, name := range r.tools {
			execs = append(execs, persona.ToolExecution{Name: name, Output: "styled"})
		}
		hooks.OnToolsExecuted(execs)
	}
	return persona.Reply{Text: r.reply}, nil
}

func newTestSession(resp Responder, st *session.State) *Session {
	return NewSession(SessionConfig{
		Room:         "room-1",
		Persona:      resp,
		State:        func() *session.State { return st },
		HistoryTurns: 2,
	})
}

func recordEvents(s *Session) *[]Event {
	var events []Event
	rec := func(_ context.Context, ev Event) { events = append(events, ev) }
	for _, t := range []EventType{EventUserInput, EventUserInputTranscribed, EventSpeechCreated, EventFunctionToolsExecuted} {
		s.On(t, rec)
	}
	return &events
}

func TestSessionRejectsInputBeforeStartAndAfterClose(t *testing.T) {
	t.Parallel()

	s := newTestSession(&scriptedResponder{}, session.NewState())
	if err := s.HandleUserInput(context.Background(), "p", "hi"); !errors.Is(err, ErrSessionNotStarted) {
		t.Fatalf("expected ErrSessionNotStarted, got %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Close()
	s.Close()
	if err := s.HandleUtterance(context.Background(), "p", "hi"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("restart after close should fail, got %v", err)
	}
}

func TestUtteranceEmitsEventsInOrder(t *testing.T) {
	t.Parallel()

	resp := &scriptedResponder{ack: "Oh fun!", tools: []string{"humor_style"}, reply: "Haha, here you go."}
	st := session.NewState()
	s := newTestSession(resp, st)
	events := recordEvents(s)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := s.HandleUtterance(context.Background(), "alice", "tell me a joke"); err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}

	var types []EventType
	for _, ev := range *events {
		types = append(types, ev.Type())
	}
	want := []EventType{
		EventUserInput,
		EventUserInputTranscribed,
		EventSpeechCreated,
		EventFunctionToolsExecuted,
		EventSpeechCreated,
	}
	if len(types) != len(want) {
		t.Fatalf("got events %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d = %s, want %s (all: %v)", i, types[i], want[i], types)
		}
	}

	tools := (*events)[3].(FunctionToolsExecutedEvent)
	if len(tools.FunctionCalls) != 1 || tools.FunctionCalls[0].ToolName() != "humor_style" {
		t.Fatalf("unexpected tool event: %+v", tools)
	}
	if got := (*events)[4].(SpeechCreatedEvent).Text; got != "Haha, here you go." {
		t.Fatalf("unexpected final speech %q", got)
	}
}

func TestTurnCarriesStateContextAndHistory(t *testing.T) {
	t.Parallel()

	resp := &scriptedResponder{reply: "ok"}
	st := session.NewState()
	if err := st.UpdateMode(domain.ModeDebate); err != nil {
		t.Fatal(err)
	}
	s := newTestSession(resp, st)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"one", "two", "three"} {
		if err := s.HandleTranscript(context.Background(), "alice", text, true); err != nil {
			t.Fatalf("turn %q failed: %v", text, err)
		}
	}

	last := resp.turns[2]
	if last.StateContext != "Current mode: debate. Topic: general. Recent moods: none observed." {
		t.Fatalf("unexpected context %q", last.StateContext)
	}
	if len(last.History) != 4 || last.History[0].Content != "one" {
		t.Fatalf("unexpected history passed to turn: %+v", last.History)
	}

	hist := s.History()
	if len(hist) != 4 || hist[0].Content != "two" || hist[3].Role != llm.RoleAssistant {
		t.Fatalf("history should keep the last 2 exchanges, got %+v", hist)
	}
}

func TestInterimTranscriptDoesNotRunTurn(t *testing.T) {
	t.Parallel()

	resp := &scriptedResponder{reply: "ok"}
	s := newTestSession(resp, session.NewState())
	events := recordEvents(s)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := s.HandleTranscript(context.Background(), "alice", "tell me", false); err != nil {
		t.Fatal(err)
	}
	if len(resp.turns) != 0 {
		t.Fatal("interim transcript must not run a turn")
	}
	if len(*events) != 1 || (*events)[0].Type() != EventUserInputTranscribed {
		t.Fatalf("unexpected events %v", *events)
	}
}

func TestPersonaFailurePropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("model down")
	s := newTestSession(&scriptedResponder{err: boom}, session.NewState())
	events := recordEvents(s)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := s.HandleTranscript(context.Background(), "alice", "hello", true); !errors.Is(err, boom) {
		t.Fatalf("expected persona error, got %v", err)
	}
	for _, ev := range *events {
		if ev.Type() == EventSpeechCreated {
			t.Fatal("no speech expected when the turn fails")
		}
	}
	if len(s.History()) != 0 {
		t.Fatal("failed turn must not be remembered")
	}
}
