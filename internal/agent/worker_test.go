package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ashureev/convoguide/internal/domain"
	"github.com/ashureev/convoguide/internal/session"
)

type roomMsg struct {
	room  string
	topic string
	body  []byte
}

type recordingHub struct {
	mu   sync.Mutex
	msgs []roomMsg
}

func (h *recordingHub) PublishData(_ context.Context, room, topic string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, roomMsg{room: room, topic: topic, body: append([]byte(nil), payload...)})
	return nil
}

func (h *recordingHub) modes(t *testing.T, room string) []string {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.msgs {
		if m.room != room || m.topic != domain.TopicModeUpdate {
			continue
		}
		var n domain.ModeChangeNotification
		if err := json.Unmarshal(m.body, &n); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		out = append(out, n.Mode)
	}
	return out
}

func newTestWorker(store *session.Store, hub RoomPublisher, resp Responder) *Worker {
	return NewWorker(WorkerConfig{Store: store, Persona: resp, Publisher: hub})
}

func TestJoinStartsSessionAndSendsInitialMode(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Options{})
	hub := &recordingHub{}
	w := newTestWorker(store, hub, &scriptedResponder{reply: "hey"})
	defer w.Close()

	sess, err := w.Join(context.Background(), "room-a", "alice")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if sess.Room() != "room-a" {
		t.Fatalf("unexpected room %q", sess.Room())
	}
	if got := hub.modes(t, "room-a"); len(got) != 1 || got[0] != "casual" {
		t.Fatalf("expected initial casual mode, got %v", got)
	}
	if store.Len() != 1 {
		t.Fatalf("expected state to be created, store has %d rooms", store.Len())
	}

	again, err := w.Join(context.Background(), "room-a", "bob")
	if err != nil {
		t.Fatal(err)
	}
	if again != sess {
		t.Fatal("second participant should share the room session")
	}
	if got := w.Participants("room-a"); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("unexpected participants %v", got)
	}
}

func TestInitialModeReflectsExistingState(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Options{})
	if err := store.GetOrCreate("room-b").UpdateMode(domain.ModeDebate); err != nil {
		t.Fatal(err)
	}
	hub := &recordingHub{}
	w := newTestWorker(store, hub, &scriptedResponder{})
	defer w.Close()

	if _, err := w.Join(context.Background(), "room-b", "alice"); err != nil {
		t.Fatal(err)
	}
	if got := hub.modes(t, "room-b"); len(got) != 1 || got[0] != "debate" {
		t.Fatalf("expected debate, got %v", got)
	}
}

func TestLeaveClosesSessionWithLastParticipant(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Options{})
	w := newTestWorker(store, &recordingHub{}, &scriptedResponder{})

	sess, _ := w.Join(context.Background(), "room-c", "alice")
	if _, err := w.Join(context.Background(), "room-c", "bob"); err != nil {
		t.Fatal(err)
	}

	w.Leave("room-c", "alice")
	if sess.Closed() {
		t.Fatal("session must stay open while bob is connected")
	}
	w.Leave("room-c", "bob")
	if !sess.Closed() {
		t.Fatal("session should close with the last participant")
	}
	if w.ActiveRooms() != 0 {
		t.Fatalf("expected no active rooms, got %d", w.ActiveRooms())
	}
	if _, ok := store.Get("room-c"); !ok {
		t.Fatal("state outlives the live session until cleared or evicted")
	}

	w.Leave("room-c", "ghost")
}

func TestCloseRoomEndsSession(t *testing.T) {
	t.Parallel()

	w := newTestWorker(session.NewStore(session.Options{}), &recordingHub{}, &scriptedResponder{})
	sess, _ := w.Join(context.Background(), "room-d", "alice")

	w.CloseRoom("room-d")
	if !sess.Closed() {
		t.Fatal("CloseRoom should close the session")
	}
	if _, ok := w.Session("room-d"); ok {
		t.Fatal("room should be gone")
	}
	w.CloseRoom("room-d")
}

func TestUtteranceFlowsThroughBridge(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Options{})
	hub := &recordingHub{}
	resp := &scriptedResponder{ack: "Ooh!", tools: []string{"storyweaver_style"}, reply: "Once upon a time, a cat..."}
	w := newTestWorker(store, hub, resp)

	sess, err := w.Join(context.Background(), "room-e", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.HandleUtterance(context.Background(), "alice", "tell me a story about a cat"); err != nil {
		t.Fatalf("HandleUtterance failed: %v", err)
	}
	w.Close()

	st, _ := store.Get("room-e")
	if st.Mode() != domain.ModeCreative {
		t.Fatalf("expected creative mode from inference, got %s", st.Mode())
	}

	modes := hub.modes(t, "room-e")
	if len(modes) != 3 || modes[0] != "casual" {
		t.Fatalf("expected initial + inference + tool broadcasts, got %v", modes)
	}

	hub.mu.Lock()
	chat := 0
	for _, m := range hub.msgs {
		if m.topic == domain.TopicChat {
			chat++
		}
	}
	hub.mu.Unlock()
	if chat != 3 {
		t.Fatalf("expected transcript, acknowledgment and reply on chat, got %d", chat)
	}
}

func TestEvictionClosesLiveRoom(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Options{MaxRooms: 1})
	w := newTestWorker(store, &recordingHub{}, &scriptedResponder{})
	store.SetEvictCallback(func(room string, _ session.EvictReason) { w.CloseRoom(room) })
	defer w.Close()

	first, _ := w.Join(context.Background(), "room-1", "alice")
	if _, err := w.Join(context.Background(), "room-2", "bob"); err != nil {
		t.Fatal(err)
	}
	if !first.Closed() {
		t.Fatal("evicted room's session should be closed")
	}
	if _, ok := w.Session("room-2"); !ok {
		t.Fatal("new room should be live")
	}
}

type recordingConvLog struct {
	mu       sync.Mutex
	released []string
}

func (l *recordingConvLog) Log(ConversationLogEvent) {}

func (l *recordingConvLog) CloseRoom(room string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, room)
}

func (l *recordingConvLog) Close() error { return nil }

func (l *recordingConvLog) releasedRooms() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.released...)
}

func TestRoomShutdownReleasesConversationLog(t *testing.T) {
	t.Parallel()

	convLog := &recordingConvLog{}
	w := NewWorker(WorkerConfig{
		Store:     session.NewStore(session.Options{}),
		Persona:   &scriptedResponder{},
		Publisher: &recordingHub{},
		ConvLog:   convLog,
	})

	if _, err := w.Join(context.Background(), "room-f", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Join(context.Background(), "room-f", "bob"); err != nil {
		t.Fatal(err)
	}
	w.Leave("room-f", "alice")
	if got := convLog.releasedRooms(); len(got) != 0 {
		t.Fatalf("log must stay open while the room is live, released %v", got)
	}
	w.Leave("room-f", "bob")

	if _, err := w.Join(context.Background(), "room-g", "carol"); err != nil {
		t.Fatal(err)
	}
	w.CloseRoom("room-g")

	got := convLog.releasedRooms()
	if len(got) != 2 || got[0] != "room-f" || got[1] != "room-g" {
		t.Fatalf("expected room-f and room-g released, got %v", got)
	}
}
