package agent

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/convoguide/internal/inference"
	"github.com/ashureev/convoguide/internal/session"
)

// RoomPublisher publishes data to any room.
type RoomPublisher interface {
	PublishData(ctx context.Context, room, topic string, payload []byte) error
}

type roomPublisher struct {
	room string
	pub  RoomPublisher
}

func (p roomPublisher) PublishData(ctx context.Context, topic string, payload []byte) error {
	return p.pub.PublishData(ctx, p.room, topic, payload)
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Store            *session.Store
	Persona          Responder
	Publisher        RoomPublisher
	Classifier       inference.Classifier
	HistoryTurns     int
	BroadcastTimeout time.Duration
	ConvLog          ConversationLogger
	Logger           *slog.Logger
}

type liveRoom struct {
	session      *Session
	bridge       *Bridge
	participants map[string]struct{}
}

// Worker owns the live agent session of every active room. A room's session
// starts with its first participant and closes with its last.
type Worker struct {
	cfg    WorkerConfig
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[string]*liveRoom
}

// NewWorker creates a Worker.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Classifier == nil {
		cfg.Classifier = inference.NewKeywordClassifier()
	}
	if cfg.ConvLog == nil {
		cfg.ConvLog = noopConversationLogger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Worker{
		cfg:    cfg,
		logger: cfg.Logger,
		rooms:  make(map[string]*liveRoom),
	}
}

// Join adds participant to room, starting the room's session if needed, and
// sends the room's current mode so the new participant is in sync.
func (w *Worker) Join(ctx context.Context, room, participant string) (*Session, error) {
	// Resolve state before taking w.mu: creating it may evict another room,
	// and eviction calls back into CloseRoom.
	st := w.cfg.Store.GetOrCreate(room)

	w.mu.Lock()
	lr, ok := w.rooms[room]
	if !ok {
		var err error
		lr, err = w.startRoom(ctx, room, st)
		if err != nil {
			w.mu.Unlock()
			return nil, err
		}
		w.rooms[room] = lr
	}
	lr.participants[participant] = struct{}{}
	w.mu.Unlock()

	w.logger.Info("Participant joined", "room", room, "participant", participant, "created", !ok)

	// Failures are logged inside SendModeUpdate.
	_ = lr.bridge.SendModeUpdate(ctx, st.Mode())
	return lr.session, nil
}

// startRoom must be called with w.mu held.
func (w *Worker) startRoom(ctx context.Context, room string, st *session.State) (*liveRoom, error) {
	w.logger.Info("Connecting to room", "room", room)
	w.logger.Info("Session state initialized", "room", room, "context", st.ContextString())

	stateFn := func() *session.State { return w.cfg.Store.GetOrCreate(room) }

	sess := NewSession(SessionConfig{
		Room:         room,
		Persona:      w.cfg.Persona,
		State:        stateFn,
		HistoryTurns: w.cfg.HistoryTurns,
		ConvLog:      w.cfg.ConvLog,
		Logger:       w.logger,
	})
	bridge := NewBridge(BridgeConfig{
		Room:       room,
		State:      stateFn,
		Publisher:  roomPublisher{room: room, pub: w.cfg.Publisher},
		Classifier: w.cfg.Classifier,
		Timeout:    w.cfg.BroadcastTimeout,
		Logger:     w.logger,
	})
	bridge.Attach(sess)

	if err := sess.Start(ctx); err != nil {
		return nil, err
	}
	w.logger.Info("ConvoGuide agent started and ready for conversation", "room", room)

	return &liveRoom{session: sess, bridge: bridge, participants: make(map[string]struct{})}, nil
}

// Leave removes participant; the session closes when the room is empty.
func (w *Worker) Leave(room, participant string) {
	w.mu.Lock()
	lr, ok := w.rooms[room]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(lr.participants, participant)
	empty := len(lr.participants) == 0
	if empty {
		delete(w.rooms, room)
	}
	w.mu.Unlock()

	w.logger.Info("Participant left", "room", room, "participant", participant, "room_closed", empty)
	if empty {
		w.shutdown(lr)
	}
}

// CloseRoom ends the room's session regardless of participants.
func (w *Worker) CloseRoom(room string) {
	w.mu.Lock()
	lr, ok := w.rooms[room]
	delete(w.rooms, room)
	w.mu.Unlock()

	if ok {
		w.logger.Info("Closing room session", "room", room)
		w.shutdown(lr)
	}
}

// Session returns the live session of room.
func (w *Worker) Session(room string) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	lr, ok := w.rooms[room]
	if !ok {
		return nil, false
	}
	return lr.session, true
}

// Participants returns the sorted participant identities of room.
func (w *Worker) Participants(room string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	lr, ok := w.rooms[room]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(lr.participants))
	for p := range lr.participants {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ActiveRooms returns the number of rooms with a live session.
func (w *Worker) ActiveRooms() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rooms)
}

// Close ends every live session and waits for pending sends.
func (w *Worker) Close() {
	w.mu.Lock()
	rooms := w.rooms
	w.rooms = make(map[string]*liveRoom)
	w.mu.Unlock()

	for _, lr := range rooms {
		w.shutdown(lr)
	}
}

func (w *Worker) shutdown(lr *liveRoom) {
	lr.session.Close()
	lr.bridge.Close()
	w.cfg.ConvLog.CloseRoom(lr.session.Room())
}
