package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

// EvictReason explains why a room was dropped from the store.
type EvictReason string

const (
	// EvictIdle means the room saw no access for longer than the TTL.
	EvictIdle EvictReason = "idle"
	// EvictCapacity means the room was the least recently used when the cap was reached.
	EvictCapacity EvictReason = "capacity"
)

// EvictCallback is called after a room has been evicted. It runs outside the store lock.
type EvictCallback func(roomID string, reason EvictReason)

// Options configures a Store.
type Options struct {
	// TTL evicts rooms idle for longer than this. Zero disables idle eviction.
	TTL time.Duration
	// MaxRooms caps the number of rooms held. Zero means unbounded.
	MaxRooms int
	// Now overrides the clock, for tests.
	Now    func() time.Time
	Logger *slog.Logger
}

type entry struct {
	roomID   string
	state    *State
	lastSeen time.Time
}

// Store is the registry of room states, keyed by room identifier.
// GetOrCreate and Clear are the only operations that add or remove rooms.
type Store struct {
	mu       sync.Mutex
	rooms    map[string]*list.Element // roomID -> element holding *entry
	lru      *list.List               // front is most recently used
	ttl      time.Duration
	maxRooms int
	now      func() time.Time
	onEvict  EvictCallback
	logger   *slog.Logger
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		rooms:    make(map[string]*list.Element),
		lru:      list.New(),
		ttl:      opts.TTL,
		maxRooms: opts.MaxRooms,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// SetEvictCallback registers the callback invoked for every evicted room.
func (s *Store) SetEvictCallback(cb EvictCallback) {
	s.mu.Lock()
	s.onEvict = cb
	s.mu.Unlock()
}

// GetOrCreate returns the state for roomID, creating a default one on first access.
// Every call counts as activity for idle eviction.
func (s *Store) GetOrCreate(roomID string) *State {
	var evicted []string

	s.mu.Lock()
	if el, ok := s.rooms[roomID]; ok {
		e := el.Value.(*entry)
		e.lastSeen = s.now()
		s.lru.MoveToFront(el)
		s.mu.Unlock()
		return e.state
	}

	e := &entry{roomID: roomID, state: NewState(), lastSeen: s.now()}
	s.rooms[roomID] = s.lru.PushFront(e)
	if s.maxRooms > 0 {
		for s.lru.Len() > s.maxRooms {
			oldest := s.lru.Back()
			victim := oldest.Value.(*entry)
			s.lru.Remove(oldest)
			delete(s.rooms, victim.roomID)
			evicted = append(evicted, victim.roomID)
		}
	}
	cb := s.onEvict
	s.mu.Unlock()

	s.logger.Debug("Session state created", "room", roomID)
	s.notify(cb, evicted, EvictCapacity)
	return e.state
}

// Get returns the state for roomID without creating it or refreshing its activity.
func (s *Store) Get(roomID string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry).state, true
}

// Clear removes the state for roomID. It is a no-op for unknown rooms.
func (s *Store) Clear(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.rooms[roomID]; ok {
		s.lru.Remove(el)
		delete(s.rooms, roomID)
	}
}

// Len returns the number of rooms held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// Rooms returns the room identifiers, most recently used first.
func (s *Store) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, s.lru.Len())
	for el := s.lru.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).roomID)
	}
	return out
}

// Sweep evicts rooms idle for longer than the TTL and returns how many were dropped.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var evicted []string
	// The list is ordered by recency, so idle rooms are all at the back.
	for el := s.lru.Back(); el != nil; {
		e := el.Value.(*entry)
		if e.lastSeen.After(cutoff) {
			break
		}
		prev := el.Prev()
		s.lru.Remove(el)
		delete(s.rooms, e.roomID)
		evicted = append(evicted, e.roomID)
		el = prev
	}
	cb := s.onEvict
	s.mu.Unlock()

	s.notify(cb, evicted, EvictIdle)
	return len(evicted)
}

func (s *Store) notify(cb EvictCallback, rooms []string, reason EvictReason) {
	for _, roomID := range rooms {
		s.logger.Info("Session state evicted", "room", roomID, "reason", reason)
		if cb != nil {
			cb(roomID, reason)
		}
	}
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		s.logger.Info("Session sweeper disabled", "ttl", s.ttl, "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		s.logger.Info("Session sweeper started", "interval", interval, "ttl", s.ttl)

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Info("Session sweeper cleanup completed", "evicted", n, "remaining", s.Len())
				}
			case <-ctx.Done():
				s.logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
