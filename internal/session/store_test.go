package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/convoguide/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestContextStringFreshState(t *testing.T) {
	t.Parallel()

	got := NewState().ContextString()
	want := "Current mode: casual. Topic: general. Recent moods: none observed."
	if got != want {
		t.Fatalf("ContextString() = %q, want %q", got, want)
	}
}

func TestContextStringShowsLastThreeMoods(t *testing.T) {
	t.Parallel()

	s := NewState()
	for _, m := range []domain.Mood{"a", "b", "c", "d"} {
		s.LogMood(m)
	}
	if err := s.UpdateMode(domain.ModeDebate); err != nil {
		t.Fatalf("UpdateMode failed: %v", err)
	}
	s.SetTopic("space travel")

	got := s.ContextString()
	want := "Current mode: debate. Topic: space travel. Recent moods: b, c, d."
	if got != want {
		t.Fatalf("ContextString() = %q, want %q", got, want)
	}
}

func TestLogMoodKeepsMostRecentTen(t *testing.T) {
	t.Parallel()

	s := NewState()
	for i := 1; i <= 11; i++ {
		s.LogMood(domain.Mood(fmt.Sprintf("m%d", i)))
	}

	history := s.MoodHistory()
	if len(history) != MaxMoodHistory {
		t.Fatalf("expected %d moods, got %d", MaxMoodHistory, len(history))
	}
	if history[0] != "m2" || history[len(history)-1] != "m11" {
		t.Fatalf("expected m2..m11, got %v", history)
	}
}

func TestUpdateModeRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	s := NewState()
	err := s.UpdateMode(domain.Mode("sarcastic"))
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	if s.Mode() != domain.ModeCasual {
		t.Fatalf("mode changed to %q after rejected update", s.Mode())
	}
}

func TestMoodHistoryReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.LogMood(domain.MoodSad)
	h := s.MoodHistory()
	h[0] = domain.MoodExcited

	if got := s.MoodHistory()[0]; got != domain.MoodSad {
		t.Fatalf("history mutated through copy: %q", got)
	}
}

func TestGetOrCreateReturnsSameInstance(t *testing.T) {
	t.Parallel()

	store := NewStore(Options{})
	first := store.GetOrCreate("R1")
	if err := first.UpdateMode(domain.ModeHumor); err != nil {
		t.Fatalf("UpdateMode failed: %v", err)
	}
	first.LogMood(domain.MoodPlayful)

	again := store.GetOrCreate("R1")
	if again != first {
		t.Fatal("expected the same state instance for R1")
	}
	if again.Mode() != domain.ModeHumor {
		t.Fatalf("expected humor mode, got %q", again.Mode())
	}
}

func TestClearThenGetOrCreateReturnsFreshState(t *testing.T) {
	t.Parallel()

	store := NewStore(Options{})
	first := store.GetOrCreate("R1")
	if err := first.UpdateMode(domain.ModeSerious); err != nil {
		t.Fatalf("UpdateMode failed: %v", err)
	}

	store.Clear("R1")
	store.Clear("never-created")

	fresh := store.GetOrCreate("R1")
	if fresh == first {
		t.Fatal("expected a new state instance after Clear")
	}
	if fresh.Mode() != domain.ModeCasual {
		t.Fatalf("expected casual mode, got %q", fresh.Mode())
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	t.Parallel()

	store := NewStore(Options{})
	if err := store.GetOrCreate("a").UpdateMode(domain.ModeDebate); err != nil {
		t.Fatalf("UpdateMode failed: %v", err)
	}
	if got := store.GetOrCreate("b").Mode(); got != domain.ModeCasual {
		t.Fatalf("room b leaked mode %q", got)
	}
}

func TestSweepEvictsIdleRooms(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(Options{TTL: time.Minute, Now: clock.Now})

	var mu sync.Mutex
	var evicted []string
	store.SetEvictCallback(func(roomID string, reason EvictReason) {
		mu.Lock()
		defer mu.Unlock()
		if reason != EvictIdle {
			t.Errorf("unexpected reason %q", reason)
		}
		evicted = append(evicted, roomID)
	})

	store.GetOrCreate("old")
	clock.Advance(45 * time.Second)
	store.GetOrCreate("new")
	clock.Advance(30 * time.Second)

	if n := store.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := store.Get("old"); ok {
		t.Fatal("expected idle room to be evicted")
	}
	if _, ok := store.Get("new"); !ok {
		t.Fatal("expected recent room to survive")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Fatalf("unexpected eviction callbacks: %v", evicted)
	}
}

func TestGetOrCreateRefreshesActivity(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(Options{TTL: time.Minute, Now: clock.Now})

	store.GetOrCreate("busy")
	clock.Advance(50 * time.Second)
	store.GetOrCreate("busy")
	clock.Advance(50 * time.Second)

	if n := store.Sweep(); n != 0 {
		t.Fatalf("expected no eviction, got %d", n)
	}
}

func TestMaxRoomsEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	store := NewStore(Options{MaxRooms: 2})
	var evicted []string
	store.SetEvictCallback(func(roomID string, reason EvictReason) {
		if reason != EvictCapacity {
			t.Errorf("unexpected reason %q", reason)
		}
		evicted = append(evicted, roomID)
	})

	store.GetOrCreate("a")
	store.GetOrCreate("b")
	store.GetOrCreate("a")
	store.GetOrCreate("c")

	if store.Len() != 2 {
		t.Fatalf("expected 2 rooms, got %d", store.Len())
	}
	if _, ok := store.Get("b"); ok {
		t.Fatal("expected least recently used room b to be evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("unexpected evictions: %v", evicted)
	}
	if rooms := store.Rooms(); rooms[0] != "c" || rooms[1] != "a" {
		t.Fatalf("unexpected recency order: %v", rooms)
	}
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewStore(Options{Now: clock.Now})
	store.GetOrCreate("a")
	clock.Advance(24 * time.Hour)

	if n := store.Sweep(); n != 0 {
		t.Fatalf("expected sweep to be disabled, evicted %d", n)
	}
}

func TestConcurrentMutationKeepsInvariants(t *testing.T) {
	t.Parallel()

	store := NewStore(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := store.GetOrCreate("shared")
			s.LogMood(domain.Mood(fmt.Sprintf("m%d", i)))
			_ = s.UpdateMode(domain.Modes[i%len(domain.Modes)])
			_ = s.ContextString()
		}(i)
	}
	wg.Wait()

	s := store.GetOrCreate("shared")
	if n := len(s.MoodHistory()); n != MaxMoodHistory {
		t.Fatalf("expected %d moods, got %d", MaxMoodHistory, n)
	}
	if !s.Mode().Valid() {
		t.Fatalf("invalid mode after concurrent updates: %q", s.Mode())
	}
}
