// Package session keeps per-room conversational state in memory.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashureev/convoguide/internal/domain"
)

// MaxMoodHistory is the number of mood observations retained per room.
const MaxMoodHistory = 10

// contextMoods is how many recent moods are rendered into the model context.
const contextMoods = 3

// ErrInvalidMode is returned when a mode outside the fixed set is applied.
var ErrInvalidMode = errors.New("invalid conversation mode")

// State is the conversational state of one room.
// All methods are safe for concurrent use.
type State struct {
	mu          sync.Mutex
	mode        domain.Mode
	topic       string
	moodHistory []domain.Mood
}

// NewState returns a state in the default mode with no topic or moods.
func NewState() *State {
	return &State{mode: domain.DefaultMode}
}

// Mode returns the current mode.
func (s *State) Mode() domain.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// UpdateMode replaces the current mode.
func (s *State) UpdateMode(mode domain.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}

// Topic returns the current topic, or "" when none is set.
func (s *State) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// SetTopic sets the free-text topic label. An empty topic clears it.
func (s *State) SetTopic(topic string) {
	s.mu.Lock()
	s.topic = topic
	s.mu.Unlock()
}

// LogMood appends a mood observation, keeping only the most recent MaxMoodHistory.
func (s *State) LogMood(mood domain.Mood) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moodHistory = append(s.moodHistory, mood)
	if over := len(s.moodHistory) - MaxMoodHistory; over > 0 {
		trimmed := make([]domain.Mood, MaxMoodHistory)
		copy(trimmed, s.moodHistory[over:])
		s.moodHistory = trimmed
	}
}

// MoodHistory returns a copy of the mood history, oldest first.
func (s *State) MoodHistory() []domain.Mood {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Mood, len(s.moodHistory))
	copy(out, s.moodHistory)
	return out
}

// ContextString renders the state for the language-model context.
// It is the only view of the state that reaches the model.
func (s *State) ContextString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextStringLocked()
}

func (s *State) contextStringLocked() string {
	topic := s.topic
	if topic == "" {
		topic = "general"
	}

	moods := "none observed"
	if n := len(s.moodHistory); n > 0 {
		recent := s.moodHistory[max(0, n-contextMoods):]
		labels := make([]string, len(recent))
		for i, m := range recent {
			labels[i] = string(m)
		}
		moods = strings.Join(labels, ", ")
	}

	return fmt.Sprintf("Current mode: %s. Topic: %s. Recent moods: %s.", s.mode, topic, moods)
}

// Snapshot is a point-in-time copy of a room's state.
type Snapshot struct {
	Mode        domain.Mode   `json:"mode"`
	Topic       string        `json:"topic,omitempty"`
	MoodHistory []domain.Mood `json:"mood_history"`
	Context     string        `json:"context"`
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	moods := make([]domain.Mood, len(s.moodHistory))
	copy(moods, s.moodHistory)
	return Snapshot{
		Mode:        s.mode,
		Topic:       s.topic,
		MoodHistory: moods,
		Context:     s.contextStringLocked(),
	}
}
