// Package domain contains core domain types for the ConvoGuide server.
package domain

// Mode is the coarse stylistic stance the persona projects in a room.
type Mode string

const (
	ModeCasual     Mode = "casual"
	ModeHumor      Mode = "humor"
	ModeSerious    Mode = "serious"
	ModeEmpathetic Mode = "empathetic"
	ModeCreative   Mode = "creative"
	ModeDebate     Mode = "debate"
)

// DefaultMode is the mode of a freshly created room.
const DefaultMode = ModeCasual

// Modes lists every valid mode.
var Modes = []Mode{ModeCasual, ModeHumor, ModeSerious, ModeEmpathetic, ModeCreative, ModeDebate}

// Valid reports whether m is one of the fixed modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeCasual, ModeHumor, ModeSerious, ModeEmpathetic, ModeCreative, ModeDebate:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a wire value into a Mode.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	if !m.Valid() {
		return "", false
	}
	return m, true
}

// Mood is a short descriptor of the user's inferred emotional state.
type Mood string

const (
	MoodAnxious    Mood = "anxious"
	MoodSad        Mood = "sad"
	MoodFrustrated Mood = "frustrated"
	MoodExcited    Mood = "excited"
	MoodConfused   Mood = "confused"
	MoodTired      Mood = "tired"
	MoodPlayful    Mood = "playful"
)
