package inference

import (
	"testing"

	"github.com/ashureev/convoguide/internal/domain"
)

func TestInferMode(t *testing.T) {
	t.Parallel()

	c := NewKeywordClassifier()
	tests := []struct {
		name   string
		text   string
		want   domain.Mode
		wantOK bool
	}{
		{name: "humor keyword", text: "Roast my cooking", want: domain.ModeHumor, wantOK: true},
		{name: "humor phrase", text: "please make me laugh", want: domain.ModeHumor, wantOK: true},
		{name: "humor beats serious", text: "tell me a joke, but seriously", want: domain.ModeHumor, wantOK: true},
		{name: "serious", text: "I want an honest answer", want: domain.ModeSerious, wantOK: true},
		{name: "serious beats empathetic", text: "honestly I feel awful", want: domain.ModeSerious, wantOK: true},
		{name: "empathetic", text: "I'm stressed about work", want: domain.ModeEmpathetic, wantOK: true},
		{name: "empathetic beats creative", text: "I feel like I need to imagine a better job", want: domain.ModeEmpathetic, wantOK: true},
		{name: "creative", text: "Tell me a story about dragons", want: domain.ModeCreative, wantOK: true},
		{name: "creative beats debate", text: "what if we argue about it", want: domain.ModeCreative, wantOK: true},
		{name: "debate", text: "Play devil's advocate for me", want: domain.ModeDebate, wantOK: true},
		{name: "case insensitive", text: "CONVINCE ME", want: domain.ModeDebate, wantOK: true},
		{name: "substring inside word", text: "the crusade continues", want: domain.ModeEmpathetic, wantOK: true},
		{name: "no signal", text: "hello there", wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := c.InferMode(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("InferMode(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("InferMode(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestInferMood(t *testing.T) {
	t.Parallel()

	c := NewKeywordClassifier()
	tests := []struct {
		name   string
		text   string
		want   domain.Mood
		wantOK bool
	}{
		{name: "anxious", text: "I'm so nervous", want: domain.MoodAnxious, wantOK: true},
		{name: "anxious beats sad", text: "stressed and sad", want: domain.MoodAnxious, wantOK: true},
		{name: "sad", text: "feeling blue", want: domain.MoodSad, wantOK: true},
		{name: "frustrated", text: "this is so annoying, I'm annoyed", want: domain.MoodFrustrated, wantOK: true},
		{name: "excited beats playful", text: "lol that's great", want: domain.MoodExcited, wantOK: true},
		{name: "confused", text: "I don't understand this", want: domain.MoodConfused, wantOK: true},
		{name: "tired", text: "totally burnt out", want: domain.MoodTired, wantOK: true},
		{name: "playful", text: "haha nice", want: domain.MoodPlayful, wantOK: true},
		{name: "substring inside word", text: "download the app", want: domain.MoodSad, wantOK: true},
		{name: "no signal", text: "what time is it", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := c.InferMood(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("InferMood(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("InferMood(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestModeAndMoodAreIndependent(t *testing.T) {
	t.Parallel()

	c := NewKeywordClassifier()
	text := "I feel so sad today"

	mode, ok := c.InferMode(text)
	if !ok || mode != domain.ModeEmpathetic {
		t.Fatalf("expected empathetic mode, got %q (ok=%v)", mode, ok)
	}
	mood, ok := c.InferMood(text)
	if !ok || mood != domain.MoodSad {
		t.Fatalf("expected sad mood, got %q (ok=%v)", mood, ok)
	}
}
