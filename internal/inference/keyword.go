// Package inference maps free-form user utterances to a conversational mode and mood.
package inference

import (
	"strings"

	"github.com/ashureev/convoguide/internal/domain"
)

// Classifier infers at most one mode and at most one mood from an utterance.
// A false result means no signal was found; it is never an error.
type Classifier interface {
	InferMode(text string) (domain.Mode, bool)
	InferMood(text string) (domain.Mood, bool)
}

type modeRule struct {
	mode    domain.Mode
	phrases []string
}

type moodRule struct {
	mood    domain.Mood
	phrases []string
}

// KeywordClassifier scans lower-cased text for fixed phrases.
// Matching is plain substring containment, so "sad" also matches inside longer words.
// Rules are checked in order and the first rule with a hit wins.
type KeywordClassifier struct {
	modes []modeRule
	moods []moodRule
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier returns a classifier with the built-in phrase tables.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		modes: defaultModeRules(),
		moods: defaultMoodRules(),
	}
}

func defaultModeRules() []modeRule {
	return []modeRule{
		{mode: domain.ModeHumor, phrases: []string{
			"roast", "joke", "funny", "make me laugh", "tell me something funny", "be silly", "goofy",
		}},
		{mode: domain.ModeSerious, phrases: []string{
			"serious", "honest answer", "no jokes", "be real", "straight answer", "honestly",
		}},
		{mode: domain.ModeEmpathetic, phrases: []string{
			"i'm stressed", "i feel", "overwhelmed", "anxious", "sad", "frustrated",
			"i'm struggling", "hard time", "i'm upset", "feeling down",
		}},
		{mode: domain.ModeCreative, phrases: []string{
			"tell me a story", "story about", "imagine", "what if", "invent",
			"creative", "brainstorm", "wild ideas", "give me ideas",
		}},
		{mode: domain.ModeDebate, phrases: []string{
			"convince me", "argue", "devil's advocate", "debate", "pros and cons",
			"other side", "counterargument", "challenge",
		}},
	}
}

func defaultMoodRules() []moodRule {
	return []moodRule{
		{mood: domain.MoodAnxious, phrases: []string{"anxious", "worried", "nervous", "stressed"}},
		{mood: domain.MoodSad, phrases: []string{"sad", "down", "depressed", "blue"}},
		{mood: domain.MoodFrustrated, phrases: []string{"frustrated", "annoyed", "irritated", "angry"}},
		{mood: domain.MoodExcited, phrases: []string{"excited", "happy", "great", "amazing"}},
		{mood: domain.MoodConfused, phrases: []string{"confused", "lost", "don't understand"}},
		{mood: domain.MoodTired, phrases: []string{"tired", "exhausted", "burnt out"}},
		{mood: domain.MoodPlayful, phrases: []string{"playful", "joking", "haha", "lol", "lmao"}},
	}
}

// InferMode returns the first mode whose phrase set matches text.
func (c *KeywordClassifier) InferMode(text string) (domain.Mode, bool) {
	lower := strings.ToLower(text)
	for _, rule := range c.modes {
		if containsAny(lower, rule.phrases) {
			return rule.mode, true
		}
	}
	return "", false
}

// InferMood returns the first mood whose phrase set matches text.
func (c *KeywordClassifier) InferMood(text string) (domain.Mood, bool) {
	lower := strings.ToLower(text)
	for _, rule := range c.moods {
		if containsAny(lower, rule.phrases) {
			return rule.mood, true
		}
	}
	return "", false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
