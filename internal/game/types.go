// internal/game/types.go
//
// Core type definitions for the falling-letter game.
// Defines:
//   - FallingLetter: one in-flight letter entity.
//   - State: the authoritative gameplay state of one word session.
//   - Sound / Feedback: the audio collaborator contract used on pops.
//
// State values are treated as immutable once committed: every transition
// (engine step, pop, reset) builds a new *State and leaves the old one intact,
// so a committed snapshot can be handed to any reader without copying.

package game

import "strings"

// FallingLetter is one letter entity moving down the game area.
type FallingLetter struct {
	ID         string  `json:"id"`         // unique for the entity lifetime
	Letter     string  `json:"letter"`     // single uppercase letter
	X          float64 `json:"x"`          // fixed at spawn
	Y          float64 `json:"y"`          // grows every tick
	Speed      float64 `json:"speed"`      // units per tick, constant
	IsCorrect  bool    `json:"isCorrect"`  // letter appears somewhere in the word (presentation only)
	InDropZone bool    `json:"inDropZone"` // tick-level overlap tag (unbuffered)
}

// State holds the gameplay state of a single word session.
type State struct {
	CurrentWord        string          `json:"currentWord"`        // lowercase
	TargetLetters      []string        `json:"targetLetters"`      // CurrentWord split into letters
	CurrentLetterIndex int             `json:"currentLetterIndex"` // next letter needed
	Score              int             `json:"score"`              // 10 per correct pop
	IsComplete         bool            `json:"isComplete"`         // index reached len(TargetLetters)
	FallingLetters     []FallingLetter `json:"fallingLetters"`
}

// Status values reported for a session.
const (
	StatusPlaying  = "playing"
	StatusComplete = "complete"
)

// NewState creates a fresh playing state for word (lowercased).
func NewState(word string) *State {
	word = strings.ToLower(strings.TrimSpace(word))
	return &State{
		CurrentWord:    word,
		TargetLetters:  strings.Split(word, ""),
		FallingLetters: []FallingLetter{},
	}
}

// Status reports the coarse state-machine state.
func (s *State) Status() string {
	if s.IsComplete {
		return StatusComplete
	}
	return StatusPlaying
}

// NextLetter returns the letter currently needed, or "" once complete.
func (s *State) NextLetter() string {
	if s.CurrentLetterIndex < 0 || s.CurrentLetterIndex >= len(s.TargetLetters) {
		return ""
	}
	return s.TargetLetters[s.CurrentLetterIndex]
}

// Find returns the in-flight letter with the given id.
func (s *State) Find(id string) (FallingLetter, bool) {
	for _, l := range s.FallingLetters {
		if l.ID == id {
			return l, true
		}
	}
	return FallingLetter{}, false
}

// clone returns a shallow copy with its own FallingLetters slice.
// TargetLetters is shared; it never changes for the life of a word.
func (s *State) clone() *State {
	c := *s
	c.FallingLetters = append(make([]FallingLetter, 0, len(s.FallingLetters)+1), s.FallingLetters...)
	return &c
}

// without returns the letters minus the one with the given id.
func without(letters []FallingLetter, id string) []FallingLetter {
	out := make([]FallingLetter, 0, len(letters))
	for _, l := range letters {
		if l.ID != id {
			out = append(out, l)
		}
	}
	return out
}

// Sound names a feedback tone.
type Sound string

const (
	SoundCorrect   Sound = "correct"
	SoundIncorrect Sound = "incorrect"
	SoundComplete  Sound = "complete"
)

// Feedback is the audio/speech collaborator triggered by state transitions.
// Both calls are fire-and-forget.
type Feedback interface {
	PlaySound(kind Sound)
	Speak(text string)
}

// NopFeedback discards all feedback.
type NopFeedback struct{}

func (NopFeedback) PlaySound(Sound) {}
func (NopFeedback) Speak(string)    {}
