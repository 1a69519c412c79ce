// internal/game/machine.go
//
// Game state machine: the single authority that turns a pop attempt into a new
// state.
//
// Resolution:
//   - Target with a letter id (pointer path) → that letter, if still in flight.
//   - Zone-implicit target → first letter inside the buffered pop window whose
//     letter equals the next needed one.
//
// Correctness is decided by position in the word, never by the letter's
// IsCorrect flag. A resolved letter is always consumed, right or wrong.
//
// State transitions:
//   playing → playing   (pop, reset)
//   playing → complete  (last letter popped)
//   complete is terminal until Reset or a new word.

package game

import (
	"fmt"
	"strings"
)

// Outcome describes what an attempt did.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"   // session complete, or letter no longer in flight
	OutcomeNoTarget  Outcome = "no_target" // zone attempt with nothing eligible
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeCompleted Outcome = "completed" // correct, and the word is now spelled
)

// Target names the letter an attempt is aimed at. An empty LetterID means
// "whatever is poppable in the drop zone".
type Target struct {
	LetterID string
}

// ZoneImplicit reports whether the target leaves resolution to the machine.
func (t Target) ZoneImplicit() bool { return t.LetterID == "" }

// Result reports the outcome of one attempt.
type Result struct {
	Outcome Outcome        `json:"outcome"`
	Letter  *FallingLetter `json:"letter,omitempty"`
}

// Machine applies pop attempts, resets and hints.
type Machine struct {
	cfg Config
	gen *Generator
	fb  Feedback
}

// NewMachine returns a Machine. gen is used for the replacement spawn after a
// correct pop; fb receives the audio/speech side effects.
func NewMachine(cfg Config, gen *Generator, fb Feedback) *Machine {
	if fb == nil {
		fb = NopFeedback{}
	}
	return &Machine{cfg: cfg, gen: gen, fb: fb}
}

// Attempt resolves one pop attempt against s and returns the next state.
// s itself is never modified.
func (m *Machine) Attempt(s *State, layout Layout, t Target) (*State, Result) {
	if s.IsComplete {
		return s, Result{Outcome: OutcomeIgnored}
	}

	letter, ok := m.resolve(s, layout, t)
	if !ok {
		if t.ZoneImplicit() {
			// Spoken only: no letter was consumed, so no tone.
			m.fb.Speak("Incorrect letter")
			return s, Result{Outcome: OutcomeNoTarget}
		}
		return s, Result{Outcome: OutcomeIgnored}
	}

	next := s.clone()
	next.FallingLetters = without(s.FallingLetters, letter.ID)

	if !IsCorrectLetter(letter.Letter, s.CurrentWord, s.CurrentLetterIndex) {
		m.fb.PlaySound(SoundIncorrect)
		m.fb.Speak("Incorrect letter")
		return next, Result{Outcome: OutcomeIncorrect, Letter: &letter}
	}

	m.fb.PlaySound(SoundCorrect)
	m.fb.Speak("Letter " + strings.ToUpper(letter.Letter))

	next.CurrentLetterIndex++
	next.Score += m.cfg.Reward
	if next.CurrentLetterIndex >= len(next.TargetLetters) {
		next.IsComplete = true
		m.fb.PlaySound(SoundComplete)
		m.fb.Speak(fmt.Sprintf("Congratulations! You spelled %s!", next.CurrentWord))
		return next, Result{Outcome: OutcomeCompleted, Letter: &letter}
	}

	if m.cfg.ReplaceOnPop && m.gen != nil && layout.Width > 0 {
		next.FallingLetters = append(next.FallingLetters,
			m.gen.NewLetter(layout.Width, next.CurrentWord, next.CurrentLetterIndex))
	}
	return next, Result{Outcome: OutcomeCorrect, Letter: &letter}
}

// resolve finds the letter an attempt is aimed at.
func (m *Machine) resolve(s *State, layout Layout, t Target) (FallingLetter, bool) {
	if !t.ZoneImplicit() {
		return s.Find(t.LetterID)
	}
	needed := s.NextLetter()
	for _, l := range s.FallingLetters {
		if Eligible(l, layout.DropZone) && strings.EqualFold(l.Letter, needed) {
			return l, true
		}
	}
	return FallingLetter{}, false
}

// Reset keeps the word but zeroes progress and clears the letters.
func (m *Machine) Reset(s *State) *State {
	return &State{
		CurrentWord:    s.CurrentWord,
		TargetLetters:  s.TargetLetters,
		FallingLetters: []FallingLetter{},
	}
}

// Hint speaks the letter currently needed.
func (m *Machine) Hint(s *State) {
	if next := s.NextLetter(); next != "" {
		m.fb.Speak("The next letter is " + strings.ToUpper(next))
	}
}

// Announce introduces a new word.
func (m *Machine) Announce(s *State) {
	m.fb.Speak(fmt.Sprintf("New word: %s. Catch the letters to spell it out!", s.CurrentWord))
}

// IsCorrectLetter reports whether letter is the one needed at index of word.
func IsCorrectLetter(letter, word string, index int) bool {
	if index < 0 || index >= len(word) {
		return false
	}
	return strings.EqualFold(letter, word[index:index+1])
}
