// internal/input/attempt.go
//
// Input channel plumbing shared by every modality.
//
// Four sources funnel into one queue:
//   - pointer: a click on a specific letter (carries its id)
//   - zone:    the on-screen drop-zone button
//   - voice:   a recognized trigger phrase
//   - gesture: a closed-fist rising edge
//
// All but pointer are zone-implicit: they carry no letter id and leave target
// resolution to the state machine, which reads the latest committed state.

package input

import (
	"errors"
	"time"

	"github.com/robalobadob/letterpop/internal/game"
)

// ErrUnsupported reports that a channel's collaborator (recognizer, camera)
// is missing or unusable on this client.
var ErrUnsupported = errors.New("input: unsupported")

// Source identifies the modality behind an attempt.
type Source string

const (
	SourcePointer Source = "pointer"
	SourceZone    Source = "zone"
	SourceVoice   Source = "voice"
	SourceGesture Source = "gesture"
)

// PopAttempt is one request to pop a letter.
type PopAttempt struct {
	Source   Source    `json:"source"`
	LetterID string    `json:"letterId,omitempty"` // empty means zone-implicit
	At       time.Time `json:"at"`
}

// Target converts the attempt into what the state machine resolves.
func (a PopAttempt) Target() game.Target {
	return game.Target{LetterID: a.LetterID}
}

// Sink receives attempts. The session controller is the only production sink.
type Sink interface {
	Submit(PopAttempt)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(PopAttempt)

func (f SinkFunc) Submit(a PopAttempt) { f(a) }
