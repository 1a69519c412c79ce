// internal/input/gesture.go
//
// Gesture channel: a closed fist held in front of the camera pops the correct
// letter in the drop zone.
//
// Per frame the classifier yields a fist probability. The channel keeps a
// trailing mean over the last GestureWindow samples and fires exactly once
// per rising edge across GestureThreshold. The edge re-arms when the mean
// falls back to or below the threshold, or when the hand leaves the frame
// (which also clears the history).

package input

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	GestureWindow    = 10
	GestureThreshold = 0.7
)

// Sample is one classified frame.
type Sample struct {
	HandPresent bool
	FistProb    float64
}

// Smoother is a fixed-size trailing mean.
type Smoother struct {
	window int
	buf    []float64
}

// NewSmoother returns a smoother over the last window values.
func NewSmoother(window int) *Smoother {
	if window <= 0 {
		window = 1
	}
	return &Smoother{window: window, buf: make([]float64, 0, window)}
}

// Add pushes v and returns the mean of the retained values.
func (s *Smoother) Add(v float64) float64 {
	if len(s.buf) == s.window {
		copy(s.buf, s.buf[1:])
		s.buf = s.buf[:len(s.buf)-1]
	}
	s.buf = append(s.buf, v)
	var sum float64
	for _, x := range s.buf {
		sum += x
	}
	return sum / float64(len(s.buf))
}

// Reset drops all retained values.
func (s *Smoother) Reset() { s.buf = s.buf[:0] }

// Len reports how many values are retained.
func (s *Smoother) Len() int { return len(s.buf) }

// GestureStatus is the observable state of the gesture channel.
type GestureStatus struct {
	Supported  bool    `json:"supported"`
	Active     bool    `json:"active"`
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Gesture turns smoothed fist probabilities into edge-triggered attempts.
type Gesture struct {
	sink      Sink
	threshold float64
	notify    func(GestureStatus)
	now       func() time.Time

	mu       sync.Mutex
	smoother *Smoother
	enabled  bool
	popped   bool
	status   GestureStatus
}

// NewGesture returns a disabled gesture channel feeding sink. notify, if set,
// receives the status after every change.
func NewGesture(sink Sink, notify func(GestureStatus)) *Gesture {
	return &Gesture{
		sink:      sink,
		threshold: GestureThreshold,
		notify:    notify,
		now:       time.Now,
		smoother:  NewSmoother(GestureWindow),
		status:    GestureStatus{Supported: true},
	}
}

// SetEnabled turns sample processing on or off. Disabling clears the history
// and the edge state.
func (g *Gesture) SetEnabled(on bool) {
	g.mu.Lock()
	g.enabled = on
	g.status.Active = on && g.status.Supported
	if !on {
		g.clearLocked()
	}
	st := g.status
	g.mu.Unlock()
	g.emit(st)
}

// MarkUnsupported records a camera or model failure. The channel stays
// inactive until MarkSupported.
func (g *Gesture) MarkUnsupported(msg string) {
	g.mu.Lock()
	g.status.Supported = false
	g.status.Active = false
	g.status.Error = msg
	g.clearLocked()
	st := g.status
	g.mu.Unlock()
	log.Warn().Str("source", string(SourceGesture)).Str("reason", msg).Msg("gesture channel unavailable")
	g.emit(st)
}

// MarkSupported clears a previous failure.
func (g *Gesture) MarkSupported() {
	g.mu.Lock()
	g.status.Supported = true
	g.status.Error = ""
	g.status.Active = g.enabled
	st := g.status
	g.mu.Unlock()
	g.emit(st)
}

// Status returns the current channel status.
func (g *Gesture) Status() GestureStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Observe feeds one frame. It reports whether the frame fired a pop attempt.
func (g *Gesture) Observe(s Sample) bool {
	g.mu.Lock()
	if !g.enabled || !g.status.Supported {
		g.mu.Unlock()
		return false
	}
	fired := false
	if !s.HandPresent {
		g.clearLocked()
	} else {
		mean := g.smoother.Add(s.FistProb)
		g.status.Confidence = mean
		g.status.Detected = mean > g.threshold
		if g.status.Detected && !g.popped {
			g.popped = true
			fired = true
		} else if !g.status.Detected {
			g.popped = false
		}
	}
	st := g.status
	g.mu.Unlock()

	if fired {
		g.sink.Submit(PopAttempt{Source: SourceGesture, At: g.now()})
	}
	g.emit(st)
	return fired
}

func (g *Gesture) clearLocked() {
	g.smoother.Reset()
	g.popped = false
	g.status.Detected = false
	g.status.Confidence = 0
}

func (g *Gesture) emit(st GestureStatus) {
	if g.notify != nil {
		g.notify(st)
	}
}
