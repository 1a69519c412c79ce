// internal/input/speech.go
//
// Voice channel: supervises a continuous speech recognizer and turns trigger
// phrases into zone-implicit pop attempts.
//
// Recognizer lifecycle:
//   start  → listening
//   result → transcript checked against the trigger phrase
//   end    → restart after RestartDelay while enabled
//   error  → "aborted" restarts like end; permission errors and anything else
//            stop the channel until it is toggled off and on again
//
// A nil recognizer means speech is unsupported; the other channels keep working.

package input

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventKind is a recognizer lifecycle event.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventResult EventKind = "result"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

// Recognizer error codes with special handling.
const (
	ErrCodeAborted            = "aborted"
	ErrCodeNotAllowed         = "not-allowed"
	ErrCodeServiceNotAllowed  = "service-not-allowed"
	DefaultSpeechRestartDelay = 800 * time.Millisecond
)

// RecognizerEvent is emitted by a Recognizer.
type RecognizerEvent struct {
	Kind       EventKind `json:"kind"`
	Transcript string    `json:"transcript,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Recognizer is a continuous speech recognizer.
// Start may fail; Events is never closed while the recognizer is in use.
type Recognizer interface {
	Start() error
	Stop()
	Events() <-chan RecognizerEvent
}

// SpeechStatus is the observable state of the voice channel.
type SpeechStatus struct {
	Supported bool   `json:"supported"`
	Enabled   bool   `json:"enabled"`
	Listening bool   `json:"listening"`
	Error     string `json:"error,omitempty"`
}

var triggerRe = regexp.MustCompile(`\b(bubble|pop)\b`)

// MatchesTrigger reports whether a transcript contains the trigger phrase.
func MatchesTrigger(transcript string) bool {
	return triggerRe.MatchString(strings.ToLower(strings.TrimSpace(transcript)))
}

// SpeechOptions configures a Speech channel.
type SpeechOptions struct {
	RestartDelay time.Duration
	OnStatus     func(SpeechStatus) // called after every status change, outside locks
}

// Speech is the supervised voice channel.
type Speech struct {
	rec    Recognizer
	sink   Sink
	delay  time.Duration
	notify func(SpeechStatus)
	now    func() time.Time

	mu        sync.Mutex
	enabled   bool
	listening bool
	failed    bool // terminal error; cleared by re-enabling
	denied    bool // permission refused; reported as unsupported until re-enabled
	errMsg    string
	restart   *time.Timer

	closeOnce sync.Once
	done      chan struct{}
}

// NewSpeech wraps rec. The channel starts disabled.
func NewSpeech(rec Recognizer, sink Sink, opts SpeechOptions) *Speech {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultSpeechRestartDelay
	}
	s := &Speech{
		rec:    rec,
		sink:   sink,
		delay:  opts.RestartDelay,
		notify: opts.OnStatus,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	if rec != nil {
		go s.loop()
	}
	return s
}

// Status returns the current channel status.
func (s *Speech) Status() SpeechStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Speech) statusLocked() SpeechStatus {
	return SpeechStatus{
		Supported: s.rec != nil && !s.denied,
		Enabled:   s.enabled,
		Listening: s.listening,
		Error:     s.errMsg,
	}
}

// SetEnabled turns continuous listening on or off. Turning it on again after
// a terminal error clears the error and retries.
func (s *Speech) SetEnabled(on bool) error {
	if s.rec == nil {
		if on {
			return ErrUnsupported
		}
		return nil
	}
	s.mu.Lock()
	if s.closed() {
		s.mu.Unlock()
		return nil
	}
	if on == s.enabled && !(on && s.failed) {
		s.mu.Unlock()
		return nil
	}
	s.enabled = on
	s.stopTimerLocked()
	if on {
		s.failed = false
		s.denied = false
		s.errMsg = ""
		s.mu.Unlock()
		s.start()
		return nil
	}
	s.listening = false
	s.mu.Unlock()
	s.rec.Stop()
	s.emit()
	return nil
}

// Close stops the recognizer and suppresses any pending restart.
func (s *Speech) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.enabled = false
		s.listening = false
		s.stopTimerLocked()
		s.mu.Unlock()
		if s.rec != nil {
			s.rec.Stop()
		}
	})
}

func (s *Speech) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Speech) loop() {
	events := s.rec.Events()
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handle(ev)
		}
	}
}

func (s *Speech) handle(ev RecognizerEvent) {
	switch ev.Kind {
	case EventStart:
		s.mu.Lock()
		s.listening = true
		s.errMsg = ""
		s.mu.Unlock()
		s.emit()

	case EventResult:
		s.mu.Lock()
		active := s.enabled && !s.failed
		s.mu.Unlock()
		if active && MatchesTrigger(ev.Transcript) {
			log.Debug().Str("source", string(SourceVoice)).Str("transcript", ev.Transcript).Msg("trigger phrase")
			s.sink.Submit(PopAttempt{Source: SourceVoice, At: s.now()})
		}

	case EventError:
		s.mu.Lock()
		switch ev.Error {
		case ErrCodeAborted:
			s.scheduleRestartLocked()
		case ErrCodeNotAllowed, ErrCodeServiceNotAllowed:
			s.failed = true
			s.denied = true
			s.listening = false
			s.errMsg = "Microphone access denied. Allow microphone access to use voice commands."
			s.stopTimerLocked()
		default:
			s.failed = true
			s.listening = false
			s.errMsg = "Speech recognition error: " + ev.Error
			s.stopTimerLocked()
		}
		s.mu.Unlock()
		log.Warn().Str("error", ev.Error).Msg("speech recognizer error")
		s.emit()

	case EventEnd:
		s.mu.Lock()
		s.listening = false
		s.scheduleRestartLocked()
		s.mu.Unlock()
		s.emit()
	}
}

func (s *Speech) scheduleRestartLocked() {
	if !s.enabled || s.failed || s.closed() || s.restart != nil {
		return
	}
	s.restart = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		s.restart = nil
		ok := s.enabled && !s.failed && !s.closed()
		s.mu.Unlock()
		if ok {
			s.start()
		}
	})
}

func (s *Speech) stopTimerLocked() {
	if s.restart != nil {
		s.restart.Stop()
		s.restart = nil
	}
}

// start calls the recognizer outside the lock; an adapter may deliver events
// synchronously from Start. A failed start is terminal until re-enabled.
func (s *Speech) start() {
	if err := s.rec.Start(); err != nil {
		s.mu.Lock()
		s.failed = true
		s.listening = false
		s.errMsg = "Could not start speech recognition: " + err.Error()
		s.mu.Unlock()
		log.Warn().Err(err).Msg("speech recognizer start")
	}
	s.emit()
}

func (s *Speech) emit() {
	if s.notify == nil {
		return
	}
	s.notify(s.Status())
}
