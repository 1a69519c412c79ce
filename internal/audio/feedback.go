// internal/audio/feedback.go
//
// Service is the game.Feedback implementation: tones go to a CuePlayer,
// speech goes through a single-utterance Voice and, if set, a caption
// callback that runs on the caller's goroutine in call order. All outputs are
// silenced while the player has voice feedback turned off.

package audio

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/letterpop/internal/game"
)

// CuePlayer plays a feedback tone.
type CuePlayer interface {
	Play(kind game.Sound) error
}

// CuePlayerFunc adapts a function to CuePlayer.
type CuePlayerFunc func(kind game.Sound) error

func (f CuePlayerFunc) Play(kind game.Sound) error { return f(kind) }

// Service routes game feedback to audio outputs.
type Service struct {
	player  CuePlayer
	voice   *Voice
	caption func(text string)

	mu      sync.RWMutex
	enabled bool
}

var _ game.Feedback = (*Service)(nil)

// NewService returns an enabled service. Either output may be nil.
func NewService(player CuePlayer, synth Synthesizer) *Service {
	return &Service{player: player, voice: NewVoice(synth), enabled: true}
}

// WithCaption makes Speak also call fn, synchronously, with every enabled
// utterance. It returns s.
func (s *Service) WithCaption(fn func(text string)) *Service {
	s.caption = fn
	return s
}

// SetEnabled turns all feedback on or off. Turning it off cuts the current
// utterance short.
func (s *Service) SetEnabled(on bool) {
	s.mu.Lock()
	s.enabled = on
	s.mu.Unlock()
	if !on {
		s.voice.Cancel()
	}
}

// Enabled reports whether feedback is on.
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

func (s *Service) PlaySound(kind game.Sound) {
	if !s.Enabled() || s.player == nil {
		return
	}
	if err := s.player.Play(kind); err != nil {
		log.Debug().Err(err).Str("sound", string(kind)).Msg("play tone")
	}
}

func (s *Service) Speak(text string) {
	if !s.Enabled() {
		return
	}
	if s.caption != nil && text != "" {
		s.caption(text)
	}
	s.voice.Say(text)
}

// Close cancels speech in progress and waits for it to return.
func (s *Service) Close() {
	s.voice.Cancel()
	s.voice.Wait()
}
