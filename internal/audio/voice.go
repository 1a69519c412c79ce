package audio

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Synthesizer speaks text. Speak should return early when ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string) error

func (f SynthesizerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// Voice keeps at most one utterance in flight: a new Say cancels the
// previous one.
type Voice struct {
	synth Synthesizer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewVoice returns a voice backed by synth.
func NewVoice(synth Synthesizer) *Voice {
	return &Voice{synth: synth}
}

// Say interrupts any utterance in progress and starts speaking text.
func (v *Voice) Say(text string) {
	if v.synth == nil || text == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = cancel
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer cancel()
		if err := v.synth.Speak(ctx, text); err != nil && ctx.Err() == nil {
			log.Debug().Err(err).Str("text", text).Msg("speech synthesis")
		}
	}()
}

// Cancel interrupts the utterance in progress, if any.
func (v *Voice) Cancel() {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.mu.Unlock()
}

// Wait blocks until every started utterance has returned.
func (v *Voice) Wait() { v.wg.Wait() }
