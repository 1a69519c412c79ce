package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/speaker"

	"github.com/robalobadob/letterpop/internal/game"
)

// SpeakerPlayer plays tones on the local sound device.
type SpeakerPlayer struct {
	once   sync.Once
	opened bool
	err    error
}

// NewSpeakerPlayer returns a player; the device is opened on first use.
func NewSpeakerPlayer() *SpeakerPlayer { return &SpeakerPlayer{} }

func (p *SpeakerPlayer) Play(kind game.Sound) error {
	p.once.Do(func() {
		p.err = speaker.Init(SampleRate, SampleRate.N(50*time.Millisecond))
		p.opened = p.err == nil
	})
	if p.err != nil {
		return p.err
	}
	t, ok := ToneFor(kind)
	if !ok {
		return ErrUnknownSound
	}
	s, err := t.Streamer()
	if err != nil {
		return err
	}
	speaker.Play(s)
	return nil
}

// Close releases the sound device.
func (p *SpeakerPlayer) Close() {
	if p.opened {
		speaker.Close()
	}
}
