// internal/audio/tones.go
//
// Feedback tone synthesis.
//
// Each game.Sound maps to a short sine tone whose gain decays exponentially
// to near silence over the tone's length. Tones are rendered with beep and
// can be encoded to WAV for clients that play audio themselves.

package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"

	"github.com/robalobadob/letterpop/internal/game"
)

// SampleRate is used for every rendered tone.
const SampleRate = beep.SampleRate(44100)

// decayFloor is the gain a tone decays to by its end.
const decayFloor = 0.01

// ErrUnknownSound is returned for sounds without a tone.
var ErrUnknownSound = errors.New("audio: unknown sound")

// Tone describes one feedback tone.
type Tone struct {
	Freq     float64
	Duration time.Duration
	Volume   float64
}

var tones = map[game.Sound]Tone{
	game.SoundCorrect:   {Freq: 800, Duration: 200 * time.Millisecond, Volume: 0.3},
	game.SoundIncorrect: {Freq: 300, Duration: 300 * time.Millisecond, Volume: 0.2},
	game.SoundComplete:  {Freq: 600, Duration: 500 * time.Millisecond, Volume: 0.4},
}

// ToneFor returns the tone for kind.
func ToneFor(kind game.Sound) (Tone, bool) {
	t, ok := tones[kind]
	return t, ok
}

// Streamer renders the tone.
func (t Tone) Streamer() (beep.Streamer, error) {
	sine, err := generators.SineTone(SampleRate, t.Freq)
	if err != nil {
		return nil, fmt.Errorf("sine %vHz: %w", t.Freq, err)
	}
	n := SampleRate.N(t.Duration)
	shaped := &decay{streamer: beep.Take(n, sine), total: n, ratio: decayFloor / t.Volume}
	return &effects.Volume{Streamer: shaped, Base: 2, Volume: math.Log2(t.Volume)}, nil
}

// decay scales samples from 1 down to ratio along an exponential curve.
type decay struct {
	streamer beep.Streamer
	pos      int
	total    int
	ratio    float64
}

func (d *decay) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		g := math.Pow(d.ratio, float64(d.pos)/float64(d.total))
		samples[i][0] *= g
		samples[i][1] *= g
		d.pos++
	}
	return n, ok
}

func (d *decay) Err() error { return d.streamer.Err() }

// EncodeWAV renders kind as a mono 16-bit WAV file.
func EncodeWAV(kind game.Sound) ([]byte, error) {
	t, ok := ToneFor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSound, kind)
	}
	s, err := t.Streamer()
	if err != nil {
		return nil, err
	}
	var buf writeSeeker
	format := beep.Format{SampleRate: SampleRate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(&buf, s, format); err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return buf.buf, nil
}

// Bank caches encoded tones.
type Bank struct {
	mu    sync.Mutex
	cache map[game.Sound][]byte
}

// NewBank returns an empty cache.
func NewBank() *Bank {
	return &Bank{cache: make(map[game.Sound][]byte)}
}

// WAV returns the encoded tone for kind, rendering it on first use.
func (b *Bank) WAV(kind game.Sound) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if data, ok := b.cache[kind]; ok {
		return data, nil
	}
	data, err := EncodeWAV(kind)
	if err != nil {
		return nil, err
	}
	b.cache[kind] = data
	return data, nil
}

// writeSeeker is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("audio: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("audio: negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
