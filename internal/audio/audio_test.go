package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/robalobadob/letterpop/internal/game"
)

func TestToneTable(t *testing.T) {
	tests := []struct {
		kind game.Sound
		want Tone
	}{
		{game.SoundCorrect, Tone{800, 200 * time.Millisecond, 0.3}},
		{game.SoundIncorrect, Tone{300, 300 * time.Millisecond, 0.2}},
		{game.SoundComplete, Tone{600, 500 * time.Millisecond, 0.4}},
	}
	for _, tt := range tests {
		got, ok := ToneFor(tt.kind)
		if !ok || got != tt.want {
			t.Errorf("ToneFor(%s) = %+v, %v", tt.kind, got, ok)
		}
	}
	if _, ok := ToneFor("fanfare"); ok {
		t.Error("unknown sound should have no tone")
	}
}

func TestToneStreamerLengthAndDecay(t *testing.T) {
	tone, _ := ToneFor(game.SoundCorrect)
	s, err := tone.Streamer()
	if err != nil {
		t.Fatal(err)
	}
	want := SampleRate.N(tone.Duration)
	samples := make([][2]float64, 512)
	total := 0
	var firstPeak, lastPeak float64
	for {
		n, ok := s.Stream(samples)
		for i := 0; i < n; i++ {
			v := samples[i][0]
			if v < 0 {
				v = -v
			}
			if v > tone.Volume+1e-9 {
				t.Fatalf("sample %d = %v exceeds volume %v", total+i, v, tone.Volume)
			}
			if total+i < 200 && v > firstPeak {
				firstPeak = v
			}
			if total+i >= want-200 && v > lastPeak {
				lastPeak = v
			}
		}
		total += n
		if !ok {
			break
		}
	}
	if total != want {
		t.Errorf("streamed %d samples, want %d", total, want)
	}
	if lastPeak >= firstPeak/5 {
		t.Errorf("tone should decay: first peak %v, last peak %v", firstPeak, lastPeak)
	}
}

func TestEncodeWAV(t *testing.T) {
	data, err := EncodeWAV(game.SoundComplete)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad header %q", data[:12])
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != 1 {
		t.Errorf("channels = %d, want mono", ch)
	}
	// 16-bit mono: two bytes per sample after the 44-byte header.
	if want := 44 + 2*SampleRate.N(500*time.Millisecond); len(data) != want {
		t.Errorf("len = %d, want %d", len(data), want)
	}
	if _, err := EncodeWAV("fanfare"); !errors.Is(err, ErrUnknownSound) {
		t.Errorf("unknown sound err = %v", err)
	}
}

func TestBankCaches(t *testing.T) {
	b := NewBank()
	a1, err := b.WAV(game.SoundIncorrect)
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := b.WAV(game.SoundIncorrect)
	if &a1[0] != &a2[0] {
		t.Error("second call should return the cached slice")
	}
}

func TestWriteSeeker(t *testing.T) {
	var w writeSeeker
	_, _ = w.Write([]byte("hello world"))
	if _, err := w.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("J"))
	if string(w.buf) != "Jello world" {
		t.Errorf("buf = %q", w.buf)
	}
	if _, err := w.Seek(-1, 0); err == nil {
		t.Error("negative seek should fail")
	}
}

var _ beep.Streamer = (*decay)(nil)

// ---- voice / service ----

type recordingSynth struct {
	mu        sync.Mutex
	spoken    []string
	cancelled []string
	block     bool
}

func (r *recordingSynth) Speak(ctx context.Context, text string) error {
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	block := r.block
	r.mu.Unlock()
	if !block {
		return nil
	}
	<-ctx.Done()
	r.mu.Lock()
	r.cancelled = append(r.cancelled, text)
	r.mu.Unlock()
	return ctx.Err()
}

func TestVoiceCancelsPreviousUtterance(t *testing.T) {
	synth := &recordingSynth{block: true}
	v := NewVoice(synth)
	v.Say("Letter K")
	v.Say("Letter I")
	v.Cancel()
	v.Wait()

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.spoken) != 2 {
		t.Fatalf("spoken = %v", synth.spoken)
	}
	if len(synth.cancelled) != 2 {
		t.Errorf("cancelled = %v, want both utterances interrupted", synth.cancelled)
	}
}

func TestServiceGating(t *testing.T) {
	var played []game.Sound
	synth := &recordingSynth{}
	s := NewService(CuePlayerFunc(func(k game.Sound) error { played = append(played, k); return nil }), synth)

	s.PlaySound(game.SoundCorrect)
	s.Speak("Letter A")
	s.Close()

	s.SetEnabled(false)
	s.PlaySound(game.SoundIncorrect)
	s.Speak("Incorrect letter")
	s.Close()

	if len(played) != 1 || played[0] != game.SoundCorrect {
		t.Errorf("played = %v", played)
	}
	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.spoken) != 1 || synth.spoken[0] != "Letter A" {
		t.Errorf("spoken = %v", synth.spoken)
	}
}

func TestServiceCaptionsInCallOrder(t *testing.T) {
	var got []string
	s := NewService(nil, nil).WithCaption(func(text string) { got = append(got, text) })
	defer s.Close()

	s.Speak("Letter K")
	s.Speak("Congratulations! You spelled k!")
	s.SetEnabled(false)
	s.Speak("Incorrect letter")

	want := []string{"Letter K", "Congratulations! You spelled k!"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("captions = %q, want %q", got, want)
	}
}

func TestServiceNilOutputs(t *testing.T) {
	s := NewService(nil, nil)
	s.PlaySound(game.SoundComplete)
	s.Speak("hello")
	s.Close()
}
