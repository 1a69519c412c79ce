package game

import (
	"math/rand"
	"testing"
)

// scriptedRand replays fixed values; when a script runs out it repeats the last value.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	if len(r.floats) > 1 {
		r.floats = r.floats[1:]
	}
	return v
}

func (r *scriptedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	if len(r.ints) > 1 {
		r.ints = r.ints[1:]
	}
	return v % n
}

// recorder captures feedback calls.
type recorder struct {
	sounds []Sound
	speech []string
}

func (r *recorder) PlaySound(k Sound) { r.sounds = append(r.sounds, k) }
func (r *recorder) Speak(t string)    { r.speech = append(r.speech, t) }

func testLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout(800, 600)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return l
}

// zoneLetter returns a letter sitting in the middle of the layout's drop zone.
func zoneLetter(id, letter string, layout Layout) FallingLetter {
	return FallingLetter{
		ID:         id,
		Letter:     letter,
		X:          100,
		Y:          layout.DropZone.Y + 50,
		Speed:      1,
		InDropZone: true,
	}
}

func noReplace() Config {
	cfg := DefaultConfig()
	cfg.ReplaceOnPop = false
	return cfg
}

func checkInvariants(t *testing.T, s *State) {
	t.Helper()
	if s.CurrentLetterIndex < 0 || s.CurrentLetterIndex > len(s.TargetLetters) {
		t.Fatalf("index %d out of [0,%d]", s.CurrentLetterIndex, len(s.TargetLetters))
	}
	if s.IsComplete != (s.CurrentLetterIndex == len(s.TargetLetters)) {
		t.Fatalf("IsComplete=%v with index %d/%d", s.IsComplete, s.CurrentLetterIndex, len(s.TargetLetters))
	}
	if s.Score < 0 || s.Score%10 != 0 {
		t.Fatalf("score %d is not a non-negative multiple of 10", s.Score)
	}
}

func TestNewState(t *testing.T) {
	s := NewState("  Apple ")
	if s.CurrentWord != "apple" {
		t.Errorf("CurrentWord %q, want apple", s.CurrentWord)
	}
	if len(s.TargetLetters) != 5 || s.TargetLetters[0] != "a" || s.TargetLetters[4] != "e" {
		t.Errorf("TargetLetters %v", s.TargetLetters)
	}
	if s.Status() != StatusPlaying {
		t.Errorf("Status %q, want playing", s.Status())
	}
	checkInvariants(t, s)
}

func TestFullWordCompletion(t *testing.T) {
	layout := testLayout(t)
	fb := &recorder{}
	m := NewMachine(noReplace(), nil, fb)
	s := NewState("kiwi")

	for i, ch := range []string{"K", "I", "W", "I"} {
		s.FallingLetters = []FallingLetter{zoneLetter("l", ch, layout)}
		var res Result
		s, res = m.Attempt(s, layout, Target{})
		checkInvariants(t, s)
		want := OutcomeCorrect
		if i == 3 {
			want = OutcomeCompleted
		}
		if res.Outcome != want {
			t.Fatalf("pop %d (%s): outcome %q, want %q", i, ch, res.Outcome, want)
		}
	}
	if !s.IsComplete || s.Score != 40 || s.CurrentLetterIndex != 4 {
		t.Fatalf("got complete=%v score=%d index=%d, want true/40/4", s.IsComplete, s.Score, s.CurrentLetterIndex)
	}
	if s.Status() != StatusComplete {
		t.Errorf("Status %q, want complete", s.Status())
	}
	last := fb.speech[len(fb.speech)-1]
	if last != "Congratulations! You spelled kiwi!" {
		t.Errorf("last speech %q", last)
	}
	if fb.sounds[len(fb.sounds)-1] != SoundComplete {
		t.Errorf("last sound %q, want complete", fb.sounds[len(fb.sounds)-1])
	}
}

func TestWrongLetterPopConsumesLetter(t *testing.T) {
	layout := testLayout(t)
	fb := &recorder{}
	m := NewMachine(DefaultConfig(), nil, fb)
	s := NewState("apple")
	s.FallingLetters = []FallingLetter{zoneLetter("b1", "B", layout)}

	next, res := m.Attempt(s, layout, Target{LetterID: "b1"})
	if res.Outcome != OutcomeIncorrect {
		t.Fatalf("outcome %q, want incorrect", res.Outcome)
	}
	if next.CurrentLetterIndex != 0 || next.Score != 0 {
		t.Errorf("index=%d score=%d, want 0/0", next.CurrentLetterIndex, next.Score)
	}
	if _, ok := next.Find("b1"); ok {
		t.Error("wrong letter should be removed")
	}
	if len(s.FallingLetters) != 1 {
		t.Error("input state must not be modified")
	}
	if len(fb.sounds) != 1 || fb.sounds[0] != SoundIncorrect {
		t.Errorf("sounds %v, want [incorrect]", fb.sounds)
	}
}

func TestCorrectnessIgnoresIsCorrectFlag(t *testing.T) {
	layout := testLayout(t)
	m := NewMachine(DefaultConfig(), nil, nil)
	s := NewState("apple")
	z := zoneLetter("z", "Z", layout)
	z.IsCorrect = true
	s.FallingLetters = []FallingLetter{z}

	next, res := m.Attempt(s, layout, Target{LetterID: "z"})
	if res.Outcome != OutcomeIncorrect {
		t.Fatalf("outcome %q, want incorrect", res.Outcome)
	}
	if next.Score != 0 || next.CurrentLetterIndex != 0 {
		t.Errorf("state advanced on a flagged but wrong letter")
	}
}

func TestZonePopWithNothingEligible(t *testing.T) {
	layout := testLayout(t)
	fb := &recorder{}
	m := NewMachine(DefaultConfig(), nil, fb)
	s := NewState("apple")
	// An 'A' far above the zone and a 'B' inside it: neither is poppable.
	s.FallingLetters = []FallingLetter{
		{ID: "a", Letter: "A", X: 100, Y: -60},
		zoneLetter("b", "B", layout),
	}

	next, res := m.Attempt(s, layout, Target{})
	if res.Outcome != OutcomeNoTarget {
		t.Fatalf("outcome %q, want no_target", res.Outcome)
	}
	if next != s {
		t.Error("no-target attempt must not produce a new state")
	}
	if len(fb.speech) != 1 || fb.speech[0] != "Incorrect letter" {
		t.Errorf("speech %v", fb.speech)
	}
	if len(fb.sounds) != 0 {
		t.Errorf("no-target attempt played %v", fb.sounds)
	}
}

func TestZonePopUsesBufferedWindow(t *testing.T) {
	layout := testLayout(t)
	m := NewMachine(noReplace(), nil, nil)
	s := NewState("apple")
	// Letter bottom sits 10 units above the zone top: outside the tick tag,
	// inside the 20-unit pop buffer.
	s.FallingLetters = []FallingLetter{{ID: "a", Letter: "A", X: 10, Y: layout.DropZone.Y - LetterSize - 10}}

	next, res := m.Attempt(s, layout, Target{})
	if res.Outcome != OutcomeCorrect {
		t.Fatalf("outcome %q, want correct", res.Outcome)
	}
	if next.CurrentLetterIndex != 1 || next.Score != 10 {
		t.Errorf("index=%d score=%d", next.CurrentLetterIndex, next.Score)
	}
}

func TestPopUnknownLetterIsIgnored(t *testing.T) {
	layout := testLayout(t)
	fb := &recorder{}
	m := NewMachine(DefaultConfig(), nil, fb)
	s := NewState("apple")

	next, res := m.Attempt(s, layout, Target{LetterID: "gone"})
	if res.Outcome != OutcomeIgnored || next != s {
		t.Fatalf("outcome %q, want ignored with unchanged state", res.Outcome)
	}
	if len(fb.sounds)+len(fb.speech) != 0 {
		t.Error("stale click must not produce feedback")
	}
}

func TestAttemptOnCompleteStateIsIgnored(t *testing.T) {
	layout := testLayout(t)
	m := NewMachine(DefaultConfig(), nil, nil)
	s := NewState("a")
	s.FallingLetters = []FallingLetter{zoneLetter("a", "A", layout)}
	s, _ = m.Attempt(s, layout, Target{})
	if !s.IsComplete {
		t.Fatal("single-letter word should be complete")
	}
	s.FallingLetters = []FallingLetter{zoneLetter("a2", "A", layout)}
	next, res := m.Attempt(s, layout, Target{LetterID: "a2"})
	if res.Outcome != OutcomeIgnored || next.Score != 10 {
		t.Fatalf("outcome %q score %d", res.Outcome, next.Score)
	}
}

func TestReplacementSpawnAfterCorrectPop(t *testing.T) {
	layout := testLayout(t)
	// First float: target chance roll (< 0.6 → exact letter); then x, speed.
	gen := NewGenerator(DefaultConfig(), &scriptedRand{floats: []float64{0.1, 0.5, 0.5}})
	m := NewMachine(DefaultConfig(), gen, nil)
	s := NewState("apple")
	s.FallingLetters = []FallingLetter{zoneLetter("a", "A", layout)}

	next, res := m.Attempt(s, layout, Target{LetterID: "a"})
	if res.Outcome != OutcomeCorrect {
		t.Fatalf("outcome %q", res.Outcome)
	}
	if len(next.FallingLetters) != 1 {
		t.Fatalf("want one replacement letter, got %d", len(next.FallingLetters))
	}
	repl := next.FallingLetters[0]
	if repl.Letter != "P" || repl.ID == "a" || repl.Y != -60 {
		t.Errorf("replacement %+v, want a fresh P at y=-60", repl)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	layout := testLayout(t)
	m := NewMachine(noReplace(), nil, nil)
	s := NewState("apple")
	s.FallingLetters = []FallingLetter{zoneLetter("a", "A", layout), zoneLetter("x", "X", layout)}
	s, _ = m.Attempt(s, layout, Target{LetterID: "a"})

	once := m.Reset(s)
	twice := m.Reset(once)
	for _, r := range []*State{once, twice} {
		if r.CurrentWord != "apple" || r.CurrentLetterIndex != 0 || r.Score != 0 || r.IsComplete || len(r.FallingLetters) != 0 {
			t.Fatalf("reset state %+v", r)
		}
	}
}

func TestHintAndAnnounce(t *testing.T) {
	fb := &recorder{}
	m := NewMachine(DefaultConfig(), nil, fb)
	s := NewState("plum")
	m.Hint(s)
	m.Announce(s)
	want := []string{"The next letter is P", "New word: plum. Catch the letters to spell it out!"}
	if len(fb.speech) != 2 || fb.speech[0] != want[0] || fb.speech[1] != want[1] {
		t.Errorf("speech %v, want %v", fb.speech, want)
	}
}

func TestOverlapBoundaries(t *testing.T) {
	zone := Rect{X: 0, Y: 100, Width: 200, Height: 300}
	cases := []struct {
		name string
		x, y float64
		want bool
	}{
		{"just above top", 100, 99, true},
		{"inside bottom buffer", 100, 415, true},
		{"past bottom buffer", 100, 421, false},
		{"far above", 100, 10, false},
		{"right of zone", 200, 200, false},
		{"left edge overlap", -63, 200, true},
	}
	for _, c := range cases {
		if got := Overlaps(c.x, c.y, zone, PopBuffer); got != c.want {
			t.Errorf("%s: Overlaps(%v,%v) = %v, want %v", c.name, c.x, c.y, got, c.want)
		}
	}
	// The tick tag has no buffer: a letter whose bottom is 10 units above
	// the zone is not tagged.
	if Overlaps(100, 100-LetterSize-10, zone, TagBuffer) {
		t.Error("unbuffered overlap should not reach above the zone")
	}
}

func TestNewLayout(t *testing.T) {
	l, err := NewLayout(1000, 800)
	if err != nil {
		t.Fatal(err)
	}
	want := Rect{X: 0, Y: 250, Width: 1000, Height: 300}
	if l.DropZone != want {
		t.Errorf("DropZone %+v, want %+v", l.DropZone, want)
	}
	if _, err := NewLayout(0, 100); err != ErrBadLayout {
		t.Errorf("err %v, want ErrBadLayout", err)
	}
}

func TestOffScreenRetirement(t *testing.T) {
	layout := testLayout(t)
	cfg := DefaultConfig()
	cfg.SpawnChance = 0 // nothing else spawns
	e := NewEngine(cfg, NewGenerator(cfg, &scriptedRand{}))
	s := NewState("apple")
	s.FallingLetters = []FallingLetter{{ID: "drop", Letter: "Q", X: 100, Y: -60, Speed: 1}}

	ticks := int(layout.Height) + 61
	for i := 1; i <= ticks; i++ {
		s = e.Step(s, layout)
		_, alive := s.Find("drop")
		if i < ticks && !alive {
			t.Fatalf("letter retired early at tick %d", i)
		}
	}
	if _, alive := s.Find("drop"); alive {
		t.Fatalf("letter still in flight after %d ticks", ticks)
	}
	if s.Score != 0 || s.CurrentLetterIndex != 0 {
		t.Error("retirement must not touch score or progress")
	}
}

func TestEngineTagsWithoutBuffer(t *testing.T) {
	layout := testLayout(t)
	cfg := DefaultConfig()
	cfg.SpawnChance = 0
	e := NewEngine(cfg, NewGenerator(cfg, &scriptedRand{}))
	s := NewState("apple")
	// After one tick the bottom edge is 5 units above the zone top.
	s.FallingLetters = []FallingLetter{{ID: "a", Letter: "A", X: 100, Y: layout.DropZone.Y - LetterSize - 6, Speed: 1}}

	s = e.Step(s, layout)
	if s.FallingLetters[0].InDropZone {
		t.Error("tick tag must be unbuffered")
	}
	if !Eligible(s.FallingLetters[0], layout.DropZone) {
		t.Error("letter should already be poppable through the buffer")
	}
}

func TestEngineSpawnRespectsCap(t *testing.T) {
	layout := testLayout(t)
	cfg := DefaultConfig()
	cfg.SpawnChance = 1
	e := NewEngine(cfg, NewGenerator(cfg, rand.New(rand.NewSource(1))))
	s := NewState("apple")
	for i := 0; i < 50; i++ {
		s = e.Step(s, layout)
		if len(s.FallingLetters) > cfg.MaxLive {
			t.Fatalf("tick %d: %d letters in flight, cap %d", i, len(s.FallingLetters), cfg.MaxLive)
		}
	}
	if len(s.FallingLetters) != 1 {
		t.Fatalf("want one letter in flight, got %d", len(s.FallingLetters))
	}
}

func TestEngineHaltsWhenComplete(t *testing.T) {
	layout := testLayout(t)
	cfg := DefaultConfig()
	cfg.SpawnChance = 1
	e := NewEngine(cfg, NewGenerator(cfg, rand.New(rand.NewSource(1))))
	s := NewState("a")
	s.CurrentLetterIndex, s.IsComplete, s.Score = 1, true, 10
	if got := e.Step(s, layout); got != s {
		t.Error("complete state should be returned unchanged")
	}
}

func TestGeneratorLetterChoice(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGenerator(cfg, &scriptedRand{floats: []float64{0.59}})
	if got := g.PickLetter("apple", 1); got != "P" {
		t.Errorf("target roll: got %q, want P", got)
	}
	// Decoy: pool is "APPLE" + "ABCDEFGHIJ"; index 6 is 'B'.
	g = NewGenerator(cfg, &scriptedRand{floats: []float64{0.6}, ints: []int{6}})
	if got := g.PickLetter("apple", 0); got != "B" {
		t.Errorf("decoy roll: got %q, want B", got)
	}
}

func TestGeneratorNewLetterRanges(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGenerator(cfg, rand.New(rand.NewSource(42)))
	for i := 0; i < 500; i++ {
		l := g.NewLetter(800, "melon", 2)
		if l.X < 40 || l.X >= 760 {
			t.Fatalf("x %v outside [40,760)", l.X)
		}
		if l.Speed < 0.8 || l.Speed >= 1.8 {
			t.Fatalf("speed %v outside [0.8,1.8)", l.Speed)
		}
		if l.Y != -60 {
			t.Fatalf("y %v, want -60", l.Y)
		}
		wantFlag := l.Letter == "M" || l.Letter == "E" || l.Letter == "L" || l.Letter == "O" || l.Letter == "N"
		if l.IsCorrect != wantFlag {
			t.Fatalf("letter %s IsCorrect=%v", l.Letter, l.IsCorrect)
		}
	}
}

func TestGeneratorShouldSpawn(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGenerator(cfg, &scriptedRand{floats: []float64{0.01}})
	if !g.ShouldSpawn(0) {
		t.Error("roll below chance should spawn")
	}
	if g.ShouldSpawn(1) {
		t.Error("no spawn at the live cap")
	}
	g = NewGenerator(cfg, &scriptedRand{floats: []float64{0.02}})
	if g.ShouldSpawn(0) {
		t.Error("roll above chance should not spawn")
	}
}

func TestScoreInvariantOverRandomPlay(t *testing.T) {
	layout := testLayout(t)
	rnd := rand.New(rand.NewSource(7))
	cfg := DefaultConfig()
	cfg.SpawnChance = 0.2
	gen := NewGenerator(cfg, rnd)
	e := NewEngine(cfg, gen)
	m := NewMachine(cfg, gen, nil)
	s := NewState("banana")
	correct := 0
	for i := 0; i < 5000 && !s.IsComplete; i++ {
		s = e.Step(s, layout)
		if rnd.Intn(10) == 0 {
			var res Result
			if len(s.FallingLetters) > 0 && rnd.Intn(2) == 0 {
				s, res = m.Attempt(s, layout, Target{LetterID: s.FallingLetters[0].ID})
			} else {
				s, res = m.Attempt(s, layout, Target{})
			}
			if res.Outcome == OutcomeCorrect || res.Outcome == OutcomeCompleted {
				correct++
			}
		}
		checkInvariants(t, s)
		if s.Score != 10*correct {
			t.Fatalf("score %d, want %d", s.Score, 10*correct)
		}
	}
}

func TestIsCorrectLetter(t *testing.T) {
	if !IsCorrectLetter("A", "apple", 0) || IsCorrectLetter("p", "apple", 0) {
		t.Error("position match failed")
	}
	if IsCorrectLetter("e", "apple", 5) {
		t.Error("index past the end is never correct")
	}
}
