// internal/game/engine.go
//
// Falling-letter engine.
// Responsibilities:
//   - Roll the per-tick spawn chance and spawn one letter when below the cap.
//   - Advance every letter by its speed.
//   - Tag each letter's drop-zone overlap (unbuffered).
//   - Retire letters that fell past the bottom of the game area.
//
// A Step is one atomic transition: the input state is left untouched and the
// returned state is fully updated, so no reader ever sees a half-moved set.

package game

// Engine advances the falling letters one tick at a time.
type Engine struct {
	cfg Config
	gen *Generator
}

// NewEngine returns an Engine that spawns through gen.
func NewEngine(cfg Config, gen *Generator) *Engine {
	return &Engine{cfg: cfg, gen: gen}
}

// Step runs one tick: spawn → move → tag → retire.
// A complete state is returned as-is; the engine halts once the word is spelled.
func (e *Engine) Step(s *State, layout Layout) *State {
	if s.IsComplete {
		return s
	}
	letters := s.FallingLetters

	if e.gen.ShouldSpawn(len(letters)) {
		letters = append(append(make([]FallingLetter, 0, len(letters)+1), letters...),
			e.gen.NewLetter(layout.Width, s.CurrentWord, s.CurrentLetterIndex))
	}

	bottom := layout.Height + e.cfg.RetireMargin
	next := make([]FallingLetter, 0, len(letters))
	for _, l := range letters {
		l.Y += l.Speed
		l.InDropZone = Overlaps(l.X, l.Y, layout.DropZone, TagBuffer)
		if l.Y > bottom {
			continue
		}
		next = append(next, l)
	}

	out := *s
	out.FallingLetters = next
	return &out
}
