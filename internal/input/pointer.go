package input

import "time"

// Pointer turns clicks and the drop-zone button into attempts.
type Pointer struct {
	sink Sink
	now  func() time.Time
}

// NewPointer returns a pointer channel feeding sink.
func NewPointer(sink Sink) *Pointer {
	return &Pointer{sink: sink, now: time.Now}
}

// Click requests a pop of the letter with the given id.
// Clicks without an id are dropped; they would otherwise turn into a zone pop.
func (p *Pointer) Click(letterID string) {
	if letterID == "" {
		return
	}
	p.sink.Submit(PopAttempt{Source: SourcePointer, LetterID: letterID, At: p.now()})
}

// PressZone requests a pop of whatever correct letter is in the drop zone.
func (p *Pointer) PressZone() {
	p.sink.Submit(PopAttempt{Source: SourceZone, At: p.now()})
}
