// internal/game/geometry.go
//
// Drop-zone geometry.
// Responsibilities:
//   - Rect / Layout: the game area and the drop-zone rectangle.
//   - Overlaps: axis-aligned overlap of a fixed 64x64 letter hitbox with the
//     zone, with a vertical buffer that widens the zone up and down.
//
// Two callers use two buffers on purpose:
//   - the per-tick tag (FallingLetter.InDropZone) uses TagBuffer (0); it drives visuals.
//   - pop eligibility (Eligible) uses PopBuffer (20); it drives input fairness.

package game

import "errors"

const (
	LetterSize = 64.0 // hitbox width and height
	TagBuffer  = 0.0
	PopBuffer  = 20.0

	zoneHeight = 300.0
)

// ErrBadLayout is returned for a non-positive game area.
var ErrBadLayout = errors.New("game: layout dimensions must be positive")

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the game area plus its drop zone. It is recomputed on every
// container resize and shared read-only by the engine and every input channel.
type Layout struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	DropZone Rect    `json:"dropZone"`
}

// NewLayout builds the standard layout for a game area: the zone spans the
// full width, is 300 units tall and is centred vertically.
func NewLayout(width, height float64) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, ErrBadLayout
	}
	return Layout{
		Width:  width,
		Height: height,
		DropZone: Rect{
			X:      0,
			Y:      height/2 - zoneHeight/2,
			Width:  width,
			Height: zoneHeight,
		},
	}, nil
}

// Overlaps reports whether a letter hitbox whose top-left corner is at (x, y)
// overlaps zone, with buffer added above and below the zone.
func Overlaps(x, y float64, zone Rect, buffer float64) bool {
	return x < zone.X+zone.Width && // letter left < zone right
		x+LetterSize > zone.X && // letter right > zone left
		y < zone.Y+zone.Height+buffer && // letter top < zone bottom + buffer
		y+LetterSize > zone.Y-buffer // letter bottom > zone top - buffer
}

// Eligible is the forgiving pop-window check used by input handlers.
func Eligible(l FallingLetter, zone Rect) bool {
	return Overlaps(l.X, l.Y, zone, PopBuffer)
}

// AnyInZone reports whether some letter is currently tagged in the zone.
// Used to enable the zone action control.
func (s *State) AnyInZone() bool {
	for _, l := range s.FallingLetters {
		if l.InDropZone {
			return true
		}
	}
	return false
}
