// cmd/letterpop-term/view.go
//
// Mapping between terminal cells and game units, plus drawing.
// One cell is cellW x cellH game units, so an 80x30 terminal plays like an
// 800x600 game area.

package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/letterpop/internal/game"
	"github.com/robalobadob/letterpop/internal/input"
	"github.com/robalobadob/letterpop/internal/settings"
)

const (
	cellW      = 10.0
	cellH      = 20.0
	statusRows = 3
)

// viewport is the play field in cells.
type viewport struct {
	cols, rows int
}

func newViewport(screenW, screenH int) viewport {
	rows := screenH - statusRows
	if rows < 1 {
		rows = 1
	}
	if screenW < 1 {
		screenW = 1
	}
	return viewport{cols: screenW, rows: rows}
}

// size is the game area in units.
func (v viewport) size() (w, h float64) {
	return float64(v.cols) * cellW, float64(v.rows) * cellH
}

// cellOf returns the cell holding the centre of a letter hitbox.
func (v viewport) cellOf(l game.FallingLetter) (col, row int) {
	return int((l.X + game.LetterSize/2) / cellW), int((l.Y + game.LetterSize/2) / cellH)
}

// letterAt returns the topmost letter whose hitbox covers cell (col, row).
func letterAt(letters []game.FallingLetter, col, row int) (game.FallingLetter, bool) {
	ux, uy := (float64(col)+0.5)*cellW, (float64(row)+0.5)*cellH
	for i := len(letters) - 1; i >= 0; i-- {
		l := letters[i]
		if ux >= l.X && ux < l.X+game.LetterSize && uy >= l.Y && uy < l.Y+game.LetterSize {
			return l, true
		}
	}
	return game.FallingLetter{}, false
}

// progress renders the word with unspelled letters hidden: "K I _ _".
func progress(s *game.State) string {
	parts := make([]string, len(s.TargetLetters))
	for i, l := range s.TargetLetters {
		if i < s.CurrentLetterIndex {
			parts[i] = strings.ToUpper(l)
		} else {
			parts[i] = "_"
		}
	}
	return strings.Join(parts, " ")
}

// palette holds the styles for one contrast mode.
type palette struct {
	base, zone, banner, letter, target, tagged, status, alert tcell.Style
}

// paletteFor picks the styles for p. Reduced motion swaps the reversed
// highlights, which read as flashing when letters move, for underlines.
func paletteFor(p settings.AccessibilitySettings) palette {
	pal := basePalette(p.HighContrast)
	pal.banner = pal.zone.Reverse(true)
	if p.ReducedMotion {
		pal.tagged = pal.tagged.Reverse(false).Underline(true)
		pal.banner = pal.zone.Underline(true)
	}
	return pal
}

func basePalette(highContrast bool) palette {
	if highContrast {
		b := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
		return palette{
			base:   b,
			zone:   b.Foreground(tcell.ColorYellow).Bold(true),
			letter: b.Bold(true),
			target: b.Foreground(tcell.ColorYellow).Bold(true),
			tagged: b.Reverse(true).Bold(true),
			status: b.Bold(true),
			alert:  b.Foreground(tcell.ColorRed).Bold(true),
		}
	}
	b := tcell.StyleDefault
	return palette{
		base:   b,
		zone:   b.Foreground(tcell.ColorDarkCyan),
		letter: b.Foreground(tcell.ColorSilver),
		target: b.Foreground(tcell.ColorGreen),
		tagged: b.Foreground(tcell.ColorGreen).Reverse(true),
		status: b.Foreground(tcell.ColorWhite),
		alert:  b.Foreground(tcell.ColorRed),
	}
}

// frame is everything one draw needs.
type frame struct {
	state   *game.State
	layout  game.Layout
	prefs   settings.AccessibilitySettings
	speech  input.SpeechStatus
	gesture input.GestureStatus
	said    string
	prompt  *string // non-nil while typing a transcript
}

func draw(scr tcell.Screen, v viewport, f frame) {
	pal := paletteFor(f.prefs)
	scr.SetStyle(pal.base)
	scr.Clear()

	// Drop zone borders.
	top := int(f.layout.DropZone.Y / cellH)
	bottom := int((f.layout.DropZone.Y + f.layout.DropZone.Height) / cellH)
	for col := 0; col < v.cols; col++ {
		put(scr, v, col, top, '─', pal.zone)
		put(scr, v, col, bottom, '─', pal.zone)
	}
	if f.state.AnyInZone() {
		putStr(scr, 1, top, " SPACE to pop ", pal.banner)
	}

	next := f.state.NextLetter()
	for _, l := range f.state.FallingLetters {
		col, row := v.cellOf(l)
		st := pal.letter
		switch {
		case l.InDropZone:
			st = pal.tagged
		case l.IsCorrect && !f.prefs.HighContrast && strings.EqualFold(l.Letter, next):
			st = pal.target
		}
		r := []rune(l.Letter)[0]
		if f.prefs.LargeText {
			put(scr, v, col-1, row, r, st)
			put(scr, v, col+1, row, r, st)
		}
		put(scr, v, col, row, r, st)
	}

	// Status area.
	y := v.rows
	word := fmt.Sprintf(" %s   score %d", progress(f.state), f.state.Score)
	if f.state.IsComplete {
		word += "   spelled! n: next word  r: again"
	}
	putStr(scr, 0, y, word, pal.status)

	voice := "voice off"
	switch {
	case !f.speech.Supported:
		voice = "voice unsupported"
	case f.speech.Error != "":
		voice = "voice error: " + f.speech.Error
	case f.speech.Listening:
		voice = "listening (say \"pop\")"
	case f.speech.Enabled:
		voice = "voice on"
	}
	gesture := "gesture off"
	if f.gesture.Error != "" {
		gesture = f.gesture.Error
	} else if f.gesture.Active {
		gesture = fmt.Sprintf("gesture %.0f%%", f.gesture.Confidence*100)
	}
	putStr(scr, 0, y+1, " "+voice+" · "+gesture, pal.status)

	switch {
	case f.prompt != nil:
		putStr(scr, 0, y+2, " say: "+*f.prompt+"▏", pal.status)
	case f.said != "":
		putStr(scr, 0, y+2, " ♪ "+f.said, pal.alert)
	default:
		putStr(scr, 0, y+2, " click/space pop · : speak · h hint · r reset · n next · v voice · g gesture · c contrast · L large · m motion · q quit", pal.base)
	}
	scr.Show()
}

func put(scr tcell.Screen, v viewport, col, row int, r rune, st tcell.Style) {
	if col < 0 || row < 0 || col >= v.cols || row >= v.rows {
		return
	}
	scr.SetContent(col, row, r, nil, st)
}

func putStr(scr tcell.Screen, col, row int, s string, st tcell.Style) {
	for _, r := range s {
		scr.SetContent(col, row, r, nil, st)
		col++
	}
}
