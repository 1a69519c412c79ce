// cmd/letterpop-term/main.go
//
// Terminal client for Letter Pop. Runs a session locally: tones play on the
// sound device, spoken feedback shows on the status line, and typed lines
// stand in for the microphone. Settings persist in the same SQLite file the
// server uses (DB_PATH), under a fixed local owner.
//
// Usage: letterpop-term [-word kiwi] [-log letterpop.log]

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/letterpop/internal/audio"
	"github.com/robalobadob/letterpop/internal/config"
	"github.com/robalobadob/letterpop/internal/input"
	"github.com/robalobadob/letterpop/internal/session"
	"github.com/robalobadob/letterpop/internal/settings"
	"github.com/robalobadob/letterpop/internal/words"
)

const saidFor = 3 * time.Second

// caption is the last thing the game said.
type caption struct {
	mu   sync.Mutex
	text string
	at   time.Time
}

func (c *caption) set(text string) {
	c.mu.Lock()
	c.text, c.at = text, time.Now()
	c.mu.Unlock()
}

func (c *caption) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.at) > saidFor {
		return ""
	}
	return c.text
}

type client struct {
	scr    tcell.Screen
	view   viewport
	ctrl   *session.Controller
	prefs  settings.Store
	rec    *typedRecognizer
	said   *caption
	prompt *string
	mouse  tcell.ButtonMask
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	word := flag.String("word", "", "word to spell (default: random)")
	logPath := flag.String("log", "", "write logs to this file")
	flag.Parse()

	// The screen owns the terminal; logs go to a file or nowhere.
	log.Logger = zerolog.Nop()
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}

	if err := words.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "load words: %v\n", err)
		os.Exit(1)
	}
	if *word == "" {
		*word = words.Random()
	}

	scr, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := scr.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	scr.EnableMouse()
	defer scr.Fini()

	speaker := audio.NewSpeakerPlayer()
	defer speaker.Close()

	said := &caption{}
	fb := audio.NewService(speaker, nil).WithCaption(said.set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeDB, err := openPrefs(ctx, cfg.DBPath)
	defer closeDB()
	if err != nil {
		log.Warn().Err(err).Msg("settings will not persist")
		said.set("Settings will not be saved")
	}
	prefs, err := store.Load(ctx, localOwner)
	if err != nil {
		log.Warn().Err(err).Msg("load settings")
	}

	rec := newTypedRecognizer()
	ctrl := session.New(ctx, session.Options{
		Word:               *word,
		TickInterval:       cfg.TickInterval,
		AnnounceDelay:      cfg.AnnounceDelay,
		SpeechRestartDelay: cfg.SpeechRestartDelay,
		Feedback:           fb,
		Recognizer:         rec,
		Settings:           &prefs,
	})
	defer ctrl.Close()

	c := &client{scr: scr, ctrl: ctrl, prefs: store, rec: rec, said: said}
	c.resize(ctx)
	c.run(ctx)
}

func (c *client) run(ctx context.Context) {
	ticker := time.NewTicker(input.DisplayInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := c.scr.PollEvent()
			if ev == nil {
				return // screen finalized
			}
			events <- ev
		}
	}()

	for {
		select {
		case ev := <-events:
			if !c.handle(ctx, ev) {
				return
			}
		case <-c.ctrl.Done():
			return
		case <-ticker.C:
			c.draw()
		}
	}
}

func (c *client) draw() {
	l, _ := c.ctrl.Layout()
	draw(c.scr, c.view, frame{
		state:   c.ctrl.Snapshot(),
		layout:  l,
		prefs:   c.ctrl.Settings(),
		speech:  c.ctrl.Speech().Status(),
		gesture: c.ctrl.Gesture().Status(),
		said:    c.said.get(),
		prompt:  c.prompt,
	})
}

func (c *client) resize(ctx context.Context) {
	c.view = newViewport(c.scr.Size())
	w, h := c.view.size()
	if _, err := c.ctrl.Resize(ctx, w, h); err != nil {
		log.Warn().Err(err).Msg("resize")
	}
}

// handle processes one terminal event and reports whether to keep running.
func (c *client) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		c.scr.Sync()
		c.resize(ctx)
	case *tcell.EventMouse:
		// Act on the press edge only.
		btn := ev.Buttons()
		pressed := btn&tcell.Button1 != 0 && c.mouse&tcell.Button1 == 0
		c.mouse = btn
		if pressed {
			col, row := ev.Position()
			if l, ok := letterAt(c.ctrl.Snapshot().FallingLetters, col, row); ok {
				c.ctrl.Pointer().Click(l.ID)
			}
		}
	case *tcell.EventKey:
		if c.prompt != nil {
			c.typing(ev)
			return true
		}
		return c.key(ctx, ev)
	}
	return true
}

func (c *client) key(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyEnter:
		c.ctrl.Pointer().PressZone()
		return true
	case tcell.KeyRune:
	default:
		return true
	}

	if next, ok := toggle(c.ctrl.Settings(), ev.Rune()); ok {
		c.setPrefs(ctx, next)
		return true
	}
	switch ev.Rune() {
	case 'q':
		return false
	case ' ':
		c.ctrl.Pointer().PressZone()
	case ':':
		s := ""
		c.prompt = &s
	case 'r':
		_ = c.ctrl.Reset(ctx)
	case 'h':
		_ = c.ctrl.Hint(ctx)
	case 'n':
		_, _ = c.ctrl.NextWord(ctx, "")
	}
	return true
}

// setPrefs stores p and applies it to the running session.
func (c *client) setPrefs(ctx context.Context, p settings.AccessibilitySettings) {
	if err := c.prefs.Save(ctx, localOwner, p); err != nil {
		log.Warn().Err(err).Msg("save settings")
		c.said.set("Could not save settings")
	}
	if err := c.ctrl.ApplySettings(ctx, p); err != nil {
		log.Warn().Err(err).Msg("apply settings")
	}
}

// typing edits the transcript prompt.
func (c *client) typing(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		c.prompt = nil
	case tcell.KeyEnter:
		if !c.rec.Say(*c.prompt) {
			c.said.set("Voice is off (press v)")
		}
		c.prompt = nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if s := []rune(*c.prompt); len(s) > 0 {
			*c.prompt = string(s[:len(s)-1])
		}
	case tcell.KeyRune:
		*c.prompt += string(ev.Rune())
	}
}
