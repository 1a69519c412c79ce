// internal/session/controller.go
//
// Session controller: one goroutine per game session owns the authoritative
// state and serializes every transition.
//
// The loop selects over:
//   - the tick source (engine step; idle while complete or before a layout)
//   - the attempt queue (pointer, zone, voice, gesture)
//   - the command queue (resize, reset, hint, next word, settings)
//   - cancellation
//
// Each transition stores a new immutable *game.State in an atomic pointer and
// publishes it. Readers, including the input channels, always see the latest
// commit through Snapshot; nothing holds a copy captured earlier.

package session

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/letterpop/internal/audio"
	"github.com/robalobadob/letterpop/internal/game"
	"github.com/robalobadob/letterpop/internal/input"
	"github.com/robalobadob/letterpop/internal/realtime"
	"github.com/robalobadob/letterpop/internal/settings"
	"github.com/robalobadob/letterpop/internal/words"
)

// ErrClosed is returned by commands sent to a stopped controller.
var ErrClosed = errors.New("session: closed")

// Defaults for Options.
const (
	DefaultTickInterval  = 16 * time.Millisecond
	DefaultAnnounceDelay = 500 * time.Millisecond
)

// EventType names an outbound event.
type EventType string

const (
	EventState   EventType = "state"
	EventCue     EventType = "cue"
	EventSpeech  EventType = "speech"
	EventGesture EventType = "gesture"
)

// Event is published to subscribers after commits and feedback.
type Event struct {
	Type    EventType            `json:"type"`
	State   *game.State          `json:"state,omitempty"`
	Sound   game.Sound           `json:"sound,omitempty"`
	Text    string               `json:"text,omitempty"`
	Speech  *input.SpeechStatus  `json:"speech,omitempty"`
	Gesture *input.GestureStatus `json:"gesture,omitempty"`
}

// Options configures a controller. Zero values select defaults.
type Options struct {
	ID            string
	Owner         string // account or anonymous id whose settings apply
	Word          string
	Game          game.Config
	Rand          game.Rand
	Tick          <-chan time.Time // overrides TickInterval
	TickInterval  time.Duration
	AnnounceDelay time.Duration

	// Feedback receives sounds and speech. When nil, feedback is published as
	// cue events through an audio.Service.
	Feedback game.Feedback

	Recognizer         input.Recognizer
	SpeechRestartDelay time.Duration

	Camera     input.Camera
	Detector   input.HandDetector
	Classifier input.FistClassifier

	Settings *settings.AccessibilitySettings
}

// Controller runs one game session.
type Controller struct {
	id      string
	owner   atomic.Pointer[string]
	created time.Time

	engine  *game.Engine
	machine *game.Machine
	fb      game.Feedback

	state      atomic.Pointer[game.State]
	layout     atomic.Pointer[game.Layout]
	prefs      atomic.Pointer[settings.AccessibilitySettings]
	lastActive atomic.Int64

	attempts chan input.PopAttempt
	cmds     chan func()
	events   *realtime.Broadcaster[Event]

	pointer  *input.Pointer
	speech   *input.Speech
	gesture  *input.Gesture
	pipeline *input.GesturePipeline

	tick          <-chan time.Time
	stopTicker    func()
	announceDelay time.Duration

	// loop-owned
	ctx          context.Context
	announce     *time.Timer
	stopPipeline context.CancelFunc

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller and starts its loop. The loop stops when ctx is
// cancelled or Close is called.
func New(ctx context.Context, opts Options) *Controller {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Game == (game.Config{}) {
		opts.Game = game.DefaultConfig()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.AnnounceDelay <= 0 {
		opts.AnnounceDelay = DefaultAnnounceDelay
	}
	prefs := settings.Defaults()
	if opts.Settings != nil {
		prefs = *opts.Settings
	}

	c := &Controller{
		id:            opts.ID,
		created:       time.Now(),
		attempts:      make(chan input.PopAttempt, 32),
		cmds:          make(chan func()),
		events:        realtime.NewBroadcaster[Event](64),
		announceDelay: opts.AnnounceDelay,
		done:          make(chan struct{}),
	}
	c.touch()
	c.SetOwner(opts.Owner)

	c.fb = opts.Feedback
	if c.fb == nil {
		c.fb = audio.NewService(
			audio.CuePlayerFunc(func(k game.Sound) error {
				c.events.Publish(Event{Type: EventCue, Sound: k})
				return nil
			}),
			nil,
		).WithCaption(func(text string) {
			c.events.Publish(Event{Type: EventCue, Text: text})
		})
	}

	gen := game.NewGenerator(opts.Game, opts.Rand)
	c.engine = game.NewEngine(opts.Game, gen)
	c.machine = game.NewMachine(opts.Game, gen, c.fb)

	c.pointer = input.NewPointer(c)
	c.speech = input.NewSpeech(opts.Recognizer, c, input.SpeechOptions{
		RestartDelay: opts.SpeechRestartDelay,
		OnStatus: func(st input.SpeechStatus) {
			c.events.Publish(Event{Type: EventSpeech, Speech: &st})
		},
	})
	c.gesture = input.NewGesture(c, func(st input.GestureStatus) {
		c.events.Publish(Event{Type: EventGesture, Gesture: &st})
	})
	c.pipeline = &input.GesturePipeline{
		Camera:     opts.Camera,
		Detector:   opts.Detector,
		Classifier: opts.Classifier,
		Gesture:    c.gesture,
	}

	if opts.Tick != nil {
		c.tick = opts.Tick
		c.stopTicker = func() {}
	} else {
		t := time.NewTicker(opts.TickInterval)
		c.tick = t.C
		c.stopTicker = t.Stop
	}

	c.state.Store(game.NewState(words.Normalize(opts.Word)))
	c.prefs.Store(&prefs)

	var loopCtx context.Context
	loopCtx, c.cancel = context.WithCancel(ctx)
	c.ctx = loopCtx
	go c.run(loopCtx, prefs)

	log.Info().Str("session", c.id).Str("word", c.state.Load().CurrentWord).Msg("session started")
	return c
}

func (c *Controller) run(ctx context.Context, prefs settings.AccessibilitySettings) {
	defer close(c.done)
	defer c.teardown()

	c.applySettings(prefs)
	c.scheduleAnnounce()

	for {
		var tick <-chan time.Time
		if c.ticking() {
			tick = c.tick
		}
		select {
		case <-ctx.Done():
			return
		case <-tick:
			c.step()
		case a := <-c.attempts:
			c.apply(a)
		case fn := <-c.cmds:
			fn()
		}
	}
}

func (c *Controller) teardown() {
	c.stopTicker()
	if c.announce != nil {
		c.announce.Stop()
	}
	if c.stopPipeline != nil {
		c.stopPipeline()
		c.stopPipeline = nil
	}
	c.speech.Close()
	if cl, ok := c.fb.(interface{ Close() }); ok {
		cl.Close()
	}
	c.events.Close()
	log.Info().Str("session", c.id).Msg("session closed")
}

// ticking reports whether the engine should run: a layout is known and the
// word is not yet spelled.
func (c *Controller) ticking() bool {
	return c.layout.Load() != nil && !c.state.Load().IsComplete
}

func (c *Controller) currentLayout() game.Layout {
	if l := c.layout.Load(); l != nil {
		return *l
	}
	return game.Layout{}
}

func (c *Controller) commit(s *game.State) {
	c.state.Store(s)
	c.events.Publish(Event{Type: EventState, State: s})
}

func (c *Controller) step() {
	cur := c.state.Load()
	if next := c.engine.Step(cur, c.currentLayout()); next != cur {
		c.commit(next)
	}
}

func (c *Controller) apply(a input.PopAttempt) game.Result {
	c.touch()
	cur := c.state.Load()
	next, res := c.machine.Attempt(cur, c.currentLayout(), a.Target())
	if next != cur {
		c.commit(next)
	}
	log.Debug().
		Str("session", c.id).
		Str("source", string(a.Source)).
		Str("outcome", string(res.Outcome)).
		Msg("pop attempt")
	return res
}

func (c *Controller) scheduleAnnounce() {
	if c.announce != nil {
		c.announce.Stop()
	}
	word := c.state.Load().CurrentWord
	c.announce = time.AfterFunc(c.announceDelay, func() {
		select {
		case c.cmds <- func() {
			if s := c.state.Load(); s.CurrentWord == word {
				c.machine.Announce(s)
			}
		}:
		case <-c.done:
		}
	})
}

func (c *Controller) applySettings(s settings.AccessibilitySettings) {
	c.prefs.Store(&s)
	if t, ok := c.fb.(interface{ SetEnabled(bool) }); ok {
		t.SetEnabled(s.VoiceEnabled)
	}
	if err := c.speech.SetEnabled(s.VoiceEnabled); err != nil {
		log.Debug().Err(err).Str("session", c.id).Msg("voice channel")
	}
	c.gesture.SetEnabled(s.GestureEnabled)
	switch {
	case s.GestureEnabled && c.stopPipeline == nil:
		ctx, cancel := context.WithCancel(c.ctx)
		c.stopPipeline = cancel
		go func() {
			if err := c.pipeline.Run(ctx); err != nil {
				log.Warn().Err(err).Str("session", c.id).Msg("gesture pipeline")
			}
		}()
	case !s.GestureEnabled && c.stopPipeline != nil:
		c.stopPipeline()
		c.stopPipeline = nil
	}
}

// do runs fn on the loop goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(ran) }:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *Controller) touch() { c.lastActive.Store(time.Now().UnixNano()) }

// ---------------------------------------------------------------------------
// Public API

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// Owner returns the id whose settings this session follows.
func (c *Controller) Owner() string { return *c.owner.Load() }

// SetOwner moves the session to another owner, e.g. when a guest signs in.
func (c *Controller) SetOwner(owner string) { c.owner.Store(&owner) }

// Created returns when the session started.
func (c *Controller) Created() time.Time { return c.created }

// LastActive returns the time of the last player action.
func (c *Controller) LastActive() time.Time { return time.Unix(0, c.lastActive.Load()) }

// Snapshot returns the last committed state.
func (c *Controller) Snapshot() *game.State { return c.state.Load() }

// Layout returns the current layout, if one has been reported.
func (c *Controller) Layout() (game.Layout, bool) {
	l := c.layout.Load()
	if l == nil {
		return game.Layout{}, false
	}
	return *l, true
}

// Settings returns the settings last applied.
func (c *Controller) Settings() settings.AccessibilitySettings { return *c.prefs.Load() }

// Pointer returns the pointer input channel.
func (c *Controller) Pointer() *input.Pointer { return c.pointer }

// Gesture returns the gesture input channel.
func (c *Controller) Gesture() *input.Gesture { return c.gesture }

// Speech returns the voice input channel.
func (c *Controller) Speech() *input.Speech { return c.speech }

// Subscribe returns a channel of session events.
func (c *Controller) Subscribe() chan Event { return c.events.Subscribe() }

// Unsubscribe releases a channel returned by Subscribe.
func (c *Controller) Unsubscribe(ch chan Event) { c.events.Unsubscribe(ch) }

// Done is closed once the loop has stopped.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Submit queues an attempt without waiting for its outcome.
func (c *Controller) Submit(a input.PopAttempt) {
	select {
	case c.attempts <- a:
	case <-c.done:
	}
}

// Pop applies an attempt and returns its outcome.
func (c *Controller) Pop(ctx context.Context, a input.PopAttempt) (game.Result, error) {
	var res game.Result
	err := c.do(ctx, func() { res = c.apply(a) })
	return res, err
}

// Resize sets the game area size and recomputes the drop zone.
func (c *Controller) Resize(ctx context.Context, width, height float64) (game.Layout, error) {
	l, err := game.NewLayout(width, height)
	if err != nil {
		return game.Layout{}, err
	}
	return l, c.do(ctx, func() { c.layout.Store(&l) })
}

// Reset restarts the current word.
func (c *Controller) Reset(ctx context.Context) error {
	return c.do(ctx, func() {
		c.touch()
		c.commit(c.machine.Reset(c.state.Load()))
	})
}

// Hint speaks the next needed letter.
func (c *Controller) Hint(ctx context.Context) error {
	return c.do(ctx, func() {
		c.touch()
		c.machine.Hint(c.state.Load())
	})
}

// NextWord switches to word, or to a random different word when word is
// empty, and returns the word now in play.
func (c *Controller) NextWord(ctx context.Context, word string) (string, error) {
	var next string
	err := c.do(ctx, func() {
		c.touch()
		if word == "" {
			next = words.Next(c.state.Load().CurrentWord)
		} else {
			next = words.Normalize(word)
		}
		c.commit(game.NewState(next))
		c.scheduleAnnounce()
	})
	return next, err
}

// ApplySettings toggles the feedback and input channels.
func (c *Controller) ApplySettings(ctx context.Context, s settings.AccessibilitySettings) error {
	return c.do(ctx, func() { c.applySettings(s) })
}

// Sync returns once every command queued before it has run.
func (c *Controller) Sync(ctx context.Context) error { return c.do(ctx, func() {}) }

// Close stops the loop and waits for teardown.
func (c *Controller) Close() {
	c.cancel()
	<-c.done
}
