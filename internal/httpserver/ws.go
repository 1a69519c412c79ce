// internal/httpserver/ws.go
//
// WebSocket transport for a game session.
//
// Inbound (client → server), dispatched on the "type" field:
//   click {letterId} · zonePop · layout {width,height} · reset · hint · next {word}
//   speech {event,transcript,error}   recognizer events from the browser
//   hands {width,height,hands}        landmarks located on the client
//   fist {probability,hand}           fist probability computed on the client
//   camera {ok,error}                 camera availability
//
// Outbound (server → client): state, cue, speech, gesture, error, and the
// commands speech.start / speech.stop / camera.start / camera.stop.
//
// One writer goroutine owns the connection for writes; the reader only
// enqueues replies. Events may be dropped for a slow client, commands are
// not: they wait in the session's mailbox until written.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/robalobadob/letterpop/internal/input"
	"github.com/robalobadob/letterpop/internal/realtime"
	"github.com/robalobadob/letterpop/internal/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 64 << 10
	wsCmdTimeout = 5 * time.Second
)

var errUnknownMessage = errors.New("unknown message type")

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host requests and the configured client origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.ClientOrigin {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	// Let the loop apply the session's initial settings before reporting status.
	_ = c.Sync(r.Context())
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade")
		return // Upgrade already replied
	}
	logger := log.With().Str("session", c.ID()).Logger()
	logger.Info().Msg("socket attached")

	rio := s.remote(c.ID())
	var cmds *realtime.Mailbox[string]
	if rio != nil {
		cmds = rio.cmds
	}
	sub := c.Subscribe()
	out := make(chan []byte, 32)
	done := make(chan struct{})
	go wsWriter(conn, sub, out, cmds, done)

	// Bring the client up to date and replay commands it may have missed.
	enqueue(out, session.Event{Type: session.EventState, State: c.Snapshot()})
	sp, gs := c.Speech().Status(), c.Gesture().Status()
	enqueue(out, session.Event{Type: session.EventSpeech, Speech: &sp})
	enqueue(out, session.Event{Type: session.EventGesture, Gesture: &gs})
	if cmds != nil {
		if sp.Enabled {
			cmds.Put(input.CommandSpeechStart)
		}
		if c.Settings().GestureEnabled {
			cmds.Put(input.CommandCameraStart)
		}
	}

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("socket read")
			}
			break
		}
		if err := s.dispatch(c, rio, msg); err != nil {
			enqueue(out, map[string]string{"type": "error", "error": err.Error()})
		}
	}
	close(done)
	c.Unsubscribe(sub)
	logger.Info().Msg("socket detached")
}

// enqueue marshals v for the writer, dropping it if the client is too slow.
func enqueue(out chan<- []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal socket message")
		return
	}
	select {
	case out <- b:
	default:
	}
}

func wsWriter(conn *websocket.Conn, sub <-chan session.Event, out <-chan []byte, cmds *realtime.Mailbox[string], done <-chan struct{}) {
	var ready <-chan struct{} // nil blocks forever
	if cmds != nil {
		ready = cmds.Ready()
	}
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		_ = conn.Close()
	}()
	write := func(b []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteMessage(websocket.TextMessage, b) == nil
	}
	for {
		select {
		case <-done:
			return
		case b := <-out:
			if !write(b) {
				return
			}
		case ev, ok := <-sub:
			if !ok {
				// Session ended.
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			b, err := json.Marshal(ev)
			if err != nil || !write(b) {
				return
			}
		case <-ready:
			for _, cmd := range cmds.Take() {
				b, err := json.Marshal(session.Event{Type: session.EventType(cmd)})
				if err != nil || !write(b) {
					return
				}
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch applies one inbound message.
func (s *Server) dispatch(c *session.Controller, rio *remoteIO, msg []byte) error {
	if !gjson.ValidBytes(msg) {
		return errors.New("invalid json")
	}
	ctx, cancel := context.WithTimeout(s.ctx, wsCmdTimeout)
	defer cancel()

	field := func(path string) gjson.Result { return gjson.GetBytes(msg, path) }

	switch typ := field("type").String(); typ {
	case "click":
		c.Pointer().Click(field("letterId").String())
	case "zonePop":
		c.Pointer().PressZone()
	case "layout":
		_, err := c.Resize(ctx, field("width").Float(), field("height").Float())
		return err
	case "reset":
		return c.Reset(ctx)
	case "hint":
		return c.Hint(ctx)
	case "next":
		_, err := c.NextWord(ctx, field("word").String())
		return err

	case "speech":
		if rio == nil {
			return input.ErrUnsupported
		}
		rio.rec.Push(input.RecognizerEvent{
			Kind:       input.EventKind(field("event").String()),
			Transcript: field("transcript").String(),
			Error:      field("error").String(),
		}, time.Second)
	case "hands":
		if rio == nil {
			return input.ErrUnsupported
		}
		var f input.Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			return fmt.Errorf("hands: %w", err)
		}
		f.Fist = nil
		rio.cam.Push(f)
	case "fist":
		if rio == nil {
			return input.ErrUnsupported
		}
		if hand := field("hand"); hand.Exists() && !hand.Bool() {
			rio.cam.Push(input.Frame{})
			return nil
		}
		p := field("probability").Float()
		rio.cam.Push(input.Frame{Fist: &p})
	case "camera":
		if rio == nil {
			return input.ErrUnsupported
		}
		if field("ok").Bool() {
			rio.cam.Deny("")
			c.Gesture().MarkSupported()
			return nil
		}
		reason := field("error").String()
		if reason == "" {
			reason = "camera unavailable"
		}
		rio.cam.Deny(reason)
		c.Gesture().MarkUnsupported("Camera access denied or unavailable. Gesture control is disabled.")

	default:
		return fmt.Errorf("%w: %q", errUnknownMessage, typ)
	}
	return nil
}
