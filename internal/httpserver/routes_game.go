// internal/httpserver/routes_game.go
//
// Game session endpoints.
//   - POST   /game/new            → start a session for a word
//   - GET    /game/{id}           → committed snapshot plus channel status
//   - POST   /game/{id}/layout    → container resize (recomputes the drop zone)
//   - POST   /game/{id}/pop       → pointer click on a letter
//   - POST   /game/{id}/zone-pop  → drop-zone button
//   - POST   /game/{id}/reset     → restart the word
//   - POST   /game/{id}/hint      → speak the next letter
//   - POST   /game/{id}/next      → switch to another word
//   - DELETE /game/{id}           → leave the game

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/letterpop/internal/game"
	"github.com/robalobadob/letterpop/internal/input"
	"github.com/robalobadob/letterpop/internal/realtime"
	"github.com/robalobadob/letterpop/internal/session"
	"github.com/robalobadob/letterpop/internal/settings"
	"github.com/robalobadob/letterpop/internal/store"
	"github.com/robalobadob/letterpop/internal/words"
)

// remoteIO holds the client-hosted collaborators of one session. Their
// start/stop commands wait in cmds until a socket writer delivers them.
type remoteIO struct {
	rec  *input.RemoteRecognizer
	cam  *input.RemoteCamera
	cmds *realtime.Mailbox[string]
}

// commandFamily groups commands that supersede each other ("speech.stop"
// replaces a pending "speech.start").
func commandFamily(cmd string) string {
	family, _, _ := strings.Cut(cmd, ".")
	return family
}

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Get("/game/{id}", s.handleGetGame)
	r.Delete("/game/{id}", s.handleDeleteGame)
	r.Post("/game/{id}/layout", s.handleLayout)
	r.Post("/game/{id}/pop", s.handlePop)
	r.Post("/game/{id}/zone-pop", s.handleZonePop)
	r.Post("/game/{id}/reset", s.handleReset)
	r.Post("/game/{id}/hint", s.handleHint)
	r.Post("/game/{id}/next", s.handleNext)
}

// newGameReq is the POST /game/new payload.
type newGameReq struct {
	Word   string `json:"word"`   // route word; normalised, empty → "apple"
	Random bool   `json:"random"` // ignore Word and pick from the list
}

// gameView is what clients render.
type gameView struct {
	ID       string                         `json:"id"`
	Status   string                         `json:"status"`
	State    *game.State                    `json:"state"`
	Layout   *game.Layout                   `json:"layout,omitempty"`
	Speech   input.SpeechStatus             `json:"speech"`
	Gesture  input.GestureStatus            `json:"gesture"`
	Settings settings.AccessibilitySettings `json:"settings"`
}

func viewOf(c *session.Controller) gameView {
	st := c.Snapshot()
	v := gameView{
		ID:       c.ID(),
		Status:   st.Status(),
		State:    st,
		Speech:   c.Speech().Status(),
		Gesture:  c.Gesture().Status(),
		Settings: c.Settings(),
	}
	if l, ok := c.Layout(); ok {
		v.Layout = &l
	}
	return v
}

// newSession starts a controller whose speech and camera live on the client.
func (s *Server) newSession(owner, word string, prefs settings.AccessibilitySettings) *session.Controller {
	cmds := realtime.NewMailbox(commandFamily)
	send := func(cmd string) error {
		cmds.Put(cmd)
		return nil
	}
	io := &remoteIO{rec: input.NewRemoteRecognizer(send), cam: input.NewRemoteCamera(send), cmds: cmds}

	opts := session.Options{
		Owner:              owner,
		Word:               word,
		TickInterval:       s.cfg.TickInterval,
		AnnounceDelay:      s.cfg.AnnounceDelay,
		SpeechRestartDelay: s.cfg.SpeechRestartDelay,
		Recognizer:         io.rec,
		Camera:             io.cam,
		Detector:           input.PassthroughDetector{},
		Classifier:         input.HeuristicClassifier{},
		Settings:           &prefs,
	}
	if s.tune != nil {
		s.tune(&opts)
	}
	c := session.New(s.ctx, opts)
	s.remotes.Store(c.ID(), io)
	go func() {
		<-c.Done()
		io.rec.Close()
		s.remotes.Delete(c.ID())
	}()
	return c
}

func (s *Server) remote(id string) *remoteIO {
	v, ok := s.remotes.Load(id)
	if !ok {
		return nil
	}
	return v.(*remoteIO)
}

// handleNewGame creates a session for the caller, applying their stored settings.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body is fine

	word := words.Normalize(req.Word)
	if req.Random {
		word = words.Random()
	}
	owner := s.ownerID(w, r)
	prefs, err := s.settings.Load(r.Context(), owner)
	if err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("load settings")
	}

	c := s.newSession(owner, word, prefs)
	if err := s.store.Save(r.Context(), c); err != nil {
		c.Close()
		log.Error().Err(err).Msg("save session")
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"gameId": c.ID(), "game": viewOf(c)})
}

// session loads the {id} session or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return c, true
}

// sessionErr maps controller errors to responses.
func sessionErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrClosed):
		writeErr(w, http.StatusGone, "session_closed")
	case errors.Is(err, game.ErrBadLayout):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		writeErr(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "not_found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type layoutReq struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	var req layoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_json")
		return
	}
	l, err := c.Resize(r.Context(), req.Width, req.Height)
	if err != nil {
		sessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type popReq struct {
	LetterID string `json:"letterId"`
}

type popRes struct {
	Result game.Result `json:"result"`
	State  *game.State `json:"state"`
}

func (s *Server) handlePop(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	var req popReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LetterID == "" {
		writeErr(w, http.StatusBadRequest, "letterId required")
		return
	}
	s.pop(w, r, c, input.PopAttempt{Source: input.SourcePointer, LetterID: req.LetterID, At: time.Now()})
}

func (s *Server) handleZonePop(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	s.pop(w, r, c, input.PopAttempt{Source: input.SourceZone, At: time.Now()})
}

func (s *Server) pop(w http.ResponseWriter, r *http.Request, c *session.Controller, a input.PopAttempt) {
	res, err := c.Pop(r.Context(), a)
	if err != nil {
		sessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, popRes{Result: res, State: c.Snapshot()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := c.Reset(r.Context()); err != nil {
		sessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := c.Hint(r.Context()); err != nil {
		sessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"next": c.Snapshot().NextLetter()})
}

type nextReq struct {
	Word string `json:"word"` // empty → random word other than the current one
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	var req nextReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if _, err := c.NextWord(r.Context(), req.Word); err != nil {
		sessionErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}
