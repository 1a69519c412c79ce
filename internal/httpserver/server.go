// internal/httpserver/server.go
//
// HTTP server wiring for the Letter Pop backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access logs).
//   - Public endpoints: "/", "/health", "/words", "/words/daily", "/audio/{kind}.wav".
//   - Game endpoints (optional auth): /game/new, /game/{id}/..., WebSocket at /game/{id}/ws.
//   - Settings endpoints (optional auth): GET/PUT/PATCH /settings.
//   - Auth endpoints: /auth/signup, /auth/login, /auth/logout, /auth/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Guests are identified by an anonymous cookie; their settings move to
//     the account on signup/login.
//   - The WebSocket route is mounted outside the handler timeout.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/letterpop/internal/audio"
	"github.com/robalobadob/letterpop/internal/config"
	"github.com/robalobadob/letterpop/internal/session"
	"github.com/robalobadob/letterpop/internal/settings"
	"github.com/robalobadob/letterpop/internal/store"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Store    store.Store
	DB       *sql.DB // users table; nil disables accounts
	Settings settings.Store
	Config   config.Config

	// Session, if set, adjusts options for every new session (tests inject
	// tick sources here).
	Session func(*session.Options)
}

// Server bundles router, session registry, settings store and DB handle.
type Server struct {
	r        *chi.Mux
	store    store.Store
	db       *sql.DB
	settings settings.Store
	cfg      config.Config
	tones    *audio.Bank
	tune     func(*session.Options)

	remotes sync.Map // session id → *remoteIO

	ctx    context.Context
	cancel context.CancelFunc
	http   *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Store == nil {
		d.Store = store.NewMemoryStore()
	}
	if d.Settings == nil {
		d.Settings = settings.NewMemoryStore()
	}
	s := &Server{
		r:        chi.NewRouter(),
		store:    d.Store,
		db:       d.DB,
		settings: d.Settings,
		cfg:      d.Config,
		tones:    audio.NewBank(),
		tune:     d.Session,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)      // recover from panics
	s.r.Use(jsonContentType)      // default JSON responses
	s.r.Use(s.cors)               // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth()) // decorate with the account, if any

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "letterpop",
			"endpoints": []string{"/health", "/words", "POST /game/new", "/game/{id}/ws", "/settings", "/auth/*"},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.store.Len()})
	})

	// Streaming route: no handler timeout.
	s.r.Get("/game/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		s.mountWords(r)
		s.mountAudio(r)
		s.mountGame(r)
		s.mountSettings(r)
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	go s.sweep()
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.store.CloseAll()
	return err
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// sweep closes abandoned sessions.
func (s *Server) sweep() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			if n := s.store.Sweep(s.ctx, 30*time.Minute); n > 0 {
				log.Info().Int("closed", n).Msg("swept idle sessions")
			}
		}
	}
}

// ----------------------------- middleware ----------------------------------

func accessLog(r *http.Request, status, size int, dur time.Duration) {
	hlog.FromRequest(r).Info().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", dur).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
