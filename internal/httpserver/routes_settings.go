package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/robalobadob/letterpop/internal/session"
	"github.com/robalobadob/letterpop/internal/settings"
)

const maxSettingsBody = 4 << 10

// mountSettings registers the accessibility settings routes. Every change is
// persisted and pushed to the caller's live sessions.
func (s *Server) mountSettings(r chi.Router) {
	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Patch("/settings", s.handlePatchSettings)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.settings.Load(r.Context(), s.ownerID(w, r))
	if err != nil {
		log.Warn().Err(err).Msg("load settings")
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBody))
	if err != nil || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		writeErr(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.saveSettings(w, r, settings.Parse(raw))
}

func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBody))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_body")
		return
	}
	owner := s.ownerID(w, r)
	cur, err := s.settings.Load(r.Context(), owner)
	if err != nil {
		log.Warn().Err(err).Msg("load settings")
	}
	next, err := settings.Patch(cur, raw)
	if errors.Is(err, settings.ErrInvalidPatch) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "patch_failed")
		return
	}
	s.saveSettings(w, r, next)
}

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request, prefs settings.AccessibilitySettings) {
	owner := s.ownerID(w, r)
	if err := s.settings.Save(r.Context(), owner, prefs); err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("save settings")
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.applySettings(r.Context(), owner, prefs)
	writeJSON(w, http.StatusOK, prefs)
}

// applySettings pushes prefs to every live session of owner.
func (s *Server) applySettings(ctx context.Context, owner string, prefs settings.AccessibilitySettings) {
	s.store.Range(func(c *session.Controller) bool {
		if c.Owner() == owner {
			if err := c.ApplySettings(ctx, prefs); err != nil {
				log.Debug().Err(err).Str("session", c.ID()).Msg("apply settings")
			}
		}
		return true
	})
}
