// internal/httpserver/routes_words.go
//
// Word list endpoints for the start screen.
//   - GET /words       → the playable word list
//   - GET /words/daily → today's word (same for everyone on a UTC date)

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/letterpop/internal/words"
)

func (s *Server) mountWords(r chi.Router) {
	r.Get("/words", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"words": words.List()})
	})
	r.Get("/words/daily", func(w http.ResponseWriter, r *http.Request) {
		word, date := words.Daily(time.Now(), s.cfg.DailySalt)
		writeJSON(w, http.StatusOK, map[string]string{"date": date, "word": word})
	})
}
