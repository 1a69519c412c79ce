// internal/httpserver/routes_audio.go
//
// Feedback tones for clients without a local synthesizer.
//   - GET /audio/{kind}.wav → correct | incorrect | complete, rendered once and cached

package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/letterpop/internal/audio"
	"github.com/robalobadob/letterpop/internal/game"
)

// mountAudio serves the synthesized feedback tones as WAV files.
func (s *Server) mountAudio(r chi.Router) {
	r.Get("/audio/{kind}.wav", func(w http.ResponseWriter, r *http.Request) {
		data, err := s.tones.WAV(game.Sound(chi.URLParam(r, "kind")))
		if errors.Is(err, audio.ErrUnknownSound) {
			writeErr(w, http.StatusNotFound, "unknown_sound")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("render tone")
			writeErr(w, http.StatusInternalServerError, "render_failed")
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
	})
}
