package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/playback"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, errorResponse{Error: message}, status)
}

// respondErr maps domain errors to status codes.
func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		respondError(w, "internal error", status)
		return
	}
	respondError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound), errors.Is(err, playback.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrRunActive), errors.Is(err, playback.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidSession):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
