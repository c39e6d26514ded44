package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/display"
	"github.com/cronology/cronology/internal/event"
	"github.com/cronology/cronology/internal/timer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps domain sentinels to HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, event.ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, timer.ErrInvalidActivityIndex):
		writeError(w, http.StatusBadRequest, "Activity index out of range")
	case errors.Is(err, display.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "Invalid code format. Must be 6 alphanumeric characters.")
	case errors.Is(err, display.ErrCodeNotFound):
		writeError(w, http.StatusNotFound, "Display code not found. Please check the code and try again.")
	case errors.Is(err, display.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "Invalid session. Please enter display code again.")
	case errors.Is(err, display.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "Session expired. Please enter display code again.")
	case errors.Is(err, display.ErrSessionMismatch):
		writeError(w, http.StatusForbidden, "Session does not match requested event.")
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
