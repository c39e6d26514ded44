package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/models"
)

// SessionValidator gates display subscriptions. Implemented by the display
// app.
type SessionValidator interface {
	ValidateSession(sessionID string, eventID int64) (*models.Event, error)
}

// WebSocketHandler handles WebSocket upgrade requests for event rooms.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	sessions          SessionValidator
}

// NewWebSocketHandler creates a WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager, sessions SessionValidator) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		sessions:          sessions,
	}
}

// HandleEventConnection subscribes a client to an event room. Displays pass
// the session_id minted by the code lookup; connections without one join as
// operators.
func (h *WebSocketHandler) HandleEventConnection(w http.ResponseWriter, r *http.Request) {
	eventIDStr := r.URL.Query().Get("event_id")
	if eventIDStr == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}
	eventID, err := strconv.ParseInt(eventIDStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid event_id", http.StatusBadRequest)
		return
	}

	role := "operator"
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		if _, err := h.sessions.ValidateSession(sessionID, eventID); err != nil {
			http.Error(w, "invalid display session", http.StatusUnauthorized)
			return
		}
		role = "display"
	}

	if err := h.connectionManager.Upgrade(w, r, role, eventID); err != nil {
		log.Error().Err(err).Int64("event_id", eventID).Msg("failed to upgrade websocket connection")
	}
}

// HandleConnectionStats returns subscriber statistics.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers the WebSocket routes.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/events", h.HandleEventConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
