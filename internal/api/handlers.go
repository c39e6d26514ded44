package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cronology/cronology/internal/display"
	"github.com/cronology/cronology/internal/event"
	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/models"
	"github.com/cronology/cronology/internal/timer"
)

// Handler serves the operator command API and the unauthenticated display
// endpoints.
type Handler struct {
	events      *event.App
	timers      *timer.App
	display     *display.App
	broadcaster events.Broadcaster
	auth        Authenticator
	startedAt   time.Time
}

// NewHandler creates the HTTP API handler.
func NewHandler(eventApp *event.App, timerApp *timer.App, displayApp *display.App, broadcaster events.Broadcaster, auth Authenticator) *Handler {
	return &Handler{
		events:      eventApp,
		timers:      timerApp,
		display:     displayApp,
		broadcaster: broadcaster,
		auth:        auth,
		startedAt:   time.Now(),
	}
}

// RegisterRoutes registers all API routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)

	mux.HandleFunc("GET /api/events", h.requireAuth(h.handleListEvents))
	mux.HandleFunc("POST /api/events", h.requireAuth(h.handleCreateEvent))
	mux.HandleFunc("GET /api/events/{id}", h.handleGetEvent)
	mux.HandleFunc("PUT /api/events/{id}", h.requireAuth(h.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", h.requireAuth(h.handleDeleteEvent))

	mux.HandleFunc("POST /api/events/{id}/start", h.requireAuth(h.timerCommand(h.timers.Start)))
	mux.HandleFunc("POST /api/events/{id}/pause", h.requireAuth(h.timerCommand(h.timers.Pause)))
	mux.HandleFunc("POST /api/events/{id}/resume", h.requireAuth(h.timerCommand(h.timers.Resume)))
	mux.HandleFunc("POST /api/events/{id}/next-activity", h.requireAuth(h.timerCommand(h.timers.NextActivity)))
	mux.HandleFunc("POST /api/events/{id}/goto-activity", h.requireAuth(h.handleGotoActivity))
	mux.HandleFunc("POST /api/events/{id}/extend-time", h.requireAuth(h.handleExtendTime))
	mux.HandleFunc("POST /api/events/{id}/reset-timer", h.requireAuth(h.timerCommand(h.timers.ResetTimer)))
	mux.HandleFunc("POST /api/events/{id}/auto-advance", h.requireAuth(h.handleSetAutoAdvance))
	mux.HandleFunc("POST /api/events/{id}/allow-negative-time", h.requireAuth(h.handleSetAllowNegativeTime))
	mux.HandleFunc("GET /api/events/{id}/timer-state", h.handleTimerState)

	mux.HandleFunc("GET /api/events/{id}/display-code", h.requireAuth(h.handleGetDisplayCode))
	mux.HandleFunc("POST /api/events/{id}/regenerate-code", h.requireAuth(h.handleRegenerateCode))
	mux.HandleFunc("GET /api/display/code/{code}", h.handleDisplayLookup)
	mux.HandleFunc("GET /api/display/session/{sessionId}/event/{eventId}", h.handleValidateSession)

	mux.HandleFunc("GET /api/templates", h.requireAuth(h.handleListTemplates))
	mux.HandleFunc("POST /api/templates", h.requireAuth(h.handleCreateTemplate))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).String(),
	})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.events.ListEvents())
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req event.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, err := h.events.CreateEvent(req, principalFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, evt)
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	evt, err := h.events.GetEvent(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req event.UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, err := h.events.UpdateEvent(id, req)
	if err != nil {
		respondError(w, err)
		return
	}

	// Completion is an operator action; tear the timer state down with it.
	if evt.Status == models.EventStatusCompleted {
		h.timers.Teardown(id)
	}

	h.broadcaster.Broadcast(id, events.New(id, events.TypeEventUpdated, evt))
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.events.DeleteEvent(id); err != nil {
		respondError(w, err)
		return
	}
	h.timers.Teardown(id)
	w.WriteHeader(http.StatusNoContent)
}

// timerCommand adapts the single-argument timer commands to handlers.
func (h *Handler) timerCommand(cmd func(int64) (*models.Event, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		evt, err := cmd(id)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, evt)
	}
}

func (h *Handler) handleGotoActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		ActivityIndex int `json:"activityIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, err := h.timers.GotoActivity(id, req.ActivityIndex)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) handleExtendTime(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, err := h.timers.ExtendTime(id, req.Minutes)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) handleSetAutoAdvance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		AutoAdvance bool `json:"autoAdvance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, err := h.timers.SetAutoAdvance(id, req.AutoAdvance)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) handleSetAllowNegativeTime(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		AllowNegativeTime bool `json:"allowNegativeTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	evt, err := h.timers.SetAllowNegativeTime(id, req.AllowNegativeTime)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) handleTimerState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	snapshot, err := h.timers.State(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleGetDisplayCode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	evt, err := h.events.GetEvent(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"displayCode": evt.DisplayCode})
}

func (h *Handler) handleRegenerateCode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	code, err := h.events.RegenerateDisplayCode(id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"displayCode": code})
}

func (h *Handler) handleDisplayLookup(w http.ResponseWriter, r *http.Request) {
	result, err := h.display.LookupByCode(r.PathValue("code"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleValidateSession(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventId")
	if !ok {
		return
	}
	evt, err := h.display.ValidateSession(r.PathValue("sessionId"), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "event": evt})
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.events.ListTemplates())
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req event.CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tpl, err := h.events.CreateTemplate(req, principalFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// pathID parses a numeric path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return 0, false
	}
	return id, true
}
