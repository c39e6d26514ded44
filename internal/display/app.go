package display

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/models"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// EventGetter is what the display app needs from the event store.
type EventGetter interface {
	Get(id int64) (*models.Event, error)
}

// LookupResult is the successful display-code lookup response.
type LookupResult struct {
	EventID   int64         `json:"eventId"`
	Event     *models.Event `json:"event"`
	SessionID string        `json:"sessionId"`
}

// App implements the unauthenticated display flow: code lookup mints a
// session, session validation gates subsequent state reads.
type App struct {
	registry *Registry
	sessions *SessionCache
	events   EventGetter
}

// NewApp creates the display application.
func NewApp(registry *Registry, sessions *SessionCache, events EventGetter) *App {
	return &App{
		registry: registry,
		sessions: sessions,
		events:   events,
	}
}

// LookupByCode normalizes and validates a human-entered code, resolves it
// to an event and mints a 24h display session.
func (a *App) LookupByCode(raw string) (*LookupResult, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return nil, ErrInvalidCode
	}

	eventID, ok := a.registry.Resolve(code)
	if !ok {
		log.Debug().Str("code", code).Msg("display code lookup failed")
		return nil, ErrCodeNotFound
	}

	evt, err := a.events.Get(eventID)
	if err != nil {
		// A code bound to a deleted event is as good as unknown.
		return nil, ErrCodeNotFound
	}

	session, err := a.sessions.Create(eventID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("code", code).
		Int64("event_id", eventID).
		Str("session_id", session.SessionID).
		Msg("display code verified")
	return &LookupResult{
		EventID:   eventID,
		Event:     evt,
		SessionID: session.SessionID,
	}, nil
}

// ValidateSession checks a session against the event it claims and returns
// the current event snapshot.
func (a *App) ValidateSession(sessionID string, eventID int64) (*models.Event, error) {
	session, err := a.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if session.EventID != eventID {
		return nil, ErrSessionMismatch
	}
	return a.events.Get(eventID)
}
