package events

import (
	"time"

	"github.com/google/uuid"
)

// Type names the kind of broadcast message. The names are part of the wire
// protocol consumed by control and display clients.
type Type string

const (
	TypeEventStarted             Type = "eventStarted"
	TypeEventPaused              Type = "eventPaused"
	TypeEventResumed             Type = "eventResumed"
	TypeEventUpdated             Type = "eventUpdated"
	TypeActivityChanged          Type = "activityChanged"
	TypeTimerTick                Type = "timerTick"
	TypeTimerExtended            Type = "timerExtended"
	TypeTimerReset               Type = "timerReset"
	TypeAutoAdvanceChanged       Type = "autoAdvanceChanged"
	TypeAllowNegativeTimeChanged Type = "allowNegativeTimeChanged"
	TypeDisplaySettingsChanged   Type = "displaySettingsChanged"
)

// Envelope is the wire format for every broadcast message. Data holds the
// type-specific payload.
type Envelope struct {
	ID        string    `json:"id"`
	EventID   int64     `json:"eventId"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// New builds a broadcast envelope for an event's topic.
func New(eventID int64, typ Type, payload any) *Envelope {
	return &Envelope{
		ID:        uuid.New().String(),
		EventID:   eventID,
		Type:      typ,
		Timestamp: time.Now(),
		Data:      payload,
	}
}

// Broadcaster fans a broadcast envelope out to every subscriber of an
// event's topic. Implementations must not block the caller; publishing
// happens inside the per-event critical section.
type Broadcaster interface {
	Broadcast(eventID int64, env *Envelope)
}

// Fanout broadcasts to multiple sinks in order, e.g. the WebSocket hub and
// an optional NATS mirror.
type Fanout []Broadcaster

func (f Fanout) Broadcast(eventID int64, env *Envelope) {
	for _, b := range f {
		b.Broadcast(eventID, env)
	}
}
