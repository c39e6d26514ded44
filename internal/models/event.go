package models

import "time"

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusActive    EventStatus = "active"
	EventStatusPaused    EventStatus = "paused"
	EventStatusCompleted EventStatus = "completed"
)

// Activity is one named, timed segment of an event's agenda.
// Duration is in minutes.
type Activity struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

// Event represents a scheduled event with an ordered agenda of activities
type Event struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description,omitempty"`
	Activities           []Activity  `json:"activities"`
	Status               EventStatus `json:"status"`
	CurrentActivityIndex int         `json:"currentActivityIndex"`
	AutoAdvance          bool        `json:"autoAdvance"`
	AllowNegativeTime    bool        `json:"allowNegativeTime"`
	DisplayCode          string      `json:"displayCode"`
	CreatedBy            string      `json:"createdBy"`
	CreatedAt            time.Time   `json:"createdAt"`
	StartedAt            *time.Time  `json:"startedAt,omitempty"`
}

// Clone returns a deep copy of the event. The repository hands out clones
// so callers can never mutate stored records outside the repository.
func (e *Event) Clone() *Event {
	c := *e
	if e.Activities != nil {
		c.Activities = make([]Activity, len(e.Activities))
		copy(c.Activities, e.Activities)
	}
	if e.StartedAt != nil {
		t := *e.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// CurrentActivity returns the activity at the event's current index, or nil
// if the agenda is empty or the index is out of range.
func (e *Event) CurrentActivity() *Activity {
	if e.CurrentActivityIndex < 0 || e.CurrentActivityIndex >= len(e.Activities) {
		return nil
	}
	return &e.Activities[e.CurrentActivityIndex]
}

// NextActivity returns the activity after the current one, or nil if the
// current activity is the last.
func (e *Event) NextActivity() *Activity {
	next := e.CurrentActivityIndex + 1
	if next < 1 || next >= len(e.Activities) {
		return nil
	}
	return &e.Activities[next]
}
