package models

import "time"

// DisplaySession is a time-limited token bound to one event, issued after a
// successful display-code lookup. Sessions expire lazily on first access
// past ExpiresAt.
type DisplaySession struct {
	SessionID string    `json:"sessionId"`
	EventID   int64     `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
