package models

import "time"

// TimerState is the per-event mutable countdown record. It exists from the
// first start of an event until the event completes or is deleted.
// RemainingTime is in milliseconds and may go negative (overtime).
type TimerState struct {
	EventID              int64     `json:"eventId"`
	CurrentActivityIndex int       `json:"currentActivityIndex"`
	ActivityStartTime    time.Time `json:"activityStartTime"`
	LastTickTime         time.Time `json:"lastTickTime"`
	RemainingTime        int64     `json:"remainingTime"`
	IsPaused             bool      `json:"isPaused"`
}

// Clone returns a copy of the timer state for safe reads outside the
// per-event critical section.
func (s *TimerState) Clone() *TimerState {
	c := *s
	return &c
}
