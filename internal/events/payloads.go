package events

import "github.com/cronology/cronology/internal/models"

// Payload types shared between the timer, gateway and bus packages.

// TickPayload is the periodic timer snapshot sent on every engine cycle.
type TickPayload struct {
	EventID          int64           `json:"eventId"`
	CurrentActivity  models.Activity `json:"currentActivity"`
	RemainingTime    int64           `json:"remainingTime"`
	Elapsed          int64           `json:"elapsed"`
	Event            *models.Event   `json:"event"`
	ActivityDuration int             `json:"activityDuration"`
}

// ActivityChangedPayload announces a transition to another activity, either
// by operator command or by auto-advance.
type ActivityChangedPayload struct {
	Event           *models.Event    `json:"event"`
	CurrentActivity *models.Activity `json:"currentActivity"`
	AutoAdvanced    bool             `json:"autoAdvanced,omitempty"`
	TimerReset      bool             `json:"timerReset,omitempty"`
	RemainingTime   *int64           `json:"remainingTime,omitempty"`
}

// TimerExtendedPayload announces a manual adjustment of the remaining time.
type TimerExtendedPayload struct {
	Event            *models.Event `json:"event"`
	ExtendedMinutes  int           `json:"extendedMinutes"`
	NewRemainingTime int64         `json:"newRemainingTime"`
}

// TimerResetPayload announces a reset of the current activity's countdown.
type TimerResetPayload struct {
	Event           *models.Event    `json:"event"`
	CurrentActivity *models.Activity `json:"currentActivity"`
	ResetTime       int64            `json:"resetTime"`
}

// AutoAdvanceChangedPayload announces a change of the auto-advance policy.
type AutoAdvanceChangedPayload struct {
	Event       *models.Event `json:"event"`
	AutoAdvance bool          `json:"autoAdvance"`
}

// AllowNegativeTimeChangedPayload announces a change of the overtime flag.
type AllowNegativeTimeChangedPayload struct {
	Event             *models.Event `json:"event"`
	AllowNegativeTime bool          `json:"allowNegativeTime"`
}
