package timer

import (
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/models"
)

// ErrInvalidActivityIndex is returned by GotoActivity for an index outside
// the event's agenda.
var ErrInvalidActivityIndex = errors.New("activity index out of range")

// App executes operator timer commands. Every command runs inside the same
// per-event critical section as the engine's tick, so a command and a tick
// for one event never interleave.
type App struct {
	registry    *Registry
	store       Store
	broadcaster events.Broadcaster
	clock       clockwork.Clock
}

// NewApp creates the timer command application.
func NewApp(registry *Registry, store Store, broadcaster events.Broadcaster, clock clockwork.Clock) *App {
	return &App{
		registry:    registry,
		store:       store,
		broadcaster: broadcaster,
		clock:       clock,
	}
}

// StateSnapshot is the timer-state query response.
type StateSnapshot struct {
	Event           *models.Event      `json:"event"`
	TimerState      *models.TimerState `json:"timerState"`
	CurrentActivity *models.Activity   `json:"currentActivity"`
	NextActivity    *models.Activity   `json:"nextActivity"`
}

// Start activates an event and creates (or replaces) its TimerState at the
// event's current activity with that activity's full duration.
func (a *App) Start(eventID int64) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	now := a.clock.Now()
	evt, err := a.store.UpdateStatus(eventID, models.EventStatusActive, now)
	if err != nil {
		return nil, err
	}

	var remaining int64
	if act := evt.CurrentActivity(); act != nil {
		remaining = int64(act.Duration) * msPerMinute
	}
	a.registry.Put(&models.TimerState{
		EventID:              eventID,
		CurrentActivityIndex: evt.CurrentActivityIndex,
		ActivityStartTime:    now,
		LastTickTime:         now,
		RemainingTime:        remaining,
	})

	log.Info().Int64("event_id", eventID).Int("activity", evt.CurrentActivityIndex).Msg("event started")
	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeEventStarted, evt))
	return evt, nil
}

// Pause suspends the countdown. A pause with no TimerState only changes the
// event status.
func (a *App) Pause(eventID int64) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.UpdateStatus(eventID, models.EventStatusPaused, a.clock.Now())
	if err != nil {
		return nil, err
	}
	if st, ok := a.registry.Get(eventID); ok {
		st.IsPaused = true
	}

	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeEventPaused, evt))
	return evt, nil
}

// Resume continues a paused countdown. LastTickTime is moved to now so the
// paused interval is not charged against the remaining time.
func (a *App) Resume(eventID int64) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.UpdateStatus(eventID, models.EventStatusActive, a.clock.Now())
	if err != nil {
		return nil, err
	}
	if st, ok := a.registry.Get(eventID); ok {
		st.IsPaused = false
		st.LastTickTime = a.clock.Now()
	}

	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeEventResumed, evt))
	return evt, nil
}

// NextActivity moves to the following activity without resetting the
// remaining time; leftover time carries over. On the last activity this is
// a no-op that still returns the event. The asymmetry with GotoActivity is
// intentional product behavior.
func (a *App) NextActivity(eventID int64) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.Get(eventID)
	if err != nil {
		return nil, err
	}
	if evt.CurrentActivityIndex >= len(evt.Activities)-1 {
		return evt, nil
	}

	evt, err = a.store.SetCurrentActivityIndex(eventID, evt.CurrentActivityIndex+1)
	if err != nil {
		return nil, err
	}
	if st, ok := a.registry.Get(eventID); ok {
		st.CurrentActivityIndex = evt.CurrentActivityIndex
		st.ActivityStartTime = a.clock.Now()
	}

	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeActivityChanged, events.ActivityChangedPayload{
		Event:           evt,
		CurrentActivity: evt.CurrentActivity(),
	}))
	return evt, nil
}

// GotoActivity jumps to an arbitrary activity and resets the countdown to
// that activity's full duration.
func (a *App) GotoActivity(eventID int64, index int) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.Get(eventID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(evt.Activities) {
		return nil, ErrInvalidActivityIndex
	}

	evt, err = a.store.SetCurrentActivityIndex(eventID, index)
	if err != nil {
		return nil, err
	}

	payload := events.ActivityChangedPayload{
		Event:           evt,
		CurrentActivity: evt.CurrentActivity(),
		TimerReset:      true,
	}
	if st, ok := a.registry.Get(eventID); ok {
		now := a.clock.Now()
		st.CurrentActivityIndex = index
		st.ActivityStartTime = now
		st.LastTickTime = now
		st.RemainingTime = int64(evt.Activities[index].Duration) * msPerMinute
		remaining := st.RemainingTime
		payload.RemainingTime = &remaining
	}

	log.Info().Int64("event_id", eventID).Int("activity", index).Msg("jumped to activity")
	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeActivityChanged, payload))
	return evt, nil
}

// ExtendTime adds minutes to the current activity's remaining time.
// Negative minutes shorten it. Without a TimerState or current activity the
// command is a safe no-op that still returns the event.
func (a *App) ExtendTime(eventID int64, minutes int) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.Get(eventID)
	if err != nil {
		return nil, err
	}

	st, ok := a.registry.Get(eventID)
	if evt.CurrentActivity() == nil || !ok {
		return evt, nil
	}

	st.RemainingTime += int64(minutes) * msPerMinute
	log.Info().Int64("event_id", eventID).Int("minutes", minutes).Int64("remaining_ms", st.RemainingTime).Msg("timer extended")

	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeTimerExtended, events.TimerExtendedPayload{
		Event:            evt,
		ExtendedMinutes:  minutes,
		NewRemainingTime: st.RemainingTime,
	}))
	return evt, nil
}

// ResetTimer restores the current activity's full duration, regardless of
// prior extensions.
func (a *App) ResetTimer(eventID int64) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.Get(eventID)
	if err != nil {
		return nil, err
	}

	act := evt.CurrentActivity()
	st, ok := a.registry.Get(eventID)
	if act == nil || !ok {
		return evt, nil
	}

	now := a.clock.Now()
	st.RemainingTime = int64(act.Duration) * msPerMinute
	st.ActivityStartTime = now
	st.LastTickTime = now

	log.Info().Int64("event_id", eventID).Str("activity", act.Name).Msg("timer reset")
	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeTimerReset, events.TimerResetPayload{
		Event:           evt,
		CurrentActivity: act,
		ResetTime:       st.RemainingTime,
	}))
	return evt, nil
}

// SetAutoAdvance toggles the auto-advance policy for an event.
func (a *App) SetAutoAdvance(eventID int64, enabled bool) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.SetAutoAdvance(eventID, enabled)
	if err != nil {
		return nil, err
	}

	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeAutoAdvanceChanged, events.AutoAdvanceChangedPayload{
		Event:       evt,
		AutoAdvance: enabled,
	}))
	return evt, nil
}

// SetAllowNegativeTime toggles the overtime flag. The flag is stored and
// broadcast for clients; the engine does not consult it.
func (a *App) SetAllowNegativeTime(eventID int64, enabled bool) (*models.Event, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.SetAllowNegativeTime(eventID, enabled)
	if err != nil {
		return nil, err
	}

	a.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeAllowNegativeTimeChanged, events.AllowNegativeTimeChangedPayload{
		Event:             evt,
		AllowNegativeTime: enabled,
	}))
	return evt, nil
}

// State returns a consistent snapshot of the event and its timer for the
// timer-state query. TimerState is nil for events never started.
func (a *App) State(eventID int64) (*StateSnapshot, error) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	evt, err := a.store.Get(eventID)
	if err != nil {
		return nil, err
	}

	snap := &StateSnapshot{
		Event:           evt,
		CurrentActivity: evt.CurrentActivity(),
		NextActivity:    evt.NextActivity(),
	}
	if st, ok := a.registry.Get(eventID); ok {
		snap.TimerState = st.Clone()
	}
	return snap, nil
}

// Teardown removes an event's TimerState. Called on completion and
// deletion so finished events never keep ticking.
func (a *App) Teardown(eventID int64) {
	unlock := a.registry.LockEvent(eventID)
	defer unlock()

	if _, ok := a.registry.Get(eventID); ok {
		a.registry.Remove(eventID)
		log.Info().Int64("event_id", eventID).Msg("timer state removed")
	}
}
