package timer

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/models"
)

const (
	// DefaultTickInterval is the cadence of the single scheduling loop that
	// drives every event's countdown.
	DefaultTickInterval = time.Second

	// autoAdvanceGraceMs is how far into overtime an activity may run before
	// auto-advance fires. Fixed, not configurable per event.
	autoAdvanceGraceMs = 5000

	msPerMinute = 60_000
)

// Store is what the timer package needs from the event store.
type Store interface {
	Get(id int64) (*models.Event, error)
	UpdateStatus(id int64, status models.EventStatus, now time.Time) (*models.Event, error)
	SetCurrentActivityIndex(id int64, index int) (*models.Event, error)
	SetAutoAdvance(id int64, enabled bool) (*models.Event, error)
	SetAllowNegativeTime(id int64, enabled bool) (*models.Event, error)
}

// Engine advances every started event's countdown on a fixed cadence and
// applies the auto-advance policy. One engine drives all events; there is
// no per-event goroutine.
type Engine struct {
	clock       clockwork.Clock
	interval    time.Duration
	registry    *Registry
	store       Store
	broadcaster events.Broadcaster
}

// NewEngine creates a timer engine. Pass clockwork.NewRealClock() in
// production; tests inject a FakeClock and drive Sweep directly.
func NewEngine(clock clockwork.Clock, interval time.Duration, registry *Registry, store Store, broadcaster events.Broadcaster) *Engine {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Engine{
		clock:       clock,
		interval:    interval,
		registry:    registry,
		store:       store,
		broadcaster: broadcaster,
	}
}

// Run executes the scheduling loop until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().Dur("interval", e.interval).Msg("timer engine started")

	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer engine shutting down")
			return nil
		case <-ticker.Chan():
			e.Sweep()
		}
	}
}

// Sweep runs one tick cycle over every event with a TimerState. A failure
// processing one event is logged and never stops the others.
func (e *Engine) Sweep() {
	for _, id := range e.registry.EventIDs() {
		if err := e.tick(id); err != nil {
			log.Error().Err(err).Int64("event_id", id).Msg("tick failed")
		}
	}
}

// tick advances a single event's countdown inside its critical section.
// At most one activity transition happens per cycle, and the tick snapshot
// is suppressed on a cycle that auto-advances.
func (e *Engine) tick(eventID int64) error {
	unlock := e.registry.LockEvent(eventID)
	defer unlock()

	st, ok := e.registry.Get(eventID)
	if !ok {
		return nil
	}

	evt, err := e.store.Get(eventID)
	if err != nil {
		return err
	}
	if evt.Status != models.EventStatusActive || st.IsPaused {
		return nil
	}
	if st.CurrentActivityIndex < 0 || st.CurrentActivityIndex >= len(evt.Activities) {
		// Should not happen per the index invariant; skip defensively.
		return nil
	}
	activity := evt.Activities[st.CurrentActivityIndex]

	now := e.clock.Now()
	last := st.LastTickTime
	if last.IsZero() {
		last = st.ActivityStartTime
	}
	st.LastTickTime = now

	// Subtract elapsed wall time instead of recomputing from a deadline so
	// manual extensions and resets stay additive and a late tick never
	// double-counts time.
	st.RemainingTime -= now.Sub(last).Milliseconds()

	if st.RemainingTime <= -autoAdvanceGraceMs && evt.AutoAdvance && st.CurrentActivityIndex < len(evt.Activities)-1 {
		return e.autoAdvance(evt, st, now)
	}

	e.broadcaster.Broadcast(eventID, events.New(eventID, events.TypeTimerTick, events.TickPayload{
		EventID:          eventID,
		CurrentActivity:  activity,
		RemainingTime:    st.RemainingTime,
		Elapsed:          now.Sub(st.ActivityStartTime).Milliseconds(),
		Event:            evt,
		ActivityDuration: activity.Duration,
	}))
	return nil
}

// autoAdvance moves an event to its next activity after the overtime grace
// window. The event never completes autonomously: on the last activity
// overtime accumulates until an operator acts.
func (e *Engine) autoAdvance(evt *models.Event, st *models.TimerState, now time.Time) error {
	from := st.CurrentActivityIndex
	st.CurrentActivityIndex++

	evt, err := e.store.SetCurrentActivityIndex(evt.ID, st.CurrentActivityIndex)
	if err != nil {
		st.CurrentActivityIndex = from
		return err
	}

	next := evt.Activities[st.CurrentActivityIndex]
	st.ActivityStartTime = now
	st.LastTickTime = now
	st.RemainingTime = int64(next.Duration) * msPerMinute

	log.Info().
		Int64("event_id", evt.ID).
		Int("from", from).
		Int("to", st.CurrentActivityIndex).
		Msg("auto-advanced to next activity")

	e.broadcaster.Broadcast(evt.ID, events.New(evt.ID, events.TypeActivityChanged, events.ActivityChangedPayload{
		Event:           evt,
		CurrentActivity: &next,
		AutoAdvanced:    true,
		TimerReset:      true,
	}))
	return nil
}
