package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/cronology/cronology/internal/event"
	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/models"
)

// recordingBroadcaster captures envelopes for assertions.
type recordingBroadcaster struct {
	mu        sync.Mutex
	envelopes []*events.Envelope
}

func (b *recordingBroadcaster) Broadcast(eventID int64, env *events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = append(b.envelopes, env)
}

func (b *recordingBroadcaster) byType(typ events.Type) []*events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*events.Envelope
	for _, env := range b.envelopes {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = nil
}

// rig wires a repository, registry, engine and command app around a fake
// clock.
type rig struct {
	clock    *clockwork.FakeClock
	repo     *event.Repository
	registry *Registry
	engine   *Engine
	app      *App
	bc       *recordingBroadcaster
}

func newRig(activities []models.Activity) (*rig, *models.Event) {
	clock := clockwork.NewFakeClock()
	repo := event.NewRepository()
	registry := NewRegistry()
	bc := &recordingBroadcaster{}

	r := &rig{
		clock:    clock,
		repo:     repo,
		registry: registry,
		engine:   NewEngine(clock, DefaultTickInterval, registry, repo, bc),
		app:      NewApp(registry, repo, bc, clock),
		bc:       bc,
	}
	evt := repo.Create(event.CreateEventRequest{
		Name:       "Sunday Service",
		Activities: activities,
	}, "tester", clock.Now())
	return r, evt
}

// step advances the fake clock and runs one engine cycle.
func (r *rig) step(d time.Duration) {
	r.clock.Advance(d)
	r.engine.Sweep()
}

func minutes(m int) int64 {
	return int64(m) * msPerMinute
}
