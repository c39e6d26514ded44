package timer

import (
	"sort"
	"sync"

	"github.com/cronology/cronology/internal/models"
)

// Registry holds the TimerState records for every started event, plus one
// mutex per event id. The per-event mutex is the critical section shared by
// the engine's tick and the operator commands: any read-compute-write
// sequence against a TimerState must run under LockEvent for that id.
type Registry struct {
	mu     sync.Mutex
	states map[int64]*models.TimerState
	locks  map[int64]*sync.Mutex
}

// NewRegistry creates an empty timer state registry.
func NewRegistry() *Registry {
	return &Registry{
		states: make(map[int64]*models.TimerState),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// LockEvent acquires the per-event mutex, creating it on first use, and
// returns the unlock function.
func (r *Registry) LockEvent(eventID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[eventID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the live TimerState for an event. Callers must hold the
// event's lock while reading or mutating it.
func (r *Registry) Get(eventID int64) (*models.TimerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[eventID]
	return st, ok
}

// Put installs or replaces the TimerState for an event. Callers must hold
// the event's lock.
func (r *Registry) Put(st *models.TimerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[st.EventID] = st
}

// Remove tears down the TimerState and lock for an event. Called when an
// event completes or is deleted so stale states never keep ticking.
func (r *Registry) Remove(eventID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, eventID)
	delete(r.locks, eventID)
}

// EventIDs returns the ids of all events with a TimerState, ordered for
// deterministic sweeps.
func (r *Registry) EventIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
