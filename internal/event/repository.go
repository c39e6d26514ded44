package event

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cronology/cronology/internal/models"
)

// ErrNotFound is returned when no event exists for the given id.
var ErrNotFound = errors.New("event not found")

// Repository is the in-memory event store. It exclusively owns Event
// records: every read returns a clone and every write goes through a
// repository method under the store lock.
type Repository struct {
	mu     sync.RWMutex
	events map[int64]*models.Event
	nextID int64
}

// NewRepository creates an empty in-memory event repository.
func NewRepository() *Repository {
	return &Repository{
		events: make(map[int64]*models.Event),
		nextID: 1,
	}
}

// Create stores a new event and assigns its id.
func (r *Repository) Create(req CreateEventRequest, createdBy string, now time.Time) *models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt := &models.Event{
		ID:                   r.nextID,
		Name:                 req.Name,
		Description:          req.Description,
		Activities:           append([]models.Activity(nil), req.Activities...),
		Status:               models.EventStatusScheduled,
		CurrentActivityIndex: 0,
		AutoAdvance:          true,
		AllowNegativeTime:    true,
		CreatedBy:            createdBy,
		CreatedAt:            now,
	}
	r.nextID++
	r.events[evt.ID] = evt
	return evt.Clone()
}

// Get returns a clone of the event with the given id.
func (r *Repository) Get(id int64) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return evt.Clone(), nil
}

// List returns clones of all events ordered by id.
func (r *Repository) List() []*models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Event, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update applies the non-nil fields of req to the stored event.
func (r *Repository) Update(id int64, req UpdateEventRequest) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		evt.Name = *req.Name
	}
	if req.Description != nil {
		evt.Description = *req.Description
	}
	if req.Activities != nil {
		evt.Activities = append([]models.Activity(nil), (*req.Activities)...)
		if evt.CurrentActivityIndex >= len(evt.Activities) {
			evt.CurrentActivityIndex = 0
		}
	}
	if req.Status != nil {
		evt.Status = *req.Status
	}
	if req.AutoAdvance != nil {
		evt.AutoAdvance = *req.AutoAdvance
	}
	if req.AllowNegativeTime != nil {
		evt.AllowNegativeTime = *req.AllowNegativeTime
	}
	return evt.Clone(), nil
}

// Delete removes the event from the store.
func (r *Repository) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return ErrNotFound
	}
	delete(r.events, id)
	return nil
}

// UpdateStatus sets the event status. StartedAt is recorded on the first
// transition to active.
func (r *Repository) UpdateStatus(id int64, status models.EventStatus, now time.Time) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	evt.Status = status
	if status == models.EventStatusActive && evt.StartedAt == nil {
		t := now
		evt.StartedAt = &t
	}
	return evt.Clone(), nil
}

// SetCurrentActivityIndex moves the event's activity cursor.
func (r *Repository) SetCurrentActivityIndex(id int64, index int) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	evt.CurrentActivityIndex = index
	return evt.Clone(), nil
}

// SetAutoAdvance toggles the auto-advance policy.
func (r *Repository) SetAutoAdvance(id int64, enabled bool) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	evt.AutoAdvance = enabled
	return evt.Clone(), nil
}

// SetAllowNegativeTime toggles the overtime flag.
func (r *Repository) SetAllowNegativeTime(id int64, enabled bool) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	evt.AllowNegativeTime = enabled
	return evt.Clone(), nil
}

// SetDisplayCode binds a display code to the event.
func (r *Repository) SetDisplayCode(id int64, code string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evt, ok := r.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	evt.DisplayCode = code
	return evt.Clone(), nil
}
