package event

import (
	"sort"
	"sync"
	"time"

	"github.com/cronology/cronology/internal/models"
)

// Template is a reusable agenda that can seed new events.
type Template struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Activities  []models.Activity `json:"activities"`
	CreatedBy   string            `json:"createdBy"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// TemplateRepository is the in-memory template store.
type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[int64]*Template
	nextID    int64
}

// NewTemplateRepository creates an empty template repository.
func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{
		templates: make(map[int64]*Template),
		nextID:    1,
	}
}

// Create stores a new template and assigns its id.
func (r *TemplateRepository) Create(req CreateTemplateRequest, createdBy string, now time.Time) *Template {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl := &Template{
		ID:          r.nextID,
		Name:        req.Name,
		Description: req.Description,
		Activities:  append([]models.Activity(nil), req.Activities...),
		CreatedBy:   createdBy,
		CreatedAt:   now,
	}
	r.nextID++
	r.templates[tpl.ID] = tpl
	return tpl.clone()
}

// List returns all templates ordered by id.
func (r *TemplateRepository) List() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Template) clone() *Template {
	c := *t
	c.Activities = append([]models.Activity(nil), t.Activities...)
	return &c
}
