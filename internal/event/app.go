package event

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cronology/cronology/internal/models"
)

// CodeIssuer manages the display-code namespace. Implemented by the display
// package's registry.
type CodeIssuer interface {
	Assign(eventID int64) (string, error)
	Release(code string)
}

// App handles event business logic on top of the in-memory repository.
type App struct {
	repo      *Repository
	templates *TemplateRepository
	codes     CodeIssuer
}

// NewApp creates a new event App.
func NewApp(repo *Repository, templates *TemplateRepository, codes CodeIssuer) *App {
	return &App{
		repo:      repo,
		templates: templates,
		codes:     codes,
	}
}

// CreateEvent validates and stores a new event and assigns it a display code.
func (a *App) CreateEvent(req CreateEventRequest, createdBy string) (*models.Event, error) {
	if err := validateCreateEventRequest(req); err != nil {
		return nil, err
	}

	evt := a.repo.Create(req, createdBy, time.Now())

	code, err := a.codes.Assign(evt.ID)
	if err != nil {
		// Roll the event back rather than leave one without a code.
		_ = a.repo.Delete(evt.ID)
		return nil, fmt.Errorf("assign display code: %w", err)
	}
	evt, err = a.repo.SetDisplayCode(evt.ID, code)
	if err != nil {
		a.codes.Release(code)
		return nil, err
	}

	log.Info().
		Int64("event_id", evt.ID).
		Str("display_code", code).
		Int("activities", len(evt.Activities)).
		Msg("event created")
	return evt, nil
}

// GetEvent retrieves an event by id.
func (a *App) GetEvent(id int64) (*models.Event, error) {
	return a.repo.Get(id)
}

// ListEvents returns all events ordered by id.
func (a *App) ListEvents() []*models.Event {
	return a.repo.List()
}

// UpdateEvent applies a partial update to an event.
func (a *App) UpdateEvent(id int64, req UpdateEventRequest) (*models.Event, error) {
	if req.Activities != nil {
		for i, act := range *req.Activities {
			if act.Duration < 0 {
				return nil, fmt.Errorf("activity %d: duration must be >= 0", i)
			}
		}
	}
	return a.repo.Update(id, req)
}

// DeleteEvent removes an event and frees its display code.
func (a *App) DeleteEvent(id int64) error {
	evt, err := a.repo.Get(id)
	if err != nil {
		return err
	}
	if err := a.repo.Delete(id); err != nil {
		return err
	}
	if evt.DisplayCode != "" {
		a.codes.Release(evt.DisplayCode)
	}
	log.Info().Int64("event_id", id).Msg("event deleted")
	return nil
}

// RegenerateDisplayCode frees the event's current code and assigns a fresh
// one. The old code stops resolving the moment the new one is bound.
func (a *App) RegenerateDisplayCode(id int64) (string, error) {
	evt, err := a.repo.Get(id)
	if err != nil {
		return "", err
	}

	code, err := a.codes.Assign(id)
	if err != nil {
		return "", fmt.Errorf("assign display code: %w", err)
	}
	if _, err := a.repo.SetDisplayCode(id, code); err != nil {
		a.codes.Release(code)
		return "", err
	}
	if evt.DisplayCode != "" {
		a.codes.Release(evt.DisplayCode)
	}

	log.Info().Int64("event_id", id).Str("display_code", code).Msg("display code regenerated")
	return code, nil
}

// ListTemplates returns all agenda templates.
func (a *App) ListTemplates() []*Template {
	return a.templates.List()
}

// CreateTemplate stores a new agenda template.
func (a *App) CreateTemplate(req CreateTemplateRequest, createdBy string) (*Template, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	return a.templates.Create(req, createdBy, time.Now()), nil
}

func validateCreateEventRequest(req CreateEventRequest) error {
	if req.Name == "" {
		return fmt.Errorf("event name is required")
	}
	for i, act := range req.Activities {
		if act.Duration < 0 {
			return fmt.Errorf("activity %d: duration must be >= 0", i)
		}
	}
	return nil
}
