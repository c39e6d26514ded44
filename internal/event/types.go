package event

import "github.com/cronology/cronology/internal/models"

// CreateEventRequest carries the operator-supplied fields for a new event.
type CreateEventRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Activities  []models.Activity `json:"activities"`
}

// UpdateEventRequest carries a partial event update. Nil fields are left
// untouched.
type UpdateEventRequest struct {
	Name              *string             `json:"name"`
	Description       *string             `json:"description"`
	Activities        *[]models.Activity  `json:"activities"`
	Status            *models.EventStatus `json:"status"`
	AutoAdvance       *bool               `json:"autoAdvance"`
	AllowNegativeTime *bool               `json:"allowNegativeTime"`
}

// CreateTemplateRequest carries the fields for a new agenda template.
type CreateTemplateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Activities  []models.Activity `json:"activities"`
}
