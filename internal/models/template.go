package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskTemplate seeds a Task when a day is created from a template
type TaskTemplate struct {
	ID              string   `json:"id" validate:"required,max=128"`
	Name            string   `json:"name" validate:"max=500"`
	EstimateMinutes *float64 `json:"estimateMinutes,omitempty" validate:"omitempty,gte=0,lte=10080"`
	Order           float64  `json:"order"`
}

// BlockTemplate seeds a Block for new days. Hidden templates are kept for
// history but not used for seeding.
type BlockTemplate struct {
	ID               string         `json:"id" validate:"required,max=128"`
	Label            string         `json:"label" validate:"required,max=200"`
	Category         string         `json:"category" validate:"max=128"`
	DefaultMinutes   float64        `json:"defaultMinutes" validate:"gte=0,lte=10080"`
	UseTaskEstimates bool           `json:"useTaskEstimates"`
	Tasks            []TaskTemplate `json:"tasks,omitempty" validate:"dive"`
	IsHidden         bool           `json:"isHidden"`
	Order            float64        `json:"order"`
}

// UserTemplates is the stored template document for a user
type UserTemplates struct {
	Version   int             `json:"version"`
	UserID    uuid.UUID       `json:"userId"`
	Templates []BlockTemplate `json:"templates" validate:"max=500,dive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Category is a user-defined block category. Deleted categories stay in the
// document so historical blocks keep their label.
type Category struct {
	ID        string  `json:"id" validate:"required,max=128"`
	Name      string  `json:"name" validate:"required,max=100"`
	Color     string  `json:"color" validate:"max=32"`
	Icon      string  `json:"icon,omitempty" validate:"max=64"`
	IsDeleted bool    `json:"isDeleted"`
	Order     float64 `json:"order"`
}

// UserCategories is the stored category document for a user
type UserCategories struct {
	Version    int        `json:"version"`
	UserID     uuid.UUID  `json:"userId"`
	Categories []Category `json:"categories" validate:"dive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
