package models

import (
	"time"

	"github.com/google/uuid"
)

// DayStateVersion is the only document version the API accepts
const DayStateVersion = 1

// DateLayout is the calendar day key format (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// MaxMinutes bounds every stored minute value (one week). The validate tags
// below repeat it as lte=10080.
const MaxMinutes = 10080

// MaxBlocks bounds the blocks in one day and the tasks in one block
const MaxBlocks = 500

// TimeSession is one contiguous interval of tracked time against a block.
// EndedAt is nil while the session is running.
type TimeSession struct {
	ID        string     `json:"id" validate:"required,max=128"`
	StartedAt time.Time  `json:"startedAt" validate:"required"`
	EndedAt   *time.Time `json:"endedAt"`
}

// IsOpen reports whether the session is still running
func (s TimeSession) IsOpen() bool {
	return s.EndedAt == nil
}

// Task is an optional sub-item of a block
type Task struct {
	ID              string   `json:"id" validate:"required,max=128"`
	Name            string   `json:"name" validate:"max=500"`
	EstimateMinutes *float64 `json:"estimateMinutes,omitempty" validate:"omitempty,gte=0,lte=10080"`
	Completed       bool     `json:"completed"`
	Order           float64  `json:"order"`
}

// Block is one planned activity within a day
type Block struct {
	ID                    string        `json:"id" validate:"required,max=128"`
	Label                 string        `json:"label" validate:"required,max=200"`
	Category              string        `json:"category" validate:"max=128"`
	EstimateMinutes       float64       `json:"estimateMinutes" validate:"gte=0,lte=10080"`
	UseTaskEstimates      bool          `json:"useTaskEstimates,omitempty"`
	Tasks                 []Task        `json:"tasks,omitempty" validate:"max=500,dive"`
	Sessions              []TimeSession `json:"sessions" validate:"dive"`
	ActualMinutesOverride *float64      `json:"actualMinutesOverride,omitempty" validate:"omitempty,gte=0,lte=10080"`
	Completed             bool          `json:"completed,omitempty"`
	CompletedAt           *time.Time    `json:"completedAt,omitempty"`
	Notes                 string        `json:"notes" validate:"max=10000"`
	Order                 float64       `json:"order"`
}

// OpenSession returns the index of the block's running session, or -1
func (b *Block) OpenSession() int {
	for i := range b.Sessions {
		if b.Sessions[i].IsOpen() {
			return i
		}
	}
	return -1
}

// DayState is the per-user, per-day document
type DayState struct {
	Version    int        `json:"version" validate:"eq=1"`
	Date       string     `json:"date" validate:"required,date_key"`
	UserID     uuid.UUID  `json:"userId"`
	DayStartAt *time.Time `json:"dayStartAt"`
	Blocks     []Block    `json:"blocks" validate:"max=500,dive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FindBlock returns a pointer into Blocks for the given id, or nil
func (d *DayState) FindBlock(id string) *Block {
	for i := range d.Blocks {
		if d.Blocks[i].ID == id {
			return &d.Blocks[i]
		}
	}
	return nil
}
