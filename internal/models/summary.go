package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryTotals holds planned and actual minutes for one category
type CategoryTotals struct {
	Planned float64 `json:"planned"`
	Actual  float64 `json:"actual"`
}

// DayMetrics is the derived snapshot computed from a DayState. It is never
// stored as part of the day document.
type DayMetrics struct {
	TotalPlannedMinutes float64                   `json:"totalPlannedMinutes"`
	TotalActualMinutes  float64                   `json:"totalActualMinutes"`
	TotalDeltaMinutes   float64                   `json:"totalDeltaMinutes"`
	Categories          map[string]CategoryTotals `json:"categories"`
	PlannedBedtime      *time.Time                `json:"plannedBedtime"`
	ForecastBedtime     *time.Time                `json:"forecastBedtime"`
	CurrentBlockID      *string                   `json:"currentBlockId"`
}

// DaySummary is a metrics snapshot persisted by the summary worker
type DaySummary struct {
	UserID     uuid.UUID  `json:"userId"`
	Date       string     `json:"date"`
	Metrics    DayMetrics `json:"metrics"`
	ComputedAt time.Time  `json:"computedAt"`
}
