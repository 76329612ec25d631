// Package metrics computes derived day metrics from a DayState. Every
// function here is pure: no I/O, no retained references, and the input is
// never mutated. Callers supply "now" explicitly so results are repeatable.
package metrics

import (
	"math"
	"time"

	"github.com/benvon/day-timeline/internal/models"
)

// EffectiveEstimate returns the planned minutes for a block. When the block
// estimates from tasks and has at least one task, the task estimates are
// summed (a missing estimate counts as zero) and EstimateMinutes is ignored.
func EffectiveEstimate(block models.Block) float64 {
	if !block.UseTaskEstimates || len(block.Tasks) == 0 {
		return block.EstimateMinutes
	}

	var total float64
	for _, task := range block.Tasks {
		if task.EstimateMinutes != nil {
			total += *task.EstimateMinutes
		}
	}
	return total
}

// ActualMinutes returns the tracked minutes for a block at time now.
// A manual override wins over session data. Otherwise closed sessions
// contribute endedAt-startedAt and open sessions contribute now-startedAt,
// as fractional minutes. Out-of-order timestamps subtract from the total.
func ActualMinutes(block models.Block, now time.Time) float64 {
	if block.ActualMinutesOverride != nil {
		return *block.ActualMinutesOverride
	}

	var total float64
	for _, session := range block.Sessions {
		end := now
		if session.EndedAt != nil {
			end = *session.EndedAt
		}
		total += minutesBetween(session.StartedAt, end)
	}
	return total
}

// ComputeDayMetrics derives totals, per-category buckets, the active block
// and bedtime projections for the given state at time now.
func ComputeDayMetrics(state models.DayState, now time.Time) models.DayMetrics {
	result := models.DayMetrics{
		Categories: make(map[string]models.CategoryTotals),
	}

	for _, block := range state.Blocks {
		planned := EffectiveEstimate(block)
		actual := ActualMinutes(block, now)

		result.TotalPlannedMinutes += planned
		result.TotalActualMinutes += actual

		bucket := result.Categories[block.Category]
		bucket.Planned += planned
		bucket.Actual += actual
		result.Categories[block.Category] = bucket

		if hasOpenSession(block) {
			id := block.ID
			result.CurrentBlockID = &id
		}
	}

	result.TotalDeltaMinutes = result.TotalActualMinutes - result.TotalPlannedMinutes

	if state.DayStartAt != nil {
		planned := state.DayStartAt.Add(minutesToDuration(result.TotalPlannedMinutes))
		forecast := now.Add(minutesToDuration(result.TotalPlannedMinutes - result.TotalActualMinutes))
		result.PlannedBedtime = &planned
		result.ForecastBedtime = &forecast
	}

	return result
}

// ComputeDayMetricsNow is ComputeDayMetrics evaluated at the current wall
// clock, read once.
func ComputeDayMetricsNow(state models.DayState) models.DayMetrics {
	return ComputeDayMetrics(state, time.Now().UTC())
}

func hasOpenSession(block models.Block) bool {
	for _, session := range block.Sessions {
		if session.EndedAt == nil {
			return true
		}
	}
	return false
}

func minutesBetween(start, end time.Time) float64 {
	return end.Sub(start).Minutes()
}

// minutesToDuration converts fractional minutes to a Duration, truncated to
// the nanosecond and saturated at the Duration range (about 292 years).
func minutesToDuration(minutes float64) time.Duration {
	ns := minutes * float64(time.Minute)
	switch {
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	case ns <= math.MinInt64:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ns)
}
