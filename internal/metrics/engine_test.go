package metrics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/benvon/day-timeline/internal/models"
)

const epsilon = 1e-9

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", value, err)
	}
	return parsed
}

func tsPtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed := ts(t, value)
	return &parsed
}

func floatPtr(v float64) *float64 {
	return &v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func closedBlock(t *testing.T, id, category string, estimate, actual float64) models.Block {
	t.Helper()
	start := ts(t, "2024-01-01T09:00:00Z")
	end := start.Add(time.Duration(actual * float64(time.Minute)))
	return models.Block{
		ID:              id,
		Label:           id,
		Category:        category,
		EstimateMinutes: estimate,
		Sessions: []models.TimeSession{
			{ID: id + "-s1", StartedAt: start, EndedAt: &end},
		},
	}
}

func TestEffectiveEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block models.Block
		want  float64
	}{
		{
			name:  "plain estimate",
			block: models.Block{EstimateMinutes: 45},
			want:  45,
		},
		{
			name: "task sum replaces stale estimate",
			block: models.Block{
				EstimateMinutes:  60,
				UseTaskEstimates: true,
				Tasks: []models.Task{
					{ID: "a", EstimateMinutes: floatPtr(10)},
					{ID: "b", EstimateMinutes: floatPtr(20)},
				},
			},
			want: 30,
		},
		{
			name: "missing task estimate counts as zero",
			block: models.Block{
				EstimateMinutes:  60,
				UseTaskEstimates: true,
				Tasks: []models.Task{
					{ID: "a", EstimateMinutes: floatPtr(15)},
					{ID: "b"},
				},
			},
			want: 15,
		},
		{
			name:  "task mode without tasks falls back",
			block: models.Block{EstimateMinutes: 25, UseTaskEstimates: true},
			want:  25,
		},
		{
			name: "tasks ignored when mode is off",
			block: models.Block{
				EstimateMinutes: 25,
				Tasks:           []models.Task{{ID: "a", EstimateMinutes: floatPtr(90)}},
			},
			want: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EffectiveEstimate(tt.block); !almostEqual(got, tt.want) {
				t.Errorf("EffectiveEstimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActualMinutes(t *testing.T) {
	t.Parallel()

	now := ts(t, "2024-01-01T12:00:00Z")

	tests := []struct {
		name  string
		block models.Block
		want  float64
	}{
		{
			name:  "no sessions",
			block: models.Block{},
			want:  0,
		},
		{
			name: "closed session",
			block: models.Block{Sessions: []models.TimeSession{
				{ID: "s1", StartedAt: ts(t, "2024-01-01T10:00:00Z"), EndedAt: tsPtr(t, "2024-01-01T10:30:00Z")},
			}},
			want: 30,
		},
		{
			name: "fractional minutes are not rounded",
			block: models.Block{Sessions: []models.TimeSession{
				{ID: "s1", StartedAt: ts(t, "2024-01-01T10:00:00Z"), EndedAt: tsPtr(t, "2024-01-01T10:00:30Z")},
			}},
			want: 0.5,
		},
		{
			name: "open session measured to now",
			block: models.Block{Sessions: []models.TimeSession{
				{ID: "s1", StartedAt: now.Add(-5 * time.Minute)},
			}},
			want: 5,
		},
		{
			name: "closed and open sessions sum",
			block: models.Block{Sessions: []models.TimeSession{
				{ID: "s1", StartedAt: ts(t, "2024-01-01T10:00:00Z"), EndedAt: tsPtr(t, "2024-01-01T10:20:00Z")},
				{ID: "s2", StartedAt: ts(t, "2024-01-01T11:50:00Z")},
			}},
			want: 30,
		},
		{
			name: "override wins over sessions",
			block: models.Block{
				ActualMinutesOverride: floatPtr(42),
				Sessions: []models.TimeSession{
					{ID: "s1", StartedAt: ts(t, "2024-01-01T10:00:00Z"), EndedAt: tsPtr(t, "2024-01-01T11:00:00Z")},
				},
			},
			want: 42,
		},
		{
			name:  "override with empty sessions",
			block: models.Block{ActualMinutesOverride: floatPtr(7.5)},
			want:  7.5,
		},
		{
			name:  "zero override still wins",
			block: models.Block{ActualMinutesOverride: floatPtr(0), Sessions: []models.TimeSession{{ID: "s1", StartedAt: now.Add(-time.Hour)}}},
			want:  0,
		},
		{
			name: "out of order session subtracts",
			block: models.Block{Sessions: []models.TimeSession{
				{ID: "s1", StartedAt: ts(t, "2024-01-01T10:00:00Z"), EndedAt: tsPtr(t, "2024-01-01T10:30:00Z")},
				{ID: "s2", StartedAt: ts(t, "2024-01-01T11:10:00Z"), EndedAt: tsPtr(t, "2024-01-01T11:00:00Z")},
			}},
			want: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ActualMinutes(tt.block, now); !almostEqual(got, tt.want) {
				t.Errorf("ActualMinutes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActualMinutes_OpenSessionIsMonotonic(t *testing.T) {
	t.Parallel()

	start := ts(t, "2024-01-01T10:00:00Z")
	block := models.Block{Sessions: []models.TimeSession{{ID: "s1", StartedAt: start}}}

	prev := ActualMinutes(block, start)
	for i := 1; i <= 10; i++ {
		got := ActualMinutes(block, start.Add(time.Duration(i)*time.Second*17))
		if got <= prev {
			t.Fatalf("step %d: ActualMinutes() = %v, want > %v", i, got, prev)
		}
		prev = got
	}
}

func TestComputeDayMetrics_Categories(t *testing.T) {
	t.Parallel()

	state := models.DayState{
		Date: "2024-01-01",
		Blocks: []models.Block{
			closedBlock(t, "w1", "work", 60, 50),
			closedBlock(t, "w2", "work", 30, 40),
			{ID: "l1", Category: "leisure", EstimateMinutes: 20},
		},
	}

	got := ComputeDayMetrics(state, ts(t, "2024-01-01T18:00:00Z"))

	if len(got.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d: %v", len(got.Categories), got.Categories)
	}
	work := got.Categories["work"]
	if !almostEqual(work.Planned, 90) || !almostEqual(work.Actual, 90) {
		t.Errorf("work = %+v, want {90 90}", work)
	}
	leisure := got.Categories["leisure"]
	if !almostEqual(leisure.Planned, 20) || !almostEqual(leisure.Actual, 0) {
		t.Errorf("leisure = %+v, want {20 0}", leisure)
	}
	if !almostEqual(got.TotalPlannedMinutes, 110) {
		t.Errorf("TotalPlannedMinutes = %v, want 110", got.TotalPlannedMinutes)
	}
	if !almostEqual(got.TotalActualMinutes, 90) {
		t.Errorf("TotalActualMinutes = %v, want 90", got.TotalActualMinutes)
	}
	if !almostEqual(got.TotalDeltaMinutes, -20) {
		t.Errorf("TotalDeltaMinutes = %v, want -20", got.TotalDeltaMinutes)
	}
}

func TestComputeDayMetrics_EmptyCategoryKey(t *testing.T) {
	t.Parallel()

	state := models.DayState{Blocks: []models.Block{{ID: "b1", EstimateMinutes: 15}}}
	got := ComputeDayMetrics(state, ts(t, "2024-01-01T08:00:00Z"))

	bucket, ok := got.Categories[""]
	if !ok {
		t.Fatal("expected bucket for empty category key")
	}
	if !almostEqual(bucket.Planned, 15) {
		t.Errorf("planned = %v, want 15", bucket.Planned)
	}
}

func TestComputeDayMetrics_EmptyDay(t *testing.T) {
	t.Parallel()

	got := ComputeDayMetrics(models.DayState{}, ts(t, "2024-01-01T08:00:00Z"))

	if got.Categories == nil || len(got.Categories) != 0 {
		t.Errorf("expected empty non-nil categories, got %v", got.Categories)
	}
	if got.TotalPlannedMinutes != 0 || got.TotalActualMinutes != 0 || got.TotalDeltaMinutes != 0 {
		t.Errorf("expected zero totals, got %+v", got)
	}
	if got.CurrentBlockID != nil || got.PlannedBedtime != nil || got.ForecastBedtime != nil {
		t.Errorf("expected nil pointers, got %+v", got)
	}
}

func TestComputeDayMetrics_Bedtimes(t *testing.T) {
	t.Parallel()

	now := ts(t, "2024-01-01T15:00:00Z")

	t.Run("null when day not started", func(t *testing.T) {
		t.Parallel()
		state := models.DayState{Blocks: []models.Block{{ID: "b1", EstimateMinutes: 480}}}
		got := ComputeDayMetrics(state, now)
		if got.PlannedBedtime != nil {
			t.Errorf("PlannedBedtime = %v, want nil", got.PlannedBedtime)
		}
		if got.ForecastBedtime != nil {
			t.Errorf("ForecastBedtime = %v, want nil", got.ForecastBedtime)
		}
	})

	t.Run("planned bedtime adds planned minutes", func(t *testing.T) {
		t.Parallel()
		state := models.DayState{
			DayStartAt: tsPtr(t, "2024-01-01T08:00:00Z"),
			Blocks:     []models.Block{{ID: "b1", EstimateMinutes: 480}},
		}
		got := ComputeDayMetrics(state, now)
		want := ts(t, "2024-01-01T16:00:00Z")
		if got.PlannedBedtime == nil || !got.PlannedBedtime.Equal(want) {
			t.Errorf("PlannedBedtime = %v, want %v", got.PlannedBedtime, want)
		}
		if got.ForecastBedtime == nil || !got.ForecastBedtime.Equal(now.Add(480*time.Minute)) {
			t.Errorf("ForecastBedtime = %v, want %v", got.ForecastBedtime, now.Add(480*time.Minute))
		}
	})

	t.Run("huge estimates saturate instead of wrapping", func(t *testing.T) {
		t.Parallel()
		start := ts(t, "2024-01-01T08:00:00Z")
		state := models.DayState{
			DayStartAt: &start,
			Blocks:     []models.Block{{ID: "b1", EstimateMinutes: 2e8}},
		}
		got := ComputeDayMetrics(state, now)
		if got.PlannedBedtime == nil || !got.PlannedBedtime.After(start) {
			t.Errorf("PlannedBedtime = %v, want after %v", got.PlannedBedtime, start)
		}
		if got.ForecastBedtime == nil || !got.ForecastBedtime.After(now) {
			t.Errorf("ForecastBedtime = %v, want after %v", got.ForecastBedtime, now)
		}
	})

	t.Run("overrun forecast is not clamped", func(t *testing.T) {
		t.Parallel()
		state := models.DayState{
			DayStartAt: tsPtr(t, "2024-01-01T08:00:00Z"),
			Blocks:     []models.Block{closedBlock(t, "b1", "work", 480, 500)},
		}
		got := ComputeDayMetrics(state, now)
		want := now.Add(-20 * time.Minute)
		if got.ForecastBedtime == nil || !got.ForecastBedtime.Equal(want) {
			t.Errorf("ForecastBedtime = %v, want %v", got.ForecastBedtime, want)
		}
		if !got.ForecastBedtime.Before(now) {
			t.Error("expected forecast before now on overrun")
		}
	})
}

func TestMinutesToDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		minutes float64
		want    time.Duration
	}{
		{name: "zero", minutes: 0, want: 0},
		{name: "fractional", minutes: 1.5, want: 90 * time.Second},
		{name: "negative", minutes: -20, want: -20 * time.Minute},
		{name: "saturates high", minutes: 2e8, want: time.Duration(math.MaxInt64)},
		{name: "saturates low", minutes: -2e8, want: time.Duration(math.MinInt64)},
		{name: "infinity", minutes: math.Inf(1), want: time.Duration(math.MaxInt64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := minutesToDuration(tt.minutes); got != tt.want {
				t.Errorf("minutesToDuration(%v) = %v, want %v", tt.minutes, got, tt.want)
			}
		})
	}
}

func TestComputeDayMetrics_CurrentBlock(t *testing.T) {
	t.Parallel()

	now := ts(t, "2024-01-01T12:00:00Z")
	open := func(id string) models.Block {
		return models.Block{ID: id, Sessions: []models.TimeSession{{ID: id + "-s", StartedAt: now.Add(-time.Minute)}}}
	}

	tests := []struct {
		name   string
		blocks []models.Block
		want   *string
	}{
		{
			name:   "none open",
			blocks: []models.Block{closedBlock(t, "a", "work", 10, 10), {ID: "b"}},
			want:   nil,
		},
		{
			name:   "one open",
			blocks: []models.Block{closedBlock(t, "a", "work", 10, 10), open("b")},
			want:   strPtr("b"),
		},
		{
			name:   "last open wins",
			blocks: []models.Block{open("a"), closedBlock(t, "b", "work", 10, 10), open("c")},
			want:   strPtr("c"),
		},
		{
			name: "open session with override still counts as current",
			blocks: []models.Block{func() models.Block {
				b := open("a")
				b.ActualMinutesOverride = floatPtr(3)
				return b
			}()},
			want: strPtr("a"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeDayMetrics(models.DayState{Blocks: tt.blocks}, now)
			switch {
			case tt.want == nil && got.CurrentBlockID != nil:
				t.Errorf("CurrentBlockID = %q, want nil", *got.CurrentBlockID)
			case tt.want != nil && (got.CurrentBlockID == nil || *got.CurrentBlockID != *tt.want):
				t.Errorf("CurrentBlockID = %v, want %q", got.CurrentBlockID, *tt.want)
			}
		})
	}
}

func TestComputeDayMetrics_IdempotentAndPure(t *testing.T) {
	t.Parallel()

	now := ts(t, "2024-01-01T12:00:00Z")
	state := models.DayState{
		DayStartAt: tsPtr(t, "2024-01-01T07:30:00Z"),
		Blocks: []models.Block{
			closedBlock(t, "a", "work", 90, 75),
			{ID: "b", Category: "routine", EstimateMinutes: 30, Sessions: []models.TimeSession{{ID: "s", StartedAt: now.Add(-12 * time.Minute)}}},
			{ID: "c", Category: "leisure", UseTaskEstimates: true, Tasks: []models.Task{{ID: "t", EstimateMinutes: floatPtr(40)}}},
		},
	}
	before := len(state.Blocks[1].Sessions)

	first := ComputeDayMetrics(state, now)
	second := ComputeDayMetrics(state, now)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
	if len(state.Blocks[1].Sessions) != before || state.Blocks[1].Sessions[0].EndedAt != nil {
		t.Error("input state was mutated")
	}

	first.Categories["work"] = models.CategoryTotals{}
	third := ComputeDayMetrics(state, now)
	if almostEqual(third.Categories["work"].Planned, 0) {
		t.Error("result map is shared between calls")
	}
}

func TestComputeDayMetricsNow(t *testing.T) {
	t.Parallel()

	start := time.Now().UTC().Add(-10 * time.Minute)
	state := models.DayState{Blocks: []models.Block{{ID: "a", Sessions: []models.TimeSession{{ID: "s", StartedAt: start}}}}}

	got := ComputeDayMetricsNow(state)
	if got.TotalActualMinutes < 10 || got.TotalActualMinutes > 11 {
		t.Errorf("TotalActualMinutes = %v, want about 10", got.TotalActualMinutes)
	}
}

func strPtr(s string) *string {
	return &s
}
