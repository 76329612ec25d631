package daystate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benvon/day-timeline/internal/cache"
	"github.com/benvon/day-timeline/internal/database/dbtest"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/queue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const testDate = "2024-01-01"

type recordingQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type fixture struct {
	svc        *Service
	days       *dbtest.DayStates
	templates  *dbtest.Templates
	categories *dbtest.Categories
	summaries  *dbtest.Summaries
	queue      *recordingQueue
	userID     uuid.UUID
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		days:       dbtest.NewDayStates(),
		templates:  dbtest.NewTemplates(),
		categories: dbtest.NewCategories(),
		summaries:  dbtest.NewSummaries(),
		queue:      &recordingQueue{},
		userID:     uuid.New(),
	}
	f.svc = NewService(f.days, f.templates, f.categories, f.summaries, Options{
		SummaryQueue:    f.queue,
		SummaryDebounce: 5 * time.Second,
		NewID:           sequentialIDs(),
	}, zap.NewNop())
	return f
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, 0, 0, time.UTC)
}

func (f *fixture) seedDay(t *testing.T, blocks ...models.Block) {
	t.Helper()
	f.days.Put(&models.DayState{
		Version: models.DayStateVersion,
		Date:    testDate,
		UserID:  f.userID,
		Blocks:  blocks,
	})
}

func TestService_Load_SeedsDefaultDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	state, err := f.svc.Load(context.Background(), f.userID, testDate)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(state.Blocks) != 8 {
		t.Fatalf("expected 8 default blocks, got %d", len(state.Blocks))
	}
	if state.Blocks[1].Label != "Deep Work" || state.Blocks[1].EstimateMinutes != 150 || state.Blocks[1].Category != "work" {
		t.Errorf("unexpected second block: %+v", state.Blocks[1])
	}
	if state.DayStartAt != nil {
		t.Error("seeded day must not be started")
	}
	if state.UserID != f.userID || state.Date != testDate || state.Version != 1 {
		t.Errorf("unexpected identity fields: %+v", state)
	}
	if f.days.Stored(f.userID, testDate) == nil {
		t.Error("seeded day was not saved")
	}
	if f.queue.count() != 0 {
		t.Error("seeding must not enqueue a summary")
	}
}

func TestService_Load_SeedsFromVisibleTemplates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	est := 20.0

	_, err := f.svc.SaveTemplates(ctx, f.userID, &models.UserTemplates{Templates: []models.BlockTemplate{
		{ID: "t2", Label: "Second", Category: "leisure", DefaultMinutes: 30, Order: 2},
		{ID: "hidden", Label: "Hidden", Category: "work", DefaultMinutes: 60, IsHidden: true, Order: 0},
		{ID: "t1", Label: "First", Category: "work", DefaultMinutes: 45, UseTaskEstimates: true, Order: 1,
			Tasks: []models.TaskTemplate{{ID: "task", Name: "Inbox", EstimateMinutes: &est}}},
	}})
	if err != nil {
		t.Fatalf("SaveTemplates() error: %v", err)
	}

	state, err := f.svc.Load(ctx, f.userID, testDate)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(state.Blocks) != 2 {
		t.Fatalf("expected 2 visible blocks, got %d", len(state.Blocks))
	}
	first := state.Blocks[0]
	if first.Label != "First" || !first.UseTaskEstimates || len(first.Tasks) != 1 || first.Tasks[0].Completed {
		t.Errorf("unexpected first block: %+v", first)
	}
	if first.Sessions == nil || len(first.Sessions) != 0 {
		t.Errorf("expected empty sessions, got %v", first.Sessions)
	}
	if state.Blocks[1].Label != "Second" {
		t.Errorf("expected template order, got %q second", state.Blocks[1].Label)
	}
}

func TestService_Load_ReturnsStored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedDay(t, models.Block{ID: "b1", Label: "Only", EstimateMinutes: 10, Sessions: []models.TimeSession{}})

	state, err := f.svc.Load(context.Background(), f.userID, testDate)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(state.Blocks) != 1 || state.Blocks[0].ID != "b1" {
		t.Errorf("expected stored day, got %+v", state.Blocks)
	}
	if f.days.Upserts != 0 {
		t.Error("loading a stored day must not write")
	}
}

func TestService_Load_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid date", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Load(context.Background(), f.userID, "2024-1-1")
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("error = %v, want ErrInvalidDate", err)
		}
	})

	t.Run("repository failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.days.GetErr = errors.New("connection reset")
		_, err := f.svc.Load(context.Background(), f.userID, testDate)
		if err == nil || errors.Is(err, ErrInvalidDate) {
			t.Errorf("error = %v, want wrapped repository error", err)
		}
	})

	t.Run("template failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.templates.GetErr = errors.New("timeout")
		if _, err := f.svc.Load(context.Background(), f.userID, testDate); err == nil {
			t.Error("expected error when templates cannot be read")
		}
	})
}

// rendezvousTemplates holds every Get until n callers have arrived, so
// concurrent Loads all miss the stored day before any of them seeds it.
type rendezvousTemplates struct {
	*dbtest.Templates
	arrived sync.WaitGroup
}

func newRendezvousTemplates(n int) *rendezvousTemplates {
	r := &rendezvousTemplates{Templates: dbtest.NewTemplates()}
	r.arrived.Add(n)
	return r
}

func (r *rendezvousTemplates) Get(ctx context.Context, userID uuid.UUID) (*models.UserTemplates, error) {
	r.arrived.Done()
	r.arrived.Wait()
	return r.Templates.Get(ctx, userID)
}

func TestService_Load_ConcurrentFirstLoadsAgree(t *testing.T) {
	t.Parallel()
	const callers = 2
	days := dbtest.NewDayStates()
	svc := NewService(days, newRendezvousTemplates(callers), dbtest.NewCategories(), dbtest.NewSummaries(), Options{
		NewID: sequentialIDs(),
	}, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	results := make([]*models.DayState, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Load(ctx, userID, testDate)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Load() #%d error: %v", i, err)
		}
	}
	first := results[0].Blocks[0].ID
	if other := results[1].Blocks[0].ID; other != first {
		t.Fatalf("concurrent loads returned different days: %s vs %s", first, other)
	}
	if stored := days.Stored(userID, testDate); stored.Blocks[0].ID != first {
		t.Errorf("stored day has block %s, callers saw %s", stored.Blocks[0].ID, first)
	}
	if _, err := svc.StartSession(ctx, userID, testDate, first, at(9, 0)); err != nil {
		t.Errorf("StartSession on a returned block id: %v", err)
	}
}

func TestService_Save(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	otherUser := uuid.New()

	body := &models.DayState{
		Version: 1,
		Date:    "1999-12-31",
		UserID:  otherUser,
		Blocks: []models.Block{
			{ID: "b1", Label: "Deep Work", Category: "work", EstimateMinutes: 60, Sessions: []models.TimeSession{}},
		},
	}

	saved, err := f.svc.Save(ctx, f.userID, testDate, body)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if saved.UserID != f.userID || saved.Date != testDate {
		t.Errorf("identity not forced from caller: %+v", saved)
	}
	created := saved.CreatedAt

	time.Sleep(2 * time.Millisecond)
	body.Blocks[0].Label = "Renamed"
	saved, err = f.svc.Save(ctx, f.userID, testDate, body)
	if err != nil {
		t.Fatalf("second Save() error: %v", err)
	}
	if !saved.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed from %v to %v", created, saved.CreatedAt)
	}
	if !saved.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt %v not after %v", saved.UpdatedAt, created)
	}
	if f.queue.count() != 2 {
		t.Errorf("expected 2 summary jobs, got %d", f.queue.count())
	}
	job := f.queue.jobs[0]
	if job.Type != queue.JobTypeDaySummary || job.UserID != f.userID || job.Date != testDate || job.NotBefore == nil {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestService_Save_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		date  string
		state *models.DayState
		want  error
	}{
		{"bad date", "nope", &models.DayState{Version: 1}, ErrInvalidDate},
		{"nil body", testDate, nil, ErrInvalidState},
		{"bad version", testDate, &models.DayState{Version: 3}, ErrInvalidState},
		{"block missing label", testDate, &models.DayState{Version: 1, Blocks: []models.Block{{ID: "b"}}}, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			_, err := f.svc.Save(context.Background(), f.userID, tt.date, tt.state)
			if !errors.Is(err, tt.want) {
				t.Errorf("Save() error = %v, want %v", err, tt.want)
			}
			if f.days.Upserts != 0 {
				t.Error("invalid state must not be stored")
			}
		})
	}
}

func TestService_Save_QueueFailureDoesNotFail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.queue.err = errors.New("broker down")

	_, err := f.svc.Save(context.Background(), f.userID, testDate, &models.DayState{Version: 1})
	if err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}
}

func TestService_SessionLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedDay(t,
		models.Block{ID: "a", Label: "A", Category: "work", EstimateMinutes: 60, Sessions: []models.TimeSession{}},
		models.Block{ID: "b", Label: "B", Category: "leisure", EstimateMinutes: 30, Sessions: []models.TimeSession{}},
	)

	state, err := f.svc.StartSession(ctx, f.userID, testDate, "a", at(9, 0))
	if err != nil {
		t.Fatalf("StartSession(a) error: %v", err)
	}
	if state.DayStartAt == nil || !state.DayStartAt.Equal(at(9, 0)) {
		t.Errorf("expected first session to start the day, got %v", state.DayStartAt)
	}

	state, err = f.svc.StartSession(ctx, f.userID, testDate, "b", at(9, 45))
	if err != nil {
		t.Fatalf("StartSession(b) error: %v", err)
	}
	a := state.FindBlock("a")
	if a.OpenSession() != -1 {
		t.Error("starting b must close a's session")
	}
	if !a.Sessions[0].EndedAt.Equal(at(9, 45)) {
		t.Errorf("a ended at %v, want 09:45", a.Sessions[0].EndedAt)
	}
	if state.FindBlock("b").OpenSession() != 0 {
		t.Error("b should be running")
	}

	got, err := f.svc.Metrics(ctx, f.userID, testDate, at(10, 0))
	if err != nil {
		t.Fatalf("Metrics() error: %v", err)
	}
	if got.CurrentBlockID == nil || *got.CurrentBlockID != "b" {
		t.Errorf("CurrentBlockID = %v, want b", got.CurrentBlockID)
	}
	if got.TotalActualMinutes != 60 {
		t.Errorf("TotalActualMinutes = %v, want 60", got.TotalActualMinutes)
	}

	state, err = f.svc.StopSession(ctx, f.userID, testDate, "b", at(10, 15))
	if err != nil {
		t.Fatalf("StopSession(b) error: %v", err)
	}
	if state.FindBlock("b").OpenSession() != -1 {
		t.Error("b should be stopped")
	}

	if _, err := f.svc.StopSession(ctx, f.userID, testDate, "b", at(10, 20)); !errors.Is(err, ErrNoOpenSession) {
		t.Errorf("second StopSession error = %v, want ErrNoOpenSession", err)
	}
	if _, err := f.svc.StartSession(ctx, f.userID, testDate, "missing", at(10, 30)); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("StartSession(missing) error = %v, want ErrBlockNotFound", err)
	}
}

func TestService_CompleteAndReopen(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedDay(t, models.Block{ID: "a", Label: "A", EstimateMinutes: 60, Sessions: []models.TimeSession{
		{ID: "s1", StartedAt: at(8, 0)},
	}})

	state, err := f.svc.CompleteBlock(ctx, f.userID, testDate, "a", at(8, 50))
	if err != nil {
		t.Fatalf("CompleteBlock() error: %v", err)
	}
	a := state.FindBlock("a")
	if !a.Completed || a.CompletedAt == nil || !a.CompletedAt.Equal(at(8, 50)) {
		t.Errorf("unexpected completion: %+v", a)
	}
	if a.OpenSession() != -1 {
		t.Error("completing must stop the running session")
	}

	if _, err := f.svc.StartSession(ctx, f.userID, testDate, "a", at(9, 0)); !errors.Is(err, ErrBlockCompleted) {
		t.Errorf("StartSession on completed block error = %v, want ErrBlockCompleted", err)
	}

	state, err = f.svc.ReopenBlock(ctx, f.userID, testDate, "a")
	if err != nil {
		t.Fatalf("ReopenBlock() error: %v", err)
	}
	a = state.FindBlock("a")
	if a.Completed || a.CompletedAt != nil {
		t.Errorf("block still completed: %+v", a)
	}
	if len(a.Sessions) != 1 {
		t.Errorf("reopen must keep sessions, got %d", len(a.Sessions))
	}
}

func TestService_SetActualOverride(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedDay(t, models.Block{ID: "a", Label: "A", EstimateMinutes: 60, Sessions: []models.TimeSession{}})

	minutes := 42.5
	state, err := f.svc.SetActualOverride(ctx, f.userID, testDate, "a", &minutes)
	if err != nil {
		t.Fatalf("SetActualOverride() error: %v", err)
	}
	if got := state.FindBlock("a").ActualMinutesOverride; got == nil || *got != 42.5 {
		t.Errorf("override = %v, want 42.5", got)
	}

	state, err = f.svc.SetActualOverride(ctx, f.userID, testDate, "a", nil)
	if err != nil {
		t.Fatalf("clearing override error: %v", err)
	}
	if state.FindBlock("a").ActualMinutesOverride != nil {
		t.Error("override not cleared")
	}

	negative := -1.0
	if _, err := f.svc.SetActualOverride(ctx, f.userID, testDate, "a", &negative); !errors.Is(err, ErrInvalidState) {
		t.Errorf("negative override error = %v, want ErrInvalidState", err)
	}
	huge := 2e8
	if _, err := f.svc.SetActualOverride(ctx, f.userID, testDate, "a", &huge); !errors.Is(err, ErrInvalidState) {
		t.Errorf("oversized override error = %v, want ErrInvalidState", err)
	}
}

func TestService_ToggleTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedDay(t, models.Block{ID: "a", Label: "A", Sessions: []models.TimeSession{}, Tasks: []models.Task{{ID: "t1", Name: "Email"}}})

	state, err := f.svc.ToggleTask(ctx, f.userID, testDate, "a", "t1")
	if err != nil {
		t.Fatalf("ToggleTask() error: %v", err)
	}
	if !state.FindBlock("a").Tasks[0].Completed {
		t.Error("task should be completed")
	}
	state, err = f.svc.ToggleTask(ctx, f.userID, testDate, "a", "t1")
	if err != nil {
		t.Fatalf("ToggleTask() error: %v", err)
	}
	if state.FindBlock("a").Tasks[0].Completed {
		t.Error("task should be uncompleted")
	}
	if _, err := f.svc.ToggleTask(ctx, f.userID, testDate, "a", "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("error = %v, want ErrTaskNotFound", err)
	}
}

func TestService_StartDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.svc.StartDay(ctx, f.userID, testDate, time.Date(2024, 1, 1, 3, 0, 0, 0, time.FixedZone("EST", -5*3600)))
	if err != nil {
		t.Fatalf("StartDay() error: %v", err)
	}
	if state.DayStartAt == nil || !state.DayStartAt.Equal(at(8, 0)) || state.DayStartAt.Location() != time.UTC {
		t.Errorf("DayStartAt = %v, want 08:00 UTC", state.DayStartAt)
	}

	got, err := f.svc.Metrics(ctx, f.userID, testDate, at(8, 0))
	if err != nil {
		t.Fatalf("Metrics() error: %v", err)
	}
	// default day plans 780 minutes
	if got.PlannedBedtime == nil || !got.PlannedBedtime.Equal(at(8, 0).Add(780*time.Minute)) {
		t.Errorf("PlannedBedtime = %v", got.PlannedBedtime)
	}
}

func TestService_Categories(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Categories(ctx, f.userID)
	if err != nil {
		t.Fatalf("Categories() error: %v", err)
	}
	if len(doc.Categories) != 4 {
		t.Errorf("expected 4 default categories, got %d", len(doc.Categories))
	}

	saved, err := f.svc.SaveCategories(ctx, f.userID, &models.UserCategories{Categories: []models.Category{
		{ID: "deep", Name: "Deep", Color: "#000000"},
		{ID: "old", Name: "Old", IsDeleted: true},
	}})
	if err != nil {
		t.Fatalf("SaveCategories() error: %v", err)
	}
	if saved.UserID != f.userID || saved.Version != 1 {
		t.Errorf("identity not forced: %+v", saved)
	}

	doc, err = f.svc.Categories(ctx, f.userID)
	if err != nil {
		t.Fatalf("Categories() error: %v", err)
	}
	if len(doc.Categories) != 2 || !doc.Categories[1].IsDeleted {
		t.Errorf("soft-deleted category not kept: %+v", doc.Categories)
	}

	if _, err := f.svc.SaveCategories(ctx, f.userID, &models.UserCategories{Categories: []models.Category{{ID: "x"}}}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("nameless category error = %v, want ErrInvalidState", err)
	}
}

func TestService_Templates_EmptyWhenNoneStored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	doc, err := f.svc.Templates(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("Templates() error: %v", err)
	}
	if doc.Templates == nil || len(doc.Templates) != 0 {
		t.Errorf("expected empty template list, got %v", doc.Templates)
	}
}

func TestService_Summaries(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-05"} {
		if err := f.summaries.Upsert(ctx, &models.DaySummary{UserID: f.userID, Date: date, ComputedAt: at(23, 0)}); err != nil {
			t.Fatalf("seed summary: %v", err)
		}
	}

	got, err := f.svc.Summaries(ctx, f.userID, "2024-01-01", "2024-01-03")
	if err != nil {
		t.Fatalf("Summaries() error: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-01-01" || got[1].Date != "2024-01-02" {
		t.Errorf("unexpected summaries: %+v", got)
	}

	if _, err := f.svc.Summaries(ctx, f.userID, "2024-01-05", "2024-01-01"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("reversed range error = %v, want ErrInvalidDate", err)
	}
}

func TestService_WithRedisCache(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	days := dbtest.NewDayStates()
	svc := NewService(days, dbtest.NewTemplates(), dbtest.NewCategories(), dbtest.NewSummaries(), Options{
		Cache: cache.NewDayStateCache(client, time.Minute),
	}, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Load(ctx, userID, testDate); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !mr.Exists(cache.Key(userID, testDate)) {
		t.Fatal("seeded day was not cached")
	}

	// the cached copy serves reads even when the database is failing
	days.GetErr = errors.New("db down")
	if _, err := svc.Load(ctx, userID, testDate); err != nil {
		t.Fatalf("cached Load() error: %v", err)
	}

	// a broken cache falls through to the database
	mr.Close()
	days.GetErr = nil
	if _, err := svc.Load(ctx, userID, testDate); err != nil {
		t.Fatalf("Load() with redis down error: %v", err)
	}
}

func TestService_ResetDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	start := at(8, 0)
	f.days.Put(&models.DayState{
		Version:    models.DayStateVersion,
		Date:       testDate,
		UserID:     f.userID,
		DayStartAt: &start,
		Blocks: []models.Block{{ID: "a", Label: "A", EstimateMinutes: 60, Sessions: []models.TimeSession{
			{ID: "s1", StartedAt: at(8, 0)},
		}}},
	})

	state, err := f.svc.ResetDay(ctx, f.userID, testDate)
	if err != nil {
		t.Fatalf("ResetDay() error: %v", err)
	}
	if state.DayStartAt != nil {
		t.Error("reset day must not be started")
	}
	if len(state.Blocks) != 8 || state.FindBlock("a") != nil {
		t.Errorf("expected the default day, got %d blocks", len(state.Blocks))
	}
	stored := f.days.Stored(f.userID, testDate)
	if stored == nil || len(stored.Blocks) != 8 {
		t.Error("reset day was not saved")
	}
	if f.queue.count() != 1 {
		t.Errorf("expected one summary job, got %d", f.queue.count())
	}

	// resetting a day that was never stored just seeds it
	if _, err := f.svc.ResetDay(ctx, f.userID, "2024-01-02"); err != nil {
		t.Errorf("ResetDay(unstored) error: %v", err)
	}
	if _, err := f.svc.ResetDay(ctx, f.userID, "01/01/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ResetDay(bad date) error = %v, want ErrInvalidDate", err)
	}
}

func TestService_ResetDay_ReplacesCachedCopy(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	days := dbtest.NewDayStates()
	templates := dbtest.NewTemplates()
	svc := NewService(days, templates, dbtest.NewCategories(), dbtest.NewSummaries(), Options{
		Cache: cache.NewDayStateCache(client, time.Minute),
	}, zap.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Load(ctx, userID, testDate); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := templates.Put(ctx, &models.UserTemplates{UserID: userID, Templates: []models.BlockTemplate{
		{ID: "t1", Label: "Only", DefaultMinutes: 15},
	}}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ResetDay(ctx, userID, testDate); err != nil {
		t.Fatalf("ResetDay() error: %v", err)
	}
	state, err := svc.Load(ctx, userID, testDate)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(state.Blocks) != 1 || state.Blocks[0].Label != "Only" {
		t.Errorf("expected the cached day to be replaced, got %+v", state.Blocks)
	}
}
