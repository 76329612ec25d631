// Package daystate owns the per-user day document: loading or seeding it,
// validating client writes, applying timeline mutations and scheduling
// summary snapshots.
package daystate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/day-timeline/internal/cache"
	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/logger"
	"github.com/benvon/day-timeline/internal/metrics"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/queue"
	"github.com/benvon/day-timeline/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrInvalidDate is returned for date keys that are not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidState wraps validation failures of client documents
	ErrInvalidState = errors.New("invalid state")
	// ErrBlockNotFound is returned when a block id is not in the day
	ErrBlockNotFound = errors.New("block not found")
	// ErrTaskNotFound is returned when a task id is not in the block
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoOpenSession is returned when stopping a block that is not running
	ErrNoOpenSession = errors.New("no open session")
	// ErrBlockCompleted is returned when starting a session on a completed block
	ErrBlockCompleted = errors.New("block is completed")
)

// Cache is the optional read-through layer in front of the repository
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID, date string) (*models.DayState, error)
	Set(ctx context.Context, state *models.DayState) error
	Invalidate(ctx context.Context, userID uuid.UUID, date string) error
}

// Options carries the optional collaborators of a Service
type Options struct {
	Cache           Cache
	SummaryQueue    queue.Enqueuer
	SummaryDebounce time.Duration
	// NewID generates block and session ids; defaults to random UUIDs
	NewID func() string
}

// Service coordinates persistence, caching and metrics for day documents
type Service struct {
	days       database.DayStateRepositoryInterface
	templates  database.TemplateRepositoryInterface
	categories database.CategoryRepositoryInterface
	summaries  database.DaySummaryRepositoryInterface
	cache      Cache
	queue      queue.Enqueuer
	debounce   time.Duration
	newID      func() string
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewService creates a day-state service
func NewService(
	days database.DayStateRepositoryInterface,
	templates database.TemplateRepositoryInterface,
	categories database.CategoryRepositoryInterface,
	summaries database.DaySummaryRepositoryInterface,
	opts Options,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	newID := opts.NewID
	if newID == nil {
		newID = newUUID
	}
	return &Service{
		days:       days,
		templates:  templates,
		categories: categories,
		summaries:  summaries,
		cache:      opts.Cache,
		queue:      opts.SummaryQueue,
		debounce:   opts.SummaryDebounce,
		newID:      newID,
		logger:     log,
		tracer:     otel.Tracer("github.com/benvon/day-timeline/internal/daystate"),
	}
}

func checkDate(date string) error {
	if !validation.IsDateKey(date) {
		return fmt.Errorf("%w: %q must be YYYY-MM-DD", ErrInvalidDate, logger.SanitizeDate(date))
	}
	return nil
}

func (s *Service) startSpan(ctx context.Context, name string, userID uuid.UUID, date string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("day.date", date),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Load returns the user's day. A day that was never stored is seeded from
// the user's visible templates (or the built-in default day when the user
// has no template document) and saved before it is returned.
func (s *Service) Load(ctx context.Context, userID uuid.UUID, date string) (state *models.DayState, err error) {
	ctx, span := s.startSpan(ctx, "daystate.Load", userID, date)
	defer func() { endSpan(span, err) }()

	if err := checkDate(date); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, userID, date)
		if cacheErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		if !errors.Is(cacheErr, cache.ErrMiss) {
			s.logger.Warn("day_state_cache_read_failed",
				zap.String("user_id", userID.String()),
				zap.String("date", date),
				zap.Error(cacheErr),
			)
		}
	}

	stored, err := s.days.Get(ctx, userID, date)
	switch {
	case err == nil:
		s.cacheState(ctx, stored)
		return stored, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to load day state: %w", err)
	}

	seeded, err := s.seed(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	created, err := s.days.Insert(ctx, seeded)
	if err != nil {
		return nil, fmt.Errorf("failed to save seeded day state: %w", err)
	}
	if !created {
		// a concurrent Load seeded the day first; its block ids win
		stored, err := s.days.Get(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("failed to load day state: %w", err)
		}
		s.cacheState(ctx, stored)
		return stored, nil
	}
	s.cacheState(ctx, seeded)

	s.logger.Info("day_state_seeded",
		zap.String("user_id", userID.String()),
		zap.String("date", date),
		zap.Int("blocks", len(seeded.Blocks)),
	)
	return seeded, nil
}

func (s *Service) seed(ctx context.Context, userID uuid.UUID, date string) (*models.DayState, error) {
	state := &models.DayState{
		Version: models.DayStateVersion,
		Date:    date,
		UserID:  userID,
	}

	doc, err := s.templates.Get(ctx, userID)
	switch {
	case err == nil:
		state.Blocks = BlocksFromTemplates(doc.Templates, s.newID)
	case errors.Is(err, database.ErrNotFound):
		state.Blocks = DefaultBlocks(s.newID)
	default:
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return state, nil
}

// ResetDay throws away the stored day, including all tracked sessions, and
// replaces it with a freshly seeded one.
func (s *Service) ResetDay(ctx context.Context, userID uuid.UUID, date string) (result *models.DayState, err error) {
	ctx, span := s.startSpan(ctx, "daystate.ResetDay", userID, date)
	defer func() { endSpan(span, err) }()

	if err := checkDate(date); err != nil {
		return nil, err
	}
	if err := s.days.Delete(ctx, userID, date); err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to delete day state: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID, date); err != nil {
			s.logger.Warn("day_state_cache_invalidate_failed",
				zap.String("user_id", userID.String()),
				zap.String("date", date),
				zap.Error(err),
			)
		}
	}

	seeded, err := s.seed(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	s.logger.Info("day_state_reset",
		zap.String("user_id", userID.String()),
		zap.String("date", date),
	)
	return s.persist(ctx, seeded)
}

// Save validates a client document and stores it as the user's day.
// userId and date always come from the caller, not the body; createdAt of
// an existing day is preserved.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, date string, state *models.DayState) (saved *models.DayState, err error) {
	ctx, span := s.startSpan(ctx, "daystate.Save", userID, date)
	defer func() { endSpan(span, err) }()

	if err := checkDate(date); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidState)
	}

	state.UserID = userID
	state.Date = date
	if state.Blocks == nil {
		state.Blocks = []models.Block{}
	}
	if err := validation.ValidateDayState(state); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, err.Error())
	}

	return s.persist(ctx, state)
}

func (s *Service) persist(ctx context.Context, state *models.DayState) (*models.DayState, error) {
	if err := s.days.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save day state: %w", err)
	}
	s.cacheState(ctx, state)
	s.enqueueSummary(ctx, state.UserID, state.Date)

	s.logger.Debug("day_state_saved",
		zap.String("user_id", state.UserID.String()),
		zap.String("date", state.Date),
		zap.Int("blocks", len(state.Blocks)),
	)
	return state, nil
}

func (s *Service) cacheState(ctx context.Context, state *models.DayState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, state); err != nil {
		s.logger.Warn("day_state_cache_write_failed",
			zap.String("user_id", state.UserID.String()),
			zap.String("date", state.Date),
			zap.Error(err),
		)
	}
}

func (s *Service) enqueueSummary(ctx context.Context, userID uuid.UUID, date string) {
	if s.queue == nil {
		return
	}
	job := queue.NewDaySummaryJob(userID, date, s.debounce)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Warn("summary_job_enqueue_failed",
			zap.String("user_id", userID.String()),
			zap.String("date", date),
			zap.Error(err),
		)
	}
}

// mutate loads the day, applies fn and saves the result. Nothing is saved
// when fn fails.
func (s *Service) mutate(ctx context.Context, name string, userID uuid.UUID, date string, fn func(*models.DayState) error) (result *models.DayState, err error) {
	ctx, span := s.startSpan(ctx, "daystate."+name, userID, date)
	defer func() { endSpan(span, err) }()

	state, err := s.Load(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	return s.persist(ctx, state)
}

func findBlock(state *models.DayState, blockID string) (*models.Block, error) {
	block := state.FindBlock(blockID)
	if block == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}
	return block, nil
}

// closeOpenSessions ends every running session in the day at now
func closeOpenSessions(state *models.DayState, now time.Time) {
	for i := range state.Blocks {
		for j := range state.Blocks[i].Sessions {
			if state.Blocks[i].Sessions[j].EndedAt == nil {
				end := now
				state.Blocks[i].Sessions[j].EndedAt = &end
			}
		}
	}
}

// StartDay sets dayStartAt to at, replacing any earlier start
func (s *Service) StartDay(ctx context.Context, userID uuid.UUID, date string, at time.Time) (*models.DayState, error) {
	return s.mutate(ctx, "StartDay", userID, date, func(state *models.DayState) error {
		start := at.UTC()
		state.DayStartAt = &start
		return nil
	})
}

// StartSession opens a session on blockID at now. Sessions running on any
// block are closed first so at most one session is open across the day.
// Starting the first session also starts the day.
func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, date, blockID string, now time.Time) (*models.DayState, error) {
	return s.mutate(ctx, "StartSession", userID, date, func(state *models.DayState) error {
		block, err := findBlock(state, blockID)
		if err != nil {
			return err
		}
		if block.Completed {
			return fmt.Errorf("%w: %s", ErrBlockCompleted, blockID)
		}

		now = now.UTC()
		closeOpenSessions(state, now)
		block.Sessions = append(block.Sessions, models.TimeSession{ID: s.newID(), StartedAt: now})
		if state.DayStartAt == nil {
			start := now
			state.DayStartAt = &start
		}
		return nil
	})
}

// StopSession closes the running session of blockID at now
func (s *Service) StopSession(ctx context.Context, userID uuid.UUID, date, blockID string, now time.Time) (*models.DayState, error) {
	return s.mutate(ctx, "StopSession", userID, date, func(state *models.DayState) error {
		block, err := findBlock(state, blockID)
		if err != nil {
			return err
		}
		idx := block.OpenSession()
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNoOpenSession, blockID)
		}
		end := now.UTC()
		block.Sessions[idx].EndedAt = &end
		return nil
	})
}

// CompleteBlock marks blockID done at now, stopping its session if running
func (s *Service) CompleteBlock(ctx context.Context, userID uuid.UUID, date, blockID string, now time.Time) (*models.DayState, error) {
	return s.mutate(ctx, "CompleteBlock", userID, date, func(state *models.DayState) error {
		block, err := findBlock(state, blockID)
		if err != nil {
			return err
		}
		now = now.UTC()
		for i := range block.Sessions {
			if block.Sessions[i].EndedAt == nil {
				end := now
				block.Sessions[i].EndedAt = &end
			}
		}
		block.Completed = true
		block.CompletedAt = &now
		return nil
	})
}

// ReopenBlock clears the completion of blockID. Sessions are untouched.
func (s *Service) ReopenBlock(ctx context.Context, userID uuid.UUID, date, blockID string) (*models.DayState, error) {
	return s.mutate(ctx, "ReopenBlock", userID, date, func(state *models.DayState) error {
		block, err := findBlock(state, blockID)
		if err != nil {
			return err
		}
		block.Completed = false
		block.CompletedAt = nil
		return nil
	})
}

// SetActualOverride replaces the tracked minutes of blockID with minutes.
// A nil value removes the override so sessions count again.
func (s *Service) SetActualOverride(ctx context.Context, userID uuid.UUID, date, blockID string, minutes *float64) (*models.DayState, error) {
	if minutes != nil && (*minutes < 0 || *minutes > models.MaxMinutes) {
		return nil, fmt.Errorf("%w: actual minutes must be between 0 and %d", ErrInvalidState, models.MaxMinutes)
	}
	return s.mutate(ctx, "SetActualOverride", userID, date, func(state *models.DayState) error {
		block, err := findBlock(state, blockID)
		if err != nil {
			return err
		}
		if minutes == nil {
			block.ActualMinutesOverride = nil
			return nil
		}
		value := *minutes
		block.ActualMinutesOverride = &value
		return nil
	})
}

// ToggleTask flips the completion flag of one task
func (s *Service) ToggleTask(ctx context.Context, userID uuid.UUID, date, blockID, taskID string) (*models.DayState, error) {
	return s.mutate(ctx, "ToggleTask", userID, date, func(state *models.DayState) error {
		block, err := findBlock(state, blockID)
		if err != nil {
			return err
		}
		for i := range block.Tasks {
			if block.Tasks[i].ID == taskID {
				block.Tasks[i].Completed = !block.Tasks[i].Completed
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	})
}

// Metrics computes the day's metrics at now
func (s *Service) Metrics(ctx context.Context, userID uuid.UUID, date string, now time.Time) (result models.DayMetrics, err error) {
	ctx, span := s.startSpan(ctx, "daystate.Metrics", userID, date)
	defer func() { endSpan(span, err) }()

	state, err := s.Load(ctx, userID, date)
	if err != nil {
		return models.DayMetrics{}, err
	}
	return metrics.ComputeDayMetrics(*state, now), nil
}

// Templates returns the user's template document; an empty one when none
// is stored.
func (s *Service) Templates(ctx context.Context, userID uuid.UUID) (*models.UserTemplates, error) {
	doc, err := s.templates.Get(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.UserTemplates{
			Version:   models.DayStateVersion,
			UserID:    userID,
			Templates: []models.BlockTemplate{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return doc, nil
}

// SaveTemplates validates and stores the template document verbatim
func (s *Service) SaveTemplates(ctx context.Context, userID uuid.UUID, doc *models.UserTemplates) (*models.UserTemplates, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidState)
	}
	doc.UserID = userID
	doc.Version = models.DayStateVersion
	if doc.Templates == nil {
		doc.Templates = []models.BlockTemplate{}
	}
	if err := validation.Validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, validation.FormatErrors(err))
	}
	if err := s.templates.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save templates: %w", err)
	}
	return doc, nil
}

// Categories returns the user's categories, or the defaults when none are
// stored. Soft-deleted entries are included.
func (s *Service) Categories(ctx context.Context, userID uuid.UUID) (*models.UserCategories, error) {
	doc, err := s.categories.Get(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.UserCategories{
			Version:    models.DayStateVersion,
			UserID:     userID,
			Categories: DefaultCategories(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return doc, nil
}

// SaveCategories validates and stores the category document verbatim
func (s *Service) SaveCategories(ctx context.Context, userID uuid.UUID, doc *models.UserCategories) (*models.UserCategories, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidState)
	}
	doc.UserID = userID
	doc.Version = models.DayStateVersion
	if doc.Categories == nil {
		doc.Categories = []models.Category{}
	}
	if err := validation.Validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, validation.FormatErrors(err))
	}
	if err := s.categories.Put(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save categories: %w", err)
	}
	return doc, nil
}

// Summaries lists stored snapshots for from <= date <= to
func (s *Service) Summaries(ctx context.Context, userID uuid.UUID, from, to string) ([]*models.DaySummary, error) {
	if err := checkDate(from); err != nil {
		return nil, err
	}
	if err := checkDate(to); err != nil {
		return nil, err
	}
	if from > to {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidDate, from, to)
	}
	summaries, err := s.summaries.ListRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	return summaries, nil
}
