package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeDaySummary recomputes and stores the metrics snapshot of one day
	JobTypeDaySummary JobType = "day_summary"
)

// DefaultMaxRetries is the retry budget given to new jobs
const DefaultMaxRetries = 3

// SummaryJobTTL is how long a summary job stays useful after it becomes
// eligible. Any later save of the same day enqueues a fresh job, so an older
// one that sat in the broker this long is dead-lettered instead of run.
const SummaryJobTTL = 24 * time.Hour

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Type       JobType    `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	Date       string     `json:"date"`
	NotBefore  *time.Time `json:"not_before,omitempty"` // nil = immediate
	NotAfter   *time.Time `json:"not_after,omitempty"`  // nil = never expires
	CreatedAt  time.Time  `json:"created_at"`
	RetryCount int        `json:"retry_count"`
	MaxRetries int        `json:"max_retries"`
}

// NewDaySummaryJob creates a summary job for (userID, date) that becomes
// eligible after debounce. Saves arriving in quick succession each publish a
// job; the worker always reads the latest stored state so extra jobs are
// harmless.
func NewDaySummaryJob(userID uuid.UUID, date string, debounce time.Duration) *Job {
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.New(),
		Type:       JobTypeDaySummary,
		UserID:     userID,
		Date:       date,
		CreatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}
	eligible := now
	if debounce > 0 {
		eligible = now.Add(debounce)
		job.NotBefore = &eligible
	}
	notAfter := eligible.Add(SummaryJobTTL)
	job.NotAfter = &notAfter
	return job
}

// Validate rejects jobs that cannot be processed
func (j *Job) Validate() error {
	switch {
	case j.Type != JobTypeDaySummary:
		return errors.New("unknown job type: " + string(j.Type))
	case j.UserID == uuid.Nil:
		return errors.New("job has no user id")
	case j.Date == "":
		return errors.New("job has no date")
	}
	return nil
}

// IsExpired reports whether NotAfter has passed
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
