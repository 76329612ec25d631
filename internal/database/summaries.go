package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
)

// DaySummaryRepository stores metrics snapshots written by the summary worker
type DaySummaryRepository struct {
	db *DB
}

// NewDaySummaryRepository creates a new day summary repository
func NewDaySummaryRepository(db *DB) *DaySummaryRepository {
	return &DaySummaryRepository{db: db}
}

// Upsert writes the snapshot for (user, date), replacing any older one
func (r *DaySummaryRepository) Upsert(ctx context.Context, summary *models.DaySummary) error {
	raw, err := json.Marshal(summary.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO day_summaries (user_id, date, metrics, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date) DO UPDATE SET
			metrics = EXCLUDED.metrics,
			computed_at = EXCLUDED.computed_at
	`, summary.UserID, summary.Date, raw, summary.ComputedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert day summary: %w", err)
	}
	return nil
}

// ListRange returns the user's summaries with from <= date <= to, oldest first
func (r *DaySummaryRepository) ListRange(ctx context.Context, userID uuid.UUID, from, to string) ([]*models.DaySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), metrics, computed_at
		FROM day_summaries
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query day summaries: %w", err)
	}
	defer closeRows(rows)

	summaries := []*models.DaySummary{}
	for rows.Next() {
		summary := &models.DaySummary{UserID: userID}
		var raw []byte
		if err := rows.Scan(&summary.Date, &raw, &summary.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan day summary: %w", err)
		}
		if err := json.Unmarshal(raw, &summary.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics for %s: %w", summary.Date, err)
		}
		summary.ComputedAt = summary.ComputedAt.UTC()
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day summaries: %w", err)
	}

	return summaries, nil
}
