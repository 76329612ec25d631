package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
)

// DayStateRepository stores one day document per user and date. Blocks are
// kept as JSONB exactly as received and day_start_at as RFC 3339 text, so
// session order and nanosecond timestamps survive a round trip.
type DayStateRepository struct {
	db *DB
}

// NewDayStateRepository creates a new day state repository
func NewDayStateRepository(db *DB) *DayStateRepository {
	return &DayStateRepository{db: db}
}

// Get returns the stored day or ErrNotFound
func (r *DayStateRepository) Get(ctx context.Context, userID uuid.UUID, date string) (*models.DayState, error) {
	query := `
		SELECT version, to_char(date, 'YYYY-MM-DD'), day_start_at, blocks, created_at, updated_at
		FROM day_states
		WHERE user_id = $1 AND date = $2
	`

	state := &models.DayState{UserID: userID}
	var dayStartAt sql.NullString
	var blocks []byte
	err := r.db.QueryRowContext(ctx, query, userID, date).Scan(
		&state.Version,
		&state.Date,
		&dayStartAt,
		&blocks,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day state: %w", err)
	}

	if dayStartAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, dayStartAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decode day start for %s: %w", date, err)
		}
		t = t.UTC()
		state.DayStartAt = &t
	}
	if err := json.Unmarshal(blocks, &state.Blocks); err != nil {
		return nil, fmt.Errorf("failed to decode blocks for %s: %w", date, err)
	}
	if state.Blocks == nil {
		state.Blocks = []models.Block{}
	}
	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()

	return state, nil
}

// Upsert inserts or replaces the day. created_at of an existing row is kept;
// CreatedAt and UpdatedAt on state are refreshed from the stored row.
func (r *DayStateRepository) Upsert(ctx context.Context, state *models.DayState) error {
	blocks := state.Blocks
	if blocks == nil {
		blocks = []models.Block{}
	}
	blocksJSON, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("failed to encode blocks: %w", err)
	}

	query := `
		INSERT INTO day_states (user_id, date, version, day_start_at, blocks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, date) DO UPDATE SET
			version = EXCLUDED.version,
			day_start_at = EXCLUDED.day_start_at,
			blocks = EXCLUDED.blocks,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err = r.db.QueryRowContext(ctx, query,
		state.UserID,
		state.Date,
		state.Version,
		dayStartText(state.DayStartAt),
		blocksJSON,
		now,
	).Scan(&state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert day state: %w", err)
	}

	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()
	return nil
}

// Insert stores state unless the day already exists. It returns false,
// leaving state untouched, when another writer got there first.
func (r *DayStateRepository) Insert(ctx context.Context, state *models.DayState) (bool, error) {
	blocks := state.Blocks
	if blocks == nil {
		blocks = []models.Block{}
	}
	blocksJSON, err := json.Marshal(blocks)
	if err != nil {
		return false, fmt.Errorf("failed to encode blocks: %w", err)
	}

	query := `
		INSERT INTO day_states (user_id, date, version, day_start_at, blocks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, date) DO NOTHING
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	var createdAt, updatedAt time.Time
	err = r.db.QueryRowContext(ctx, query,
		state.UserID,
		state.Date,
		state.Version,
		dayStartText(state.DayStartAt),
		blocksJSON,
		now,
	).Scan(&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert day state: %w", err)
	}

	state.CreatedAt = createdAt.UTC()
	state.UpdatedAt = updatedAt.UTC()
	return true, nil
}

// Delete removes a stored day; missing rows yield ErrNotFound
func (r *DayStateRepository) Delete(ctx context.Context, userID uuid.UUID, date string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM day_states WHERE user_id = $1 AND date = $2`, userID, date)
	if err != nil {
		return fmt.Errorf("failed to delete day state: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func dayStartText(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
