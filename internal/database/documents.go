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

// TemplateRepository stores the block template document of each user
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Get returns the user's templates or ErrNotFound
func (r *TemplateRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserTemplates, error) {
	doc := &models.UserTemplates{UserID: userID}
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT version, templates, created_at, updated_at
		FROM block_templates WHERE user_id = $1
	`, userID).Scan(&doc.Version, &raw, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get templates: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	return doc, nil
}

// Put replaces the user's template document
func (r *TemplateRepository) Put(ctx context.Context, doc *models.UserTemplates) error {
	templates := doc.Templates
	if templates == nil {
		templates = []models.BlockTemplate{}
	}
	raw, err := json.Marshal(templates)
	if err != nil {
		return fmt.Errorf("failed to encode templates: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO block_templates (user_id, version, templates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			version = EXCLUDED.version,
			templates = EXCLUDED.templates,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, doc.UserID, doc.Version, raw, time.Now().UTC()).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put templates: %w", err)
	}
	return nil
}

// CategoryRepository stores the category document of each user
type CategoryRepository struct {
	db *DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Get returns the user's categories or ErrNotFound
func (r *CategoryRepository) Get(ctx context.Context, userID uuid.UUID) (*models.UserCategories, error) {
	doc := &models.UserCategories{UserID: userID}
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT version, categories, created_at, updated_at
		FROM categories WHERE user_id = $1
	`, userID).Scan(&doc.Version, &raw, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	if err := json.Unmarshal(raw, &doc.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return doc, nil
}

// Put replaces the user's category document. Soft-deleted entries are
// stored as sent.
func (r *CategoryRepository) Put(ctx context.Context, doc *models.UserCategories) error {
	categories := doc.Categories
	if categories == nil {
		categories = []models.Category{}
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO categories (user_id, version, categories, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			version = EXCLUDED.version,
			categories = EXCLUDED.categories,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, doc.UserID, doc.Version, raw, time.Now().UTC()).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put categories: %w", err)
	}
	return nil
}
