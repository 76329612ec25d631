package database

import (
	"context"

	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
)

// DayStateRepositoryInterface is the persistence contract for day documents.
// Services and workers depend on it so tests can swap in mocks.
type DayStateRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID, date string) (*models.DayState, error)
	Upsert(ctx context.Context, state *models.DayState) error
	// Insert stores state only if no row exists and reports whether it did
	Insert(ctx context.Context, state *models.DayState) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID, date string) error
}

// TemplateRepositoryInterface defines template document storage
type TemplateRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserTemplates, error)
	Put(ctx context.Context, doc *models.UserTemplates) error
}

// CategoryRepositoryInterface defines category document storage
type CategoryRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserCategories, error)
	Put(ctx context.Context, doc *models.UserCategories) error
}

// DaySummaryRepositoryInterface defines summary snapshot storage
type DaySummaryRepositoryInterface interface {
	Upsert(ctx context.Context, summary *models.DaySummary) error
	ListRange(ctx context.Context, userID uuid.UUID, from, to string) ([]*models.DaySummary, error)
}

// UserRepositoryInterface is what the auth middleware needs from users
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOrCreateByProvider(ctx context.Context, providerID, email, name string) (*models.User, error)
}

// OIDCConfigRepositoryInterface is what the login handlers need
type OIDCConfigRepositoryInterface interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// CorsConfigGetter loads the CORS row for the reloader
type CorsConfigGetter interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// RatelimitConfigGetter loads the rate row for the reloader
type RatelimitConfigGetter interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
}

var (
	_ DayStateRepositoryInterface   = (*DayStateRepository)(nil)
	_ TemplateRepositoryInterface   = (*TemplateRepository)(nil)
	_ CategoryRepositoryInterface   = (*CategoryRepository)(nil)
	_ DaySummaryRepositoryInterface = (*DaySummaryRepository)(nil)
	_ UserRepositoryInterface       = (*UserRepository)(nil)
	_ OIDCConfigRepositoryInterface = (*OIDCConfigRepository)(nil)
	_ CorsConfigGetter              = (*CorsConfigRepository)(nil)
	_ RatelimitConfigGetter         = (*RatelimitConfigRepository)(nil)
)
