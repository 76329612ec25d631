// Package dbtest provides in-memory implementations of the database
// repository interfaces for tests in other packages.
package dbtest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/google/uuid"
)

type dayKey struct {
	userID uuid.UUID
	date   string
}

// clone deep-copies v through JSON so callers never share memory with the
// store, mirroring a real round trip.
func clone[T any](v *T) *T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

// DayStates is an in-memory DayStateRepositoryInterface
type DayStates struct {
	mu      sync.Mutex
	states  map[dayKey]*models.DayState
	Upserts int
	// GetErr and UpsertErr (also used by Insert), when set, are returned
	// instead of touching the store
	GetErr    error
	UpsertErr error
}

// NewDayStates creates an empty store
func NewDayStates() *DayStates {
	return &DayStates{states: make(map[dayKey]*models.DayState)}
}

// Get implements database.DayStateRepositoryInterface
func (m *DayStates) Get(_ context.Context, userID uuid.UUID, date string) (*models.DayState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	state, ok := m.states[dayKey{userID, date}]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clone(state), nil
}

// Upsert implements database.DayStateRepositoryInterface
func (m *DayStates) Upsert(_ context.Context, state *models.DayState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	now := time.Now().UTC()
	key := dayKey{state.UserID, state.Date}
	if existing, ok := m.states[key]; ok {
		state.CreatedAt = existing.CreatedAt
	} else {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	m.states[key] = clone(state)
	m.Upserts++
	return nil
}

// Insert implements database.DayStateRepositoryInterface
func (m *DayStates) Insert(_ context.Context, state *models.DayState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return false, m.UpsertErr
	}
	key := dayKey{state.UserID, state.Date}
	if _, ok := m.states[key]; ok {
		return false, nil
	}
	now := time.Now().UTC()
	state.CreatedAt = now
	state.UpdatedAt = now
	m.states[key] = clone(state)
	return true, nil
}

// Delete implements database.DayStateRepositoryInterface
func (m *DayStates) Delete(_ context.Context, userID uuid.UUID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dayKey{userID, date}
	if _, ok := m.states[key]; !ok {
		return database.ErrNotFound
	}
	delete(m.states, key)
	return nil
}

// Put stores state as-is, for seeding tests
func (m *DayStates) Put(state *models.DayState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[dayKey{state.UserID, state.Date}] = clone(state)
}

// Stored returns a copy of the stored day, or nil
func (m *DayStates) Stored(userID uuid.UUID, date string) *models.DayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[dayKey{userID, date}]
	if !ok {
		return nil
	}
	return clone(state)
}

// Templates is an in-memory TemplateRepositoryInterface
type Templates struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]*models.UserTemplates
	GetErr error
}

// NewTemplates creates an empty store
func NewTemplates() *Templates {
	return &Templates{docs: make(map[uuid.UUID]*models.UserTemplates)}
}

// Get implements database.TemplateRepositoryInterface
func (m *Templates) Get(_ context.Context, userID uuid.UUID) (*models.UserTemplates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	doc, ok := m.docs[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clone(doc), nil
}

// Put implements database.TemplateRepositoryInterface
func (m *Templates) Put(_ context.Context, doc *models.UserTemplates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.docs[doc.UserID]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	m.docs[doc.UserID] = clone(doc)
	return nil
}

// Categories is an in-memory CategoryRepositoryInterface
type Categories struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*models.UserCategories
}

// NewCategories creates an empty store
func NewCategories() *Categories {
	return &Categories{docs: make(map[uuid.UUID]*models.UserCategories)}
}

// Get implements database.CategoryRepositoryInterface
func (m *Categories) Get(_ context.Context, userID uuid.UUID) (*models.UserCategories, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clone(doc), nil
}

// Put implements database.CategoryRepositoryInterface
func (m *Categories) Put(_ context.Context, doc *models.UserCategories) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.docs[doc.UserID]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	m.docs[doc.UserID] = clone(doc)
	return nil
}

// Summaries is an in-memory DaySummaryRepositoryInterface
type Summaries struct {
	mu        sync.Mutex
	rows      map[dayKey]*models.DaySummary
	UpsertErr error
}

// NewSummaries creates an empty store
func NewSummaries() *Summaries {
	return &Summaries{rows: make(map[dayKey]*models.DaySummary)}
}

// Upsert implements database.DaySummaryRepositoryInterface
func (m *Summaries) Upsert(_ context.Context, summary *models.DaySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.rows[dayKey{summary.UserID, summary.Date}] = clone(summary)
	return nil
}

// ListRange implements database.DaySummaryRepositoryInterface
func (m *Summaries) ListRange(_ context.Context, userID uuid.UUID, from, to string) ([]*models.DaySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.DaySummary{}
	for key, row := range m.rows {
		if key.userID == userID && key.date >= from && key.date <= to {
			out = append(out, clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Users is an in-memory UserRepositoryInterface
type Users struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*models.User
	byProvider map[string]uuid.UUID
}

// NewUsers creates an empty store
func NewUsers() *Users {
	return &Users{
		byID:       make(map[uuid.UUID]*models.User),
		byProvider: make(map[string]uuid.UUID),
	}
}

// GetByID implements database.UserRepositoryInterface
func (m *Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clone(user), nil
}

// GetOrCreateByProvider implements database.UserRepositoryInterface
func (m *Users) GetOrCreateByProvider(_ context.Context, providerID, email, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if id, ok := m.byProvider[providerID]; ok {
		user := m.byID[id]
		if email != "" {
			user.Email = email
		}
		user.LastLoginAt = &now
		return clone(user), nil
	}
	pid := providerID
	user := &models.User{ID: uuid.New(), Email: email, ProviderID: &pid, LastLoginAt: &now, CreatedAt: now, UpdatedAt: now}
	if name != "" {
		user.Name = &name
	}
	m.byID[user.ID] = user
	m.byProvider[providerID] = user.ID
	return clone(user), nil
}

// Add stores user directly
func (m *Users) Add(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = clone(user)
	if user.ProviderID != nil {
		m.byProvider[*user.ProviderID] = user.ID
	}
}

var (
	_ database.DayStateRepositoryInterface   = (*DayStates)(nil)
	_ database.TemplateRepositoryInterface   = (*Templates)(nil)
	_ database.CategoryRepositoryInterface   = (*Categories)(nil)
	_ database.DaySummaryRepositoryInterface = (*Summaries)(nil)
	_ database.UserRepositoryInterface       = (*Users)(nil)
)
