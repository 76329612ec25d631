package handlers

import (
	"net/http"

	"github.com/benvon/day-timeline/internal/daystate"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PreferencesHandler serves the per-user template and category documents
// and the stored day summaries.
type PreferencesHandler struct {
	days *daystate.Service
	log  *zap.Logger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(days *daystate.Service, log *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{days: days, log: log}
}

// RegisterRoutes registers routes on the /api/v1 router
func (h *PreferencesHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/templates", h.GetTemplates).Methods(http.MethodGet)
	r.HandleFunc("/templates", h.PutTemplates).Methods(http.MethodPut)
	r.HandleFunc("/categories", h.GetCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", h.PutCategories).Methods(http.MethodPut)
	r.HandleFunc("/summaries", h.ListSummaries).Methods(http.MethodGet)
}

// GetTemplates returns the user's block templates
func (h *PreferencesHandler) GetTemplates(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	doc, err := h.days.Templates(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// PutTemplates stores the user's block templates
func (h *PreferencesHandler) PutTemplates(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body models.UserTemplates
	if !decodeJSON(w, r, &body, false) {
		return
	}
	doc, err := h.days.SaveTemplates(r.Context(), user.ID, &body)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// GetCategories returns the user's categories, deleted ones included
func (h *PreferencesHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	doc, err := h.days.Categories(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// PutCategories stores the user's categories
func (h *PreferencesHandler) PutCategories(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body models.UserCategories
	if !decodeJSON(w, r, &body, false) {
		return
	}
	doc, err := h.days.SaveCategories(r.Context(), user.ID, &body)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// ListSummaries returns stored snapshots for ?from=&to= (inclusive)
func (h *PreferencesHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	summaries, err := h.days.Summaries(r.Context(), user.ID, q.Get("from"), q.Get("to"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}
