package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/day-timeline/internal/daystate"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DayHandler serves the day document and its timeline mutations
type DayHandler struct {
	days *daystate.Service
	log  *zap.Logger
	now  func() time.Time
}

// NewDayHandler creates a new day handler
func NewDayHandler(days *daystate.Service, log *zap.Logger) *DayHandler {
	return &DayHandler{days: days, log: log, now: utcNow}
}

// RegisterRoutes registers day routes on the given router
// The router should already have the /days prefix
func (h *DayHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{date}", h.GetDay).Methods(http.MethodGet)
	r.HandleFunc("/{date}", h.PutDay).Methods(http.MethodPut)
	r.HandleFunc("/{date}/metrics", h.GetMetrics).Methods(http.MethodGet)
	r.HandleFunc("/{date}/start", h.StartDay).Methods(http.MethodPost)
	r.HandleFunc("/{date}/reset", h.ResetDay).Methods(http.MethodPost)

	blocks := r.PathPrefix("/{date}/blocks/{blockId}").Subrouter()
	blocks.HandleFunc("/sessions/start", h.StartSession).Methods(http.MethodPost)
	blocks.HandleFunc("/sessions/stop", h.StopSession).Methods(http.MethodPost)
	blocks.HandleFunc("/complete", h.CompleteBlock).Methods(http.MethodPost)
	blocks.HandleFunc("/reopen", h.ReopenBlock).Methods(http.MethodPost)
	blocks.HandleFunc("/actual", h.SetActual).Methods(http.MethodPut)
	blocks.HandleFunc("/tasks/{taskId}/toggle", h.ToggleTask).Methods(http.MethodPost)
}

func utcNow() time.Time { return time.Now().UTC() }

// StartDayRequest optionally backdates the day start
type StartDayRequest struct {
	At *time.Time `json:"at"`
}

// SetActualRequest overrides tracked minutes; null clears the override
type SetActualRequest struct {
	Minutes *float64 `json:"minutes"`
}

// GetDay returns the day, seeding it on first access
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	state, err := h.days.Load(r.Context(), user.ID, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// ResetDay discards the day and returns a newly seeded one
func (h *DayHandler) ResetDay(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	state, err := h.days.ResetDay(r.Context(), user.ID, mux.Vars(r)["date"])
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// PutDay replaces the day with a validated client document
func (h *DayHandler) PutDay(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body models.DayState
	if !decodeJSON(w, r, &body, false) {
		return
	}
	saved, err := h.days.Save(r.Context(), user.ID, mux.Vars(r)["date"], &body)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

// GetMetrics computes metrics now, or at the RFC3339 ?now= instant
func (h *DayHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	now := h.now()
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, CodeInvalidQuery, "now must be an RFC3339 timestamp")
			return
		}
		now = parsed.UTC()
	}
	m, err := h.days.Metrics(r.Context(), user.ID, mux.Vars(r)["date"], now)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// StartDay sets dayStartAt to the body's "at", or now
func (h *DayHandler) StartDay(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body StartDayRequest
	if !decodeJSON(w, r, &body, true) {
		return
	}
	at := h.now()
	if body.At != nil {
		at = body.At.UTC()
	}
	h.respondMutation(w, r)(h.days.StartDay(r.Context(), user.ID, mux.Vars(r)["date"], at))
}

// StartSession starts tracking a block, stopping whatever was running
func (h *DayHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	h.respondMutation(w, r)(h.days.StartSession(r.Context(), user.ID, vars["date"], vars["blockId"], h.now()))
}

// StopSession stops the block's running session
func (h *DayHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	h.respondMutation(w, r)(h.days.StopSession(r.Context(), user.ID, vars["date"], vars["blockId"], h.now()))
}

// CompleteBlock marks a block done
func (h *DayHandler) CompleteBlock(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	h.respondMutation(w, r)(h.days.CompleteBlock(r.Context(), user.ID, vars["date"], vars["blockId"], h.now()))
}

// ReopenBlock clears a block's completion
func (h *DayHandler) ReopenBlock(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	h.respondMutation(w, r)(h.days.ReopenBlock(r.Context(), user.ID, vars["date"], vars["blockId"]))
}

// SetActual sets or clears the manual actual-minutes override
func (h *DayHandler) SetActual(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body SetActualRequest
	if !decodeJSON(w, r, &body, false) {
		return
	}
	vars := mux.Vars(r)
	h.respondMutation(w, r)(h.days.SetActualOverride(r.Context(), user.ID, vars["date"], vars["blockId"], body.Minutes))
}

// ToggleTask flips a task's completion
func (h *DayHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	h.respondMutation(w, r)(h.days.ToggleTask(r.Context(), user.ID, vars["date"], vars["blockId"], vars["taskId"]))
}

func (h *DayHandler) respondMutation(w http.ResponseWriter, r *http.Request) func(*models.DayState, error) {
	return func(state *models.DayState, err error) {
		if err != nil {
			respondServiceError(w, r, h.log, err)
			return
		}
		respondJSON(w, http.StatusOK, state)
	}
}
