package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/benvon/day-timeline/internal/daystate"
	logpkg "github.com/benvon/day-timeline/internal/logger"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/request"
	"go.uber.org/zap"
)

// Error codes returned in the "error" field of failure envelopes
const (
	CodeInvalidDate  = "INVALID_DATE"
	CodeInvalidState = "INVALID_STATE"
	CodeInvalidJSON  = "INVALID_JSON"
	CodeInvalidQuery = "INVALID_QUERY"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// sanitizeErrorMessage bounds client-facing messages
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"error":     code,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondServiceError maps day-state errors onto HTTP statuses. Anything
// unrecognised is logged and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, daystate.ErrInvalidDate):
		respondJSONError(w, http.StatusBadRequest, CodeInvalidDate, err.Error())
	case errors.Is(err, daystate.ErrInvalidState):
		respondJSONError(w, http.StatusBadRequest, CodeInvalidState, err.Error())
	case errors.Is(err, daystate.ErrBlockNotFound), errors.Is(err, daystate.ErrTaskNotFound):
		respondJSONError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, daystate.ErrNoOpenSession), errors.Is(err, daystate.ErrBlockCompleted):
		respondJSONError(w, http.StatusConflict, CodeConflict, err.Error())
	default:
		log.Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", logpkg.SanitizePath(r.URL.Path)),
			zap.String("request_id", request.RequestID(r.Context())),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// requireUser returns the authenticated user or answers 401
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, CodeUnauthorized, "User not found in context")
		return nil, false
	}
	return user, true
}

// decodeJSON reads one JSON value from the body into dst. An empty body is
// accepted when optional is true and leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondJSONError(w, http.StatusRequestEntityTooLarge, CodeInvalidJSON, "Request body too large")
		return false
	}
	respondJSONError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON body: "+err.Error())
	return false
}
