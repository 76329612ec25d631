package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okCheck(context.Context) error { return nil }

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       string
		checks     []Check
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips probes",
			checks:     []Check{{Name: "database", Fn: func(context.Context) error { return errors.New("down") }}},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name: "extended all healthy",
			mode: "extended",
			checks: []Check{
				{Name: "database", Fn: okCheck},
				{Name: "redis", Fn: okCheck},
				{Name: "queue"},
			},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"database": "healthy", "redis": "healthy"},
		},
		{
			name: "extended with failure",
			mode: "extended",
			checks: []Check{
				{Name: "database", Fn: okCheck},
				{Name: "redis", Fn: func(context.Context) error { return errors.New("connection refused") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
			wantChecks: map[string]string{"database": "healthy", "redis": "unhealthy: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHealthChecker(tt.checks...)

			target := "/healthz"
			if tt.mode != "" {
				target += "?mode=" + tt.mode
			}
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, target, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("Expected status %q, got %q", tt.wantBody, resp.Status)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, resp.Checks[name], want)
				}
			}
		})
	}
}

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	VersionInfo(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var info map[string]string
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("Failed to decode version info: %v", err)
	}
	if info["version"] != Version {
		t.Errorf("Expected version %q, got %q", Version, info["version"])
	}
}
