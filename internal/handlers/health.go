package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sync"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// Check is one named dependency probe
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	checks []Check
}

// NewHealthChecker creates a health checker over the given probes. Nil
// probes are skipped so optional dependencies can be passed unconditionally.
func NewHealthChecker(checks ...Check) *HealthChecker {
	h := &HealthChecker{}
	for _, c := range checks {
		if c.Fn != nil {
			h.checks = append(h.checks, c)
		}
	}
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles /healthz. ?mode=extended probes every dependency
// concurrently and answers 503 when any of them fails.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		response.Checks = h.run(r.Context())
		for _, result := range response.Checks {
			if result != "healthy" {
				response.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) run(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(h.checks))
	)
	for _, c := range h.checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			result := "healthy"
			if err := c.Fn(ctx); err != nil {
				result = "unhealthy: " + err.Error()
			}
			mu.Lock()
			results[c.Name] = result
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

// Build metadata, set with -ldflags "-X github.com/benvon/day-timeline/internal/handlers.Version=..."
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// VersionInfo handles /version
func VersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := map[string]string{"version": Version}
	if Commit != "" {
		info["commit"] = Commit
	}
	if BuildDate != "" {
		info["build_date"] = BuildDate
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info["go_version"] = bi.GoVersion
	}
	respondJSON(w, http.StatusOK, info)
}
