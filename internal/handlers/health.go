package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// checkTimeout bounds each dependency check
const checkTimeout = 5 * time.Second

// CheckFunc checks one dependency
type CheckFunc func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	checks map[string]CheckFunc
}

// NewHealthChecker creates a health checker. checks are only run in extended mode.
func NewHealthChecker(checks map[string]CheckFunc) *HealthChecker {
	return &HealthChecker{checks: checks}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles /health. With ?mode=extended every dependency is checked
// and any failure turns the response into a 503.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Message:   "Productivity Assistant API is running",
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
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := h.checks[name](checkCtx)
		cancel()
		if err != nil {
			results[name] = "unhealthy: " + err.Error()
			continue
		}
		results[name] = "healthy"
	}
	return results
}
