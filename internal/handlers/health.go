package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// HealthHandler reports the state of each dependency
type HealthHandler struct {
	checks map[string]Checker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthResult struct {
	Status string `json:"status"`
}

// Check handles GET /api/v1/healthz
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]healthResult, len(h.checks))
	status := http.StatusOK

	for name, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			log.Error().Err(err).Str("name", name).Msg("Health check failed")
			results[name] = healthResult{Status: "error"}
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = healthResult{Status: "ok"}
	}

	respondJSON(w, status, results)
}

// Banner handles GET /api/v1/
func (h *HealthHandler) Banner(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "adventure-checkin-api",
		"status":  "ok",
	})
}
