package handlers

import (
	"context"
	"net/http"
	"time"

	"kujisan/application/ports"

	"go.uber.org/zap"
)

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	checkers map[string]ports.HealthChecker
	timeout  time.Duration
	logger   *zap.Logger
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler creates a health handler over named dependencies
func NewHealthHandler(checkers map[string]ports.HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		timeout:  2 * time.Second,
		logger:   logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, HealthResponse{Status: "healthy"})
}

// Ready handles GET /ready; any failing dependency makes the service unready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK
	for name, checker := range h.checkers {
		if err := checker.HealthCheck(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unavailable"
			resp.Status = "unready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	respondJSON(w, h.logger, status, resp)
}
