package handlers

import (
	"net/http"
	"time"

	"github.com/drugfactsio/backend/internal/application/services"
	"github.com/drugfactsio/backend/pkg/breaker"
)

// HealthHandler reports dependency health and circuit breaker state
type HealthHandler struct {
	tracker  *services.HealthTracker
	registry *breaker.Registry
	started  time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(tracker *services.HealthTracker, registry *breaker.Registry) *HealthHandler {
	return &HealthHandler{
		tracker:  tracker,
		registry: registry,
		started:  time.Now(),
	}
}

// Liveness handles GET /health
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		return
	}
}

// GetHealth handles GET /api/health with full dependency detail
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	dependencies := h.tracker.SnapshotAll()

	status := services.HealthStatusHealthy
	for _, dep := range dependencies {
		switch dep.Status {
		case services.HealthStatusUnhealthy:
			status = services.HealthStatusUnhealthy
		case services.HealthStatusDegraded:
			if status == services.HealthStatusHealthy {
				status = services.HealthStatusDegraded
			}
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":           status,
		"uptime_seconds":   int64(time.Since(h.started).Seconds()),
		"dependencies":     dependencies,
		"circuit_breakers": h.registry.Metrics(),
	})
}
