package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drugfactsio/backend/internal/api/handlers"
	"github.com/drugfactsio/backend/internal/application/services"
	"github.com/drugfactsio/backend/pkg/breaker"
)

func TestHealthHandler_Liveness(t *testing.T) {
	handler := handlers.NewHealthHandler(services.NewHealthTracker(), breaker.NewRegistry(breaker.DefaultConfig()))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHealthHandler_GetHealth(t *testing.T) {
	tracker := services.NewHealthTracker()
	registry := breaker.NewRegistry(breaker.DefaultConfig())
	registry.Get(breaker.FDAAPIBreaker)

	tracker.RecordSuccess(services.DependencyFDA, "resolve", 120*time.Millisecond)
	for i := 0; i < 3; i++ {
		tracker.RecordSuccess(services.DependencyAI, "generate_enrichment", 200*time.Millisecond)
	}
	tracker.RecordError(services.DependencyAI, "generate_enrichment", errors.New("timeout"))
	tracker.RecordError(services.DependencyAI, "generate_enrichment", errors.New("timeout"))

	handler := handlers.NewHealthHandler(tracker, registry)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.GetHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status       string                      `json:"status"`
		Dependencies []services.DependencyHealth `json:"dependencies"`
		Breakers     []breaker.Metrics           `json:"circuit_breakers"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	// Two consecutive AI failures degrade overall health.
	assert.Equal(t, string(services.HealthStatusDegraded), resp.Status)
	assert.Len(t, resp.Dependencies, 2)
	require.Len(t, resp.Breakers, 1)
	assert.Equal(t, breaker.FDAAPIBreaker, resp.Breakers[0].Name)
}
