package routes

import (
	"net/http"

	"github.com/drugfactsio/backend/internal/api/handlers"
	"github.com/drugfactsio/backend/internal/api/middleware"
	"github.com/drugfactsio/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	drugHandler   *handlers.DrugHandler
	healthHandler *handlers.HealthHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	drugHandler *handlers.DrugHandler,
	healthHandler *handlers.HealthHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		drugHandler:     drugHandler,
		healthHandler:   healthHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Liveness)
	r.mux.HandleFunc("GET /api/health", r.healthHandler.GetHealth)

	// Drug endpoints. Literal segments must be registered before the
	// {ndc} wildcard would otherwise shadow them.
	r.mux.HandleFunc("GET /api/drugs", r.drugHandler.ListDrugs)
	r.mux.HandleFunc("GET /api/drugs/search", r.drugHandler.SearchDrugs)
	r.mux.HandleFunc("GET /api/drugs/slug/{slug}", r.drugHandler.GetDrugBySlug)
	r.mux.HandleFunc("GET /api/drugs/{ndc}", r.drugHandler.GetDrugByNDC)

	// Enrichment endpoints
	r.mux.HandleFunc("POST /api/drugs/enrich", r.drugHandler.EnrichDrugs)
	r.mux.HandleFunc("POST /api/drugs/validate", r.drugHandler.ValidateIdentifiers)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
