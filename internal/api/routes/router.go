package routes

import (
	"net/http"

	"github.com/zatekoja/facilitysearch/internal/api/handlers"
	"github.com/zatekoja/facilitysearch/internal/api/middleware"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux             *http.ServeMux
	facilityHandler *handlers.FacilityHandler
	healthHandler   *handlers.HealthHandler
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	facilityHandler *handlers.FacilityHandler,
	healthHandler *handlers.HealthHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		facilityHandler: facilityHandler,
		healthHandler:   healthHandler,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	r.mux.HandleFunc("GET /api/facilities/search", r.facilityHandler.SearchFacilities)
	r.mux.HandleFunc("GET /api/facilities/autocomplete", r.facilityHandler.SuggestFacilities)

	// Apply middleware in reverse order (last middleware wraps first).
	// The request id must be set before logging and tracing read it.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
