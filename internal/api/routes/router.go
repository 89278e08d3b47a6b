package routes

import (
	"net/http"

	"github.com/dontkillit/backend/internal/api/handlers"
	"github.com/dontkillit/backend/internal/api/middleware"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	enrichmentHandler *handlers.EnrichmentHandler
	sseHandler        *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. sseHandler and cacheMiddleware may be nil.
func NewRouter(
	enrichmentHandler *handlers.EnrichmentHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		enrichmentHandler: enrichmentHandler,
		sseHandler:        sseHandler,
		cacheMiddleware:   cacheMiddleware,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Enrichment endpoints
	r.mux.HandleFunc("POST /api/enrichment/trigger", r.enrichmentHandler.TriggerEnrichment)
	r.mux.HandleFunc("GET /api/enrichment/stats", r.enrichmentHandler.GetStats)
	r.mux.HandleFunc("GET /api/enrichment/logs", r.enrichmentHandler.ListLogs)
	r.mux.HandleFunc("GET /api/enrichment/cache", r.enrichmentHandler.ListCachedSpecies)
	r.mux.HandleFunc("GET /api/plants/{id}/enrichment", r.enrichmentHandler.GetPlantEnrichment)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/enrichment/events", r.sseHandler.StreamEnrichmentEvents)
	}

	// Apply middleware in reverse order (last middleware wraps first).
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
