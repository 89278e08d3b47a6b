package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dontkillit/backend/internal/application/services"
	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

const triggerWindow = time.Hour

// EnrichmentReader is the read side of the enrichment service
type EnrichmentReader interface {
	Stats(ctx context.Context) (*services.EnrichmentStats, error)
	ListLogs(ctx context.Context, limit int) ([]*entities.EnrichmentLog, error)
	ListCachedSpecies(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error)
	GetPlantEnrichment(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error)
}

// EnrichmentTrigger starts an out-of-band enrichment run
type EnrichmentTrigger interface {
	TriggerNow(ctx context.Context, maxPlants *int) (*services.EnrichmentSummary, error)
}

// EnrichmentHandler handles the operator enrichment endpoints
type EnrichmentHandler struct {
	reader       EnrichmentReader
	trigger      EnrichmentTrigger
	limiter      providers.RateLimiter
	triggerLimit int
}

// NewEnrichmentHandler creates a new enrichment handler. limiter may be nil,
// in which case triggers are not rate limited.
func NewEnrichmentHandler(reader EnrichmentReader, trigger EnrichmentTrigger, limiter providers.RateLimiter, triggerLimit int) *EnrichmentHandler {
	return &EnrichmentHandler{
		reader:       reader,
		trigger:      trigger,
		limiter:      limiter,
		triggerLimit: triggerLimit,
	}
}

// TriggerEnrichment handles POST /api/enrichment/trigger?max_plants=N
func (h *EnrichmentHandler) TriggerEnrichment(w http.ResponseWriter, r *http.Request) {
	if !h.allowTrigger(r) {
		respondWithError(w, http.StatusTooManyRequests, "too many enrichment triggers, try again later")
		return
	}

	var maxPlants *int
	if raw := r.URL.Query().Get("max_plants"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "max_plants must be a positive integer")
			return
		}
		maxPlants = &n
	}

	// The batch continues if the caller disconnects
	summary, err := h.trigger.TriggerNow(context.WithoutCancel(r.Context()), maxPlants)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// GetStats handles GET /api/enrichment/stats
func (h *EnrichmentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reader.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// ListLogs handles GET /api/enrichment/logs?limit=N
func (h *EnrichmentHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	logs, err := h.reader.ListLogs(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// ListCachedSpecies handles GET /api/enrichment/cache?search=&limit=N
func (h *EnrichmentHandler) ListCachedSpecies(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	species, err := h.reader.ListCachedSpecies(r.Context(), search, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"species": species,
		"count":   len(species),
	})
}

// GetPlantEnrichment handles GET /api/plants/{id}/enrichment
func (h *EnrichmentHandler) GetPlantEnrichment(w http.ResponseWriter, r *http.Request) {
	plantID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "plant ID must be an integer")
		return
	}

	enrichment, err := h.reader.GetPlantEnrichment(r.Context(), plantID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, enrichment)
}

// allowTrigger applies the per-client trigger limit. A limiter failure lets
// the request through.
func (h *EnrichmentHandler) allowTrigger(r *http.Request) bool {
	if h.limiter == nil || h.triggerLimit <= 0 {
		return true
	}
	allowed, err := h.limiter.Allow(r.Context(), "enrichment_trigger:"+clientIP(r), h.triggerLimit, triggerWindow)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Trigger rate limit check failed")
		return true
	}
	return allowed
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an AppError anywhere in the chain to its status
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeValidation:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeConflict:
		respondWithError(w, http.StatusConflict, appErr.Message)
	case apperrors.ErrorTypeRateLimited:
		respondWithError(w, http.StatusTooManyRequests, appErr.Message)
	case apperrors.ErrorTypeExternal:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	default:
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
