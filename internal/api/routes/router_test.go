package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dontkillit/backend/internal/api/handlers"
	"github.com/dontkillit/backend/internal/api/routes"
	"github.com/dontkillit/backend/internal/application/services"
	"github.com/dontkillit/backend/internal/domain/entities"
)

type stubEnrichment struct{}

func (stubEnrichment) Stats(ctx context.Context) (*services.EnrichmentStats, error) {
	return &services.EnrichmentStats{TodayStatus: "not_started"}, nil
}

func (stubEnrichment) ListLogs(ctx context.Context, limit int) ([]*entities.EnrichmentLog, error) {
	return []*entities.EnrichmentLog{}, nil
}

func (stubEnrichment) ListCachedSpecies(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	return []*entities.SpeciesCacheEntry{}, nil
}

func (stubEnrichment) GetPlantEnrichment(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error) {
	return &entities.PlantEnrichment{PlantID: plantID}, nil
}

func (stubEnrichment) TriggerNow(ctx context.Context, maxPlants *int) (*services.EnrichmentSummary, error) {
	return &services.EnrichmentSummary{Status: services.RunStatusNoPlants}, nil
}

func TestRouter_Routes(t *testing.T) {
	enrichment := handlers.NewEnrichmentHandler(stubEnrichment{}, stubEnrichment{}, nil, 0)
	handler := routes.NewRouter(enrichment, nil, nil, []string{"*"}, nil).SetupRoutes()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/api/enrichment/trigger", http.StatusOK},
		{http.MethodGet, "/api/enrichment/trigger", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/enrichment/stats", http.StatusOK},
		{http.MethodGet, "/api/enrichment/logs", http.StatusOK},
		{http.MethodGet, "/api/enrichment/cache", http.StatusOK},
		{http.MethodGet, "/api/plants/12/enrichment", http.StatusOK},
		{http.MethodGet, "/api/enrichment/events", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}
}
