package repositories

import (
	"context"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// PlantEnrichmentRepository defines the interface for per-plant enrichment storage
type PlantEnrichmentRepository interface {
	GetByPlantID(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error)
	GetOrCreate(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error)
	Update(ctx context.Context, enrichment *entities.PlantEnrichment) error
	CountWithWateringData(ctx context.Context) (int, error)
}
