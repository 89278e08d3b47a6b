package repositories

import (
	"context"
	"time"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// PlantRepository defines the plant queries the enrichment pipeline needs
type PlantRepository interface {
	// Create inserts a plant and sets its ID
	Create(ctx context.Context, plant *entities.Plant) error

	// GetByID returns a NOT_FOUND error when the plant does not exist
	GetByID(ctx context.Context, id int64) (*entities.Plant, error)

	// ListWithoutEnrichment returns plants that have a species but no
	// enrichment row yet
	ListWithoutEnrichment(ctx context.Context, limit int) ([]*entities.Plant, error)

	// ListIncompleteEnrichment returns plants whose enrichment lacks watering,
	// sunlight or care-level data and is eligible for retry: never errored,
	// or last updated before retryBefore
	ListIncompleteEnrichment(ctx context.Context, retryBefore time.Time, limit int) ([]*entities.Plant, error)

	// UpdateCareFields writes the non-nil fields of update
	UpdateCareFields(ctx context.Context, id int64, update entities.PlantCareUpdate) error

	// CountWithSpecies counts plants with a non-empty species
	CountWithSpecies(ctx context.Context) (int, error)
}
