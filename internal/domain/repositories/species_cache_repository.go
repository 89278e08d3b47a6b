package repositories

import (
	"context"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// SpeciesCacheRepository defines the interface for the shared species cache.
// Lookups by name are case-insensitive exact matches and return a NOT_FOUND
// error on a miss.
type SpeciesCacheRepository interface {
	GetByPerenualID(ctx context.Context, perenualID int) (*entities.SpeciesCacheEntry, error)
	FindByScientificName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error)
	FindByCommonName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error)

	// Create inserts the entry unless one with the same provider id exists.
	// It reports whether a row was written.
	Create(ctx context.Context, entry *entities.SpeciesCacheEntry) (bool, error)

	// List returns entries whose names contain search, newest first
	List(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error)
	Count(ctx context.Context) (int, error)
}

// SpeciesSearchRepository is a full-text index over cached species
type SpeciesSearchRepository interface {
	Index(ctx context.Context, entry *entities.SpeciesCacheEntry) error
	Search(ctx context.Context, query string, limit int) ([]*entities.SpeciesCacheEntry, error)
}
