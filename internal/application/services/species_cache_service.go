package services

import (
	"context"
	"time"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

// SpeciesCacheService resolves species from the shared cache so each species
// is fetched from the provider at most once.
type SpeciesCacheService struct {
	repo   repositories.SpeciesCacheRepository
	search repositories.SpeciesSearchRepository
	now    func() time.Time
}

// NewSpeciesCacheService creates a species cache service. search may be nil
// when no search index is configured.
func NewSpeciesCacheService(repo repositories.SpeciesCacheRepository, search repositories.SpeciesSearchRepository) *SpeciesCacheService {
	return &SpeciesCacheService{
		repo:   repo,
		search: search,
		now:    time.Now,
	}
}

// Lookup matches the scientific name, then the common name, both exactly and
// case-insensitively. It returns nil without error on a miss.
func (s *SpeciesCacheService) Lookup(ctx context.Context, scientificName, commonName string) (*entities.SpeciesCacheEntry, error) {
	if scientificName != "" {
		entry, err := s.repo.FindByScientificName(ctx, scientificName)
		if err == nil {
			return entry, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	if commonName != "" {
		entry, err := s.repo.FindByCommonName(ctx, commonName)
		if err == nil {
			return entry, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
	}

	return nil, nil
}

// Store caches a provider match. When the provider id is already cached the
// existing entry is returned unchanged. A match without a provider id cannot
// be cached and yields nil.
func (s *SpeciesCacheService) Store(ctx context.Context, match *providers.SpeciesMatch) (*entities.SpeciesCacheEntry, error) {
	if match == nil || match.CareData.PerenualID == 0 {
		return nil, nil
	}

	existing, err := s.repo.GetByPerenualID(ctx, match.CareData.PerenualID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	entry := &entities.SpeciesCacheEntry{
		CareData:  match.CareData,
		RawData:   match.Raw,
		FetchedAt: s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !created {
		// stored by someone else in between
		return s.repo.GetByPerenualID(ctx, match.CareData.PerenualID)
	}

	if s.search != nil {
		if err := s.search.Index(ctx, entry); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Int("perenual_id", entry.PerenualID).
				Msg("Failed to index cached species")
		}
	}
	return entry, nil
}

// List returns cached species matching search. The search index is used when
// configured, falling back to the database if it fails.
func (s *SpeciesCacheService) List(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	if s.search != nil {
		entries, err := s.search.Search(ctx, search, limit)
		if err == nil {
			return entries, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Species search index unavailable, falling back to database")
	}
	return s.repo.List(ctx, search, limit)
}

// Count returns the number of cached species
func (s *SpeciesCacheService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
