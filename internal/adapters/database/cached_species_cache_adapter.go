package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
)

// speciesTTL is how long a species stays in Redis (in seconds)
const speciesTTL = 86400

// CachedSpeciesCacheAdapter puts Redis in front of the species cache table.
// Only hits are cached so a species stored later is found immediately.
type CachedSpeciesCacheAdapter struct {
	adapter repositories.SpeciesCacheRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedSpeciesCacheAdapter creates a new cached species cache adapter
func NewCachedSpeciesCacheAdapter(adapter repositories.SpeciesCacheRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.SpeciesCacheRepository {
	return &CachedSpeciesCacheAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

func speciesByPerenualKey(id int) string {
	return fmt.Sprintf("species:perenual:%d", id)
}

func speciesByScientificKey(name string) string {
	return "species:sci:" + normalizeSpeciesName(name)
}

func speciesByCommonKey(name string) string {
	return "species:common:" + normalizeSpeciesName(name)
}

// GetByPerenualID retrieves a species by provider id with caching
func (a *CachedSpeciesCacheAdapter) GetByPerenualID(ctx context.Context, perenualID int) (*entities.SpeciesCacheEntry, error) {
	return a.readThrough(ctx, "perenual_id", speciesByPerenualKey(perenualID), func() (*entities.SpeciesCacheEntry, error) {
		return a.adapter.GetByPerenualID(ctx, perenualID)
	})
}

// FindByScientificName retrieves a species by scientific name with caching
func (a *CachedSpeciesCacheAdapter) FindByScientificName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	if normalizeSpeciesName(name) == "" {
		return a.adapter.FindByScientificName(ctx, name)
	}
	return a.readThrough(ctx, "scientific_name", speciesByScientificKey(name), func() (*entities.SpeciesCacheEntry, error) {
		return a.adapter.FindByScientificName(ctx, name)
	})
}

// FindByCommonName retrieves a species by common name with caching
func (a *CachedSpeciesCacheAdapter) FindByCommonName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	if normalizeSpeciesName(name) == "" {
		return a.adapter.FindByCommonName(ctx, name)
	}
	return a.readThrough(ctx, "common_name", speciesByCommonKey(name), func() (*entities.SpeciesCacheEntry, error) {
		return a.adapter.FindByCommonName(ctx, name)
	})
}

// Create stores the species and primes the cache on success
func (a *CachedSpeciesCacheAdapter) Create(ctx context.Context, entry *entities.SpeciesCacheEntry) (bool, error) {
	created, err := a.adapter.Create(ctx, entry)
	if err != nil || !created {
		return created, err
	}
	a.store(ctx, entry)
	return true, nil
}

// List is not cached
func (a *CachedSpeciesCacheAdapter) List(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	return a.adapter.List(ctx, search, limit)
}

// Count is not cached
func (a *CachedSpeciesCacheAdapter) Count(ctx context.Context) (int, error) {
	return a.adapter.Count(ctx)
}

func (a *CachedSpeciesCacheAdapter) readThrough(ctx context.Context, lookup, key string, load func() (*entities.SpeciesCacheEntry, error)) (*entities.SpeciesCacheEntry, error) {
	if cached, err := a.cache.Get(ctx, key); err == nil {
		var entry entities.SpeciesCacheEntry
		if err := json.Unmarshal(cached, &entry); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, lookup)
			return &entry, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cached species")
		if err := a.cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to delete cached species")
		}
	}
	observability.RecordCacheMiss(ctx, a.metrics, lookup)

	entry, err := load()
	if err != nil {
		return nil, err
	}
	a.store(ctx, entry)
	return entry, nil
}

// store writes entry under every key it can be looked up by. Failures only
// cost a later cache miss.
func (a *CachedSpeciesCacheAdapter) store(ctx context.Context, entry *entities.SpeciesCacheEntry) {
	if entry == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Int("perenual_id", entry.PerenualID).Msg("Failed to marshal species for cache")
		return
	}

	keys := []string{speciesByPerenualKey(entry.PerenualID)}
	if normalizeSpeciesName(entry.ScientificName) != "" {
		keys = append(keys, speciesByScientificKey(entry.ScientificName))
	}
	if normalizeSpeciesName(entry.CommonName) != "" {
		keys = append(keys, speciesByCommonKey(entry.CommonName))
	}
	for _, key := range keys {
		if err := a.cache.Set(ctx, key, data, speciesTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache species")
		}
	}
}
