package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
	tsclient "github.com/dontkillit/backend/internal/infrastructure/clients/typesense"
)

// MaxIndexedNames caps the alternative names stored per species
const MaxIndexedNames = 50

// TypesenseSpeciesAdapter indexes cached species for name search
type TypesenseSpeciesAdapter struct {
	client *tsclient.Client
}

var _ repositories.SpeciesSearchRepository = (*TypesenseSpeciesAdapter)(nil)

// NewTypesenseSpeciesAdapter creates a new Typesense species adapter
func NewTypesenseSpeciesAdapter(client *tsclient.Client) *TypesenseSpeciesAdapter {
	return &TypesenseSpeciesAdapter{client: client}
}

// Index upserts a cached species
func (a *TypesenseSpeciesAdapter) Index(ctx context.Context, entry *entities.SpeciesCacheEntry) error {
	if entry == nil || entry.PerenualID == 0 {
		return fmt.Errorf("species without perenual id cannot be indexed")
	}

	_, err := a.client.Client().Collection(tsclient.SpeciesCollection).Documents().Upsert(ctx, buildSpeciesDocument(entry))
	if err != nil {
		return fmt.Errorf("failed to index species %d: %w", entry.PerenualID, err)
	}
	return nil
}

// Search matches query against every indexed name
func (a *TypesenseSpeciesAdapter) Search(ctx context.Context, query string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("scientific_name,common_name,alternative_names"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.SpeciesCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search species: %w", err)
	}

	entries := make([]*entities.SpeciesCacheEntry, 0)
	if result.Hits == nil {
		return entries, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		entries = append(entries, speciesFromDocument(*hit.Document))
	}
	return entries, nil
}

func buildSpeciesDocument(entry *entities.SpeciesCacheEntry) map[string]interface{} {
	doc := map[string]interface{}{
		"id":                strconv.Itoa(entry.PerenualID),
		"perenual_id":       entry.PerenualID,
		"alternative_names": normalizeNames(entry.AlternativeNames, MaxIndexedNames),
		"fetched_at":        entry.FetchedAt.Unix(),
	}
	optional := map[string]string{
		"scientific_name":      entry.ScientificName,
		"common_name":          entry.CommonName,
		"watering":             entry.Watering,
		"care_level":           entry.CareLevel,
		"lighting_requirement": entry.LightingRequirement,
		"image_url":            entry.ImageURL,
	}
	for field, value := range optional {
		if value != "" {
			doc[field] = value
		}
	}
	return doc
}

// speciesFromDocument rebuilds the indexed subset of a species. Numbers
// arrive as float64 after JSON decoding.
func speciesFromDocument(doc map[string]interface{}) *entities.SpeciesCacheEntry {
	entry := &entities.SpeciesCacheEntry{}

	if v, ok := doc["perenual_id"].(float64); ok {
		entry.PerenualID = int(v)
	}
	entry.ScientificName, _ = doc["scientific_name"].(string)
	entry.CommonName, _ = doc["common_name"].(string)
	entry.Watering, _ = doc["watering"].(string)
	entry.CareLevel, _ = doc["care_level"].(string)
	entry.LightingRequirement, _ = doc["lighting_requirement"].(string)
	entry.ImageURL, _ = doc["image_url"].(string)
	if v, ok := doc["fetched_at"].(float64); ok {
		entry.FetchedAt = time.Unix(int64(v), 0).UTC()
	}
	if names, ok := doc["alternative_names"].([]interface{}); ok {
		for _, n := range names {
			if s, ok := n.(string); ok {
				entry.AlternativeNames = append(entry.AlternativeNames, s)
			}
		}
	}
	return entry
}

// normalizeNames trims, lowercases and dedupes names, keeping first-seen order
func normalizeNames(names []string, limit int) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
		if len(result) >= limit {
			break
		}
	}
	return result
}
