package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

var speciesCacheColumns = []string{
	"id", "perenual_id", "scientific_name", "common_name", "alternative_names", "raw_data",
	"watering", "watering_frequency_days", "watering_benchmark_value", "watering_benchmark_unit",
	"sunlight", "lighting_requirement", "care_level", "growth_rate", "maintenance", "cycle",
	"hardiness_min", "hardiness_max", "drought_tolerant", "soil_types", "indoor",
	"poisonous_to_pets", "poisonous_to_humans", "description", "origin", "propagation",
	"flowering_season", "image_url", "fetched_at", "created_at",
}

// SpeciesCacheAdapter implements SpeciesCacheRepository on PostgreSQL
type SpeciesCacheAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSpeciesCacheAdapter creates a new species cache adapter
func NewSpeciesCacheAdapter(client *postgres.Client) repositories.SpeciesCacheRepository {
	return &SpeciesCacheAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByPerenualID retrieves a cached species by provider id
func (a *SpeciesCacheAdapter) GetByPerenualID(ctx context.Context, perenualID int) (*entities.SpeciesCacheEntry, error) {
	return a.getOne(ctx, goqu.Ex{"perenual_id": perenualID}, fmt.Sprintf("perenual_id %d", perenualID))
}

// FindByScientificName matches the scientific name case-insensitively
func (a *SpeciesCacheAdapter) FindByScientificName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	return a.findByName(ctx, "scientific_name", name)
}

// FindByCommonName matches the common name case-insensitively
func (a *SpeciesCacheAdapter) FindByCommonName(ctx context.Context, name string) (*entities.SpeciesCacheEntry, error) {
	return a.findByName(ctx, "common_name", name)
}

// Create inserts the entry unless its provider id is already cached
func (a *SpeciesCacheAdapter) Create(ctx context.Context, entry *entities.SpeciesCacheEntry) (bool, error) {
	if entry == nil || entry.PerenualID == 0 {
		return false, apperrors.NewValidationError("species cache entry requires a perenual id")
	}
	entry.ScientificName = strings.TrimSpace(entry.ScientificName)
	entry.CommonName = strings.TrimSpace(entry.CommonName)

	var raw interface{}
	if len(entry.RawData) > 0 {
		raw = string(entry.RawData)
	}

	record := goqu.Record{
		"perenual_id":              entry.PerenualID,
		"scientific_name":          nullString(entry.ScientificName),
		"common_name":              nullString(entry.CommonName),
		"alternative_names":        pq.Array(entry.AlternativeNames),
		"raw_data":                 raw,
		"watering":                 nullString(entry.Watering),
		"watering_frequency_days":  nullInt(entry.WateringFrequencyDays),
		"watering_benchmark_value": nullString(entry.WateringBenchmarkValue),
		"watering_benchmark_unit":  nullString(entry.WateringBenchmarkUnit),
		"sunlight":                 pq.Array(entry.Sunlight),
		"lighting_requirement":     nullString(entry.LightingRequirement),
		"care_level":               nullString(entry.CareLevel),
		"growth_rate":              nullString(entry.GrowthRate),
		"maintenance":              nullString(entry.Maintenance),
		"cycle":                    nullString(entry.Cycle),
		"hardiness_min":            nullString(entry.HardinessMin),
		"hardiness_max":            nullString(entry.HardinessMax),
		"drought_tolerant":         nullBool(entry.DroughtTolerant),
		"soil_types":               pq.Array(entry.SoilTypes),
		"indoor":                   nullBool(entry.Indoor),
		"poisonous_to_pets":        nullBool(entry.PoisonousToPets),
		"poisonous_to_humans":      nullBool(entry.PoisonousToHumans),
		"description":              nullString(entry.Description),
		"origin":                   pq.Array(entry.Origin),
		"propagation":              pq.Array(entry.Propagation),
		"flowering_season":         nullString(entry.FloweringSeason),
		"image_url":                nullString(entry.ImageURL),
	}

	query, args, err := a.db.Insert("species_cache").
		Rows(record).
		OnConflict(goqu.DoNothing()).
		Returning("id", "fetched_at", "created_at").
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.FetchedAt, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to create species cache entry", err)
	}
	return true, nil
}

// List returns cached species whose scientific or common name contains
// search, most recently fetched first
func (a *SpeciesCacheAdapter) List(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	ds := a.db.Select(toColumns("", speciesCacheColumns)...).
		From("species_cache").
		Order(goqu.C("fetched_at").Desc(), goqu.C("id").Desc())

	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + search + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("scientific_name").ILike(pattern),
			goqu.C("common_name").ILike(pattern),
		))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list species cache", err)
	}
	defer rows.Close()

	entries := make([]*entities.SpeciesCacheEntry, 0)
	for rows.Next() {
		entry, err := scanSpeciesCacheEntry(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan species cache entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list species cache", err)
	}
	return entries, nil
}

// Count returns the number of cached species
func (a *SpeciesCacheAdapter) Count(ctx context.Context) (int, error) {
	query, args, err := a.db.From("species_cache").Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count species cache", err)
	}
	return count, nil
}

func (a *SpeciesCacheAdapter) findByName(ctx context.Context, column, name string) (*entities.SpeciesCacheEntry, error) {
	name = normalizeSpeciesName(name)
	if name == "" {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("species cache lookup by empty %s", column))
	}
	where := goqu.Func("LOWER", goqu.Func("TRIM", goqu.C(column))).Eq(name)
	return a.getOne(ctx, where, fmt.Sprintf("%s %q", column, name))
}

// normalizeSpeciesName is the form names are compared in, both in SQL and in
// Redis keys
func normalizeSpeciesName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (a *SpeciesCacheAdapter) getOne(ctx context.Context, where goqu.Expression, desc string) (*entities.SpeciesCacheEntry, error) {
	query, args, err := a.db.Select(toColumns("", speciesCacheColumns)...).
		From("species_cache").
		Where(where).
		Order(goqu.C("id").Asc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build species cache query", err)
	}

	entry, err := scanSpeciesCacheEntry(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("species cache entry with %s not found", desc))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get species cache entry", err)
	}
	return entry, nil
}

func scanSpeciesCacheEntry(row rowScanner) (*entities.SpeciesCacheEntry, error) {
	var scientificName, commonName, watering, benchmarkValue, benchmarkUnit, lighting sql.NullString
	var careLevel, growthRate, maintenance, cycle, hardinessMin, hardinessMax sql.NullString
	var description, floweringSeason, imageURL sql.NullString
	var frequency sql.NullInt64
	var droughtTolerant, indoor, poisonousToPets, poisonousToHumans sql.NullBool
	var raw []byte
	e := &entities.SpeciesCacheEntry{}

	err := row.Scan(
		&e.ID,
		&e.PerenualID,
		&scientificName,
		&commonName,
		pq.Array(&e.AlternativeNames),
		&raw,
		&watering,
		&frequency,
		&benchmarkValue,
		&benchmarkUnit,
		pq.Array(&e.Sunlight),
		&lighting,
		&careLevel,
		&growthRate,
		&maintenance,
		&cycle,
		&hardinessMin,
		&hardinessMax,
		&droughtTolerant,
		pq.Array(&e.SoilTypes),
		&indoor,
		&poisonousToPets,
		&poisonousToHumans,
		&description,
		pq.Array(&e.Origin),
		pq.Array(&e.Propagation),
		&floweringSeason,
		&imageURL,
		&e.FetchedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(raw) > 0 {
		e.RawData = raw
	}
	e.ScientificName = scientificName.String
	e.CommonName = commonName.String
	e.Watering = watering.String
	e.WateringFrequencyDays = intPtr(frequency)
	e.WateringBenchmarkValue = benchmarkValue.String
	e.WateringBenchmarkUnit = benchmarkUnit.String
	e.LightingRequirement = lighting.String
	e.CareLevel = careLevel.String
	e.GrowthRate = growthRate.String
	e.Maintenance = maintenance.String
	e.Cycle = cycle.String
	e.HardinessMin = hardinessMin.String
	e.HardinessMax = hardinessMax.String
	e.DroughtTolerant = boolPtr(droughtTolerant)
	e.Indoor = boolPtr(indoor)
	e.PoisonousToPets = boolPtr(poisonousToPets)
	e.PoisonousToHumans = boolPtr(poisonousToHumans)
	e.Description = description.String
	e.FloweringSeason = floweringSeason.String
	e.ImageURL = imageURL.String
	return e, nil
}
