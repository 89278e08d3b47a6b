package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

var plantEnrichmentColumns = []string{
	"id", "plant_id", "perenual_id", "perenual_fetched_at", "perenual_query_used",
	"has_watering_data", "has_sunlight_data", "has_care_level_data",
	"has_toxicity_data", "has_soil_data", "has_description",
	"watering_category", "watering_benchmark_value", "watering_benchmark_unit",
	"care_level", "growth_rate", "maintenance", "cycle",
	"hardiness_min", "hardiness_max", "drought_tolerant", "soil_types",
	"scientific_name", "common_name", "description", "origin",
	"propagation_methods", "flowering_season",
	"poisonous_to_pets", "poisonous_to_humans", "perenual_image_url",
	"last_error", "error_count", "created_at", "updated_at",
}

// PlantEnrichmentAdapter implements PlantEnrichmentRepository
type PlantEnrichmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPlantEnrichmentAdapter creates a new adapter
func NewPlantEnrichmentAdapter(client *postgres.Client) repositories.PlantEnrichmentRepository {
	return &PlantEnrichmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByPlantID retrieves the enrichment of a plant
func (a *PlantEnrichmentAdapter) GetByPlantID(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error) {
	query, args, err := a.db.Select(toColumns("", plantEnrichmentColumns)...).
		From("plant_enrichments").
		Where(goqu.Ex{"plant_id": plantID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build enrichment query", err)
	}

	enrichment, err := scanPlantEnrichment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plant enrichment with plant_id %d not found", plantID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get plant enrichment", err)
	}
	return enrichment, nil
}

// GetOrCreate returns the enrichment of a plant, creating an empty one first
// if needed
func (a *PlantEnrichmentAdapter) GetOrCreate(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error) {
	query := `
		INSERT INTO plant_enrichments (plant_id, error_count, created_at, updated_at)
		VALUES ($1, 0, $2, $2)
		ON CONFLICT (plant_id) DO NOTHING
	`
	if _, err := a.client.DB().ExecContext(ctx, query, plantID, time.Now().UTC()); err != nil {
		return nil, apperrors.NewInternalError("failed to create plant enrichment", err)
	}
	return a.GetByPlantID(ctx, plantID)
}

// Update persists every mutable field of the enrichment
func (a *PlantEnrichmentAdapter) Update(ctx context.Context, e *entities.PlantEnrichment) error {
	if e == nil {
		return apperrors.NewValidationError("enrichment is required")
	}
	e.UpdatedAt = time.Now().UTC()

	record := goqu.Record{
		"perenual_id":              nullInt(e.PerenualID),
		"perenual_fetched_at":      nullTime(e.PerenualFetchedAt),
		"perenual_query_used":      nullString(e.PerenualQueryUsed),
		"has_watering_data":        e.HasWateringData,
		"has_sunlight_data":        e.HasSunlightData,
		"has_care_level_data":      e.HasCareLevelData,
		"has_toxicity_data":        e.HasToxicityData,
		"has_soil_data":            e.HasSoilData,
		"has_description":          e.HasDescription,
		"watering_category":        nullString(e.WateringCategory),
		"watering_benchmark_value": nullString(e.WateringBenchmarkValue),
		"watering_benchmark_unit":  nullString(e.WateringBenchmarkUnit),
		"care_level":               nullString(e.CareLevel),
		"growth_rate":              nullString(e.GrowthRate),
		"maintenance":              nullString(e.Maintenance),
		"cycle":                    nullString(e.Cycle),
		"hardiness_min":            nullString(e.HardinessMin),
		"hardiness_max":            nullString(e.HardinessMax),
		"drought_tolerant":         nullBool(e.DroughtTolerant),
		"soil_types":               pq.Array(e.SoilTypes),
		"scientific_name":          nullString(e.ScientificName),
		"common_name":              nullString(e.CommonName),
		"description":              nullString(e.Description),
		"origin":                   pq.Array(e.Origin),
		"propagation_methods":      pq.Array(e.PropagationMethods),
		"flowering_season":         nullString(e.FloweringSeason),
		"poisonous_to_pets":        nullBool(e.PoisonousToPets),
		"poisonous_to_humans":      nullBool(e.PoisonousToHumans),
		"perenual_image_url":       nullString(e.PerenualImageURL),
		"last_error":               nullString(e.LastError),
		"error_count":              e.ErrorCount,
		"updated_at":               e.UpdatedAt,
	}

	query, args, err := a.db.Update("plant_enrichments").
		Set(record).
		Where(goqu.Ex{"id": e.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update plant enrichment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("plant enrichment with id %d not found", e.ID))
	}
	return nil
}

// CountWithWateringData counts plants whose watering data is resolved
func (a *PlantEnrichmentAdapter) CountWithWateringData(ctx context.Context) (int, error) {
	query, args, err := a.db.From("plant_enrichments").
		Select(goqu.COUNT("*")).
		Where(goqu.C("has_watering_data").IsTrue()).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count enriched plants", err)
	}
	return count, nil
}

func scanPlantEnrichment(row rowScanner) (*entities.PlantEnrichment, error) {
	var perenualID sql.NullInt64
	var fetchedAt sql.NullTime
	var queryUsed, wateringCategory, benchmarkValue, benchmarkUnit sql.NullString
	var careLevel, growthRate, maintenance, cycle, hardinessMin, hardinessMax sql.NullString
	var scientificName, commonName, description, floweringSeason, imageURL, lastError sql.NullString
	var droughtTolerant, poisonousToPets, poisonousToHumans sql.NullBool
	e := &entities.PlantEnrichment{}

	err := row.Scan(
		&e.ID,
		&e.PlantID,
		&perenualID,
		&fetchedAt,
		&queryUsed,
		&e.HasWateringData,
		&e.HasSunlightData,
		&e.HasCareLevelData,
		&e.HasToxicityData,
		&e.HasSoilData,
		&e.HasDescription,
		&wateringCategory,
		&benchmarkValue,
		&benchmarkUnit,
		&careLevel,
		&growthRate,
		&maintenance,
		&cycle,
		&hardinessMin,
		&hardinessMax,
		&droughtTolerant,
		pq.Array(&e.SoilTypes),
		&scientificName,
		&commonName,
		&description,
		pq.Array(&e.Origin),
		pq.Array(&e.PropagationMethods),
		&floweringSeason,
		&poisonousToPets,
		&poisonousToHumans,
		&imageURL,
		&lastError,
		&e.ErrorCount,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.PerenualID = intPtr(perenualID)
	e.PerenualFetchedAt = timePtr(fetchedAt)
	e.PerenualQueryUsed = queryUsed.String
	e.WateringCategory = wateringCategory.String
	e.WateringBenchmarkValue = benchmarkValue.String
	e.WateringBenchmarkUnit = benchmarkUnit.String
	e.CareLevel = careLevel.String
	e.GrowthRate = growthRate.String
	e.Maintenance = maintenance.String
	e.Cycle = cycle.String
	e.HardinessMin = hardinessMin.String
	e.HardinessMax = hardinessMax.String
	e.DroughtTolerant = boolPtr(droughtTolerant)
	e.ScientificName = scientificName.String
	e.CommonName = commonName.String
	e.Description = description.String
	e.FloweringSeason = floweringSeason.String
	e.PoisonousToPets = boolPtr(poisonousToPets)
	e.PoisonousToHumans = boolPtr(poisonousToHumans)
	e.PerenualImageURL = imageURL.String
	e.LastError = lastError.String
	return e, nil
}
