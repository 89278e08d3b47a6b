package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

var plantColumns = []string{
	"id", "user_id", "name", "species", "identified_common_name",
	"lighting_requirement", "pet_friendly", "soil_type", "care_summary",
	"created_at", "updated_at",
}

// PlantAdapter implements PlantRepository
type PlantAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPlantAdapter creates a new plant adapter
func NewPlantAdapter(client *postgres.Client) repositories.PlantRepository {
	return &PlantAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a plant
func (a *PlantAdapter) Create(ctx context.Context, plant *entities.Plant) error {
	var userID sql.NullInt64
	if plant.UserID != nil {
		userID = sql.NullInt64{Int64: *plant.UserID, Valid: true}
	}

	record := goqu.Record{
		"user_id":                userID,
		"name":                   plant.Name,
		"species":                nullString(plant.Species),
		"identified_common_name": nullString(plant.IdentifiedCommonName),
		"lighting_requirement":   nullString(plant.LightingRequirement),
		"pet_friendly":           nullBool(plant.PetFriendly),
		"soil_type":              nullString(plant.SoilType),
		"care_summary":           nullString(plant.CareSummary),
	}

	query, args, err := a.db.Insert("plants").
		Rows(record).
		Returning("id", "created_at", "updated_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&plant.ID, &plant.CreatedAt, &plant.UpdatedAt)
	if err != nil {
		return apperrors.NewInternalError("failed to create plant", err)
	}
	return nil
}

// GetByID retrieves a plant by ID
func (a *PlantAdapter) GetByID(ctx context.Context, id int64) (*entities.Plant, error) {
	query, args, err := a.db.Select(toColumns("", plantColumns)...).
		From("plants").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	plant, err := scanPlant(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("plant with id %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get plant", err)
	}
	return plant, nil
}

// ListWithoutEnrichment lists plants with a species and no enrichment row
func (a *PlantAdapter) ListWithoutEnrichment(ctx context.Context, limit int) ([]*entities.Plant, error) {
	ds := a.db.Select(toColumns("", plantColumns)...).
		From("plants").
		Where(
			goqu.C("species").IsNotNull(),
			goqu.C("species").Neq(""),
			goqu.C("id").NotIn(a.db.Select("plant_id").From("plant_enrichments")),
		).
		Order(goqu.C("id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.queryPlants(ctx, query, args, "failed to list plants without enrichment")
}

// ListIncompleteEnrichment lists plants whose enrichment is missing key data
// and is not cooling down after an error
func (a *PlantAdapter) ListIncompleteEnrichment(ctx context.Context, retryBefore time.Time, limit int) ([]*entities.Plant, error) {
	ds := a.db.Select(toColumns("p", plantColumns)...).
		From(goqu.T("plants").As("p")).
		Join(goqu.T("plant_enrichments").As("e"), goqu.On(goqu.I("e.plant_id").Eq(goqu.I("p.id")))).
		Where(
			goqu.Or(
				goqu.I("e.has_watering_data").IsFalse(),
				goqu.I("e.has_sunlight_data").IsFalse(),
				goqu.I("e.has_care_level_data").IsFalse(),
			),
			goqu.Or(
				goqu.I("e.error_count").Eq(0),
				goqu.I("e.updated_at").Lt(retryBefore),
			),
		).
		Order(goqu.I("p.id").Asc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.queryPlants(ctx, query, args, "failed to list plants with incomplete enrichment")
}

// UpdateCareFields writes the non-nil fields of update. Each column is only
// written when it is still empty in the database.
func (a *PlantAdapter) UpdateCareFields(ctx context.Context, id int64, update entities.PlantCareUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	record := goqu.Record{"updated_at": time.Now().UTC()}
	if update.LightingRequirement != nil {
		record["lighting_requirement"] = fillIfEmpty("lighting_requirement", *update.LightingRequirement)
	}
	if update.PetFriendly != nil {
		record["pet_friendly"] = goqu.L("COALESCE(pet_friendly, ?)", *update.PetFriendly)
	}
	if update.SoilType != nil {
		record["soil_type"] = fillIfEmpty("soil_type", *update.SoilType)
	}
	if update.CareSummary != nil {
		record["care_summary"] = fillIfEmpty("care_summary", *update.CareSummary)
	}
	if update.IdentifiedCommonName != nil {
		record["identified_common_name"] = fillIfEmpty("identified_common_name", *update.IdentifiedCommonName)
	}

	query, args, err := a.db.Update("plants").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update plant care fields", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("plant with id %d not found", id))
	}
	return nil
}

// CountWithSpecies counts plants that have a species set
func (a *PlantAdapter) CountWithSpecies(ctx context.Context) (int, error) {
	query, args, err := a.db.From("plants").
		Select(goqu.COUNT("*")).
		Where(goqu.C("species").IsNotNull(), goqu.C("species").Neq("")).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError("failed to count plants", err)
	}
	return count, nil
}

func (a *PlantAdapter) queryPlants(ctx context.Context, query string, args []interface{}, failure string) ([]*entities.Plant, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(failure, err)
	}
	defer rows.Close()

	plants := make([]*entities.Plant, 0)
	for rows.Next() {
		plant, err := scanPlant(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan plant", err)
		}
		plants = append(plants, plant)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(failure, err)
	}
	return plants, nil
}

func scanPlant(row rowScanner) (*entities.Plant, error) {
	var userID sql.NullInt64
	var species, commonName, lighting, soilType, careSummary sql.NullString
	var petFriendly sql.NullBool
	plant := &entities.Plant{}

	err := row.Scan(
		&plant.ID,
		&userID,
		&plant.Name,
		&species,
		&commonName,
		&lighting,
		&petFriendly,
		&soilType,
		&careSummary,
		&plant.CreatedAt,
		&plant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	plant.UserID = int64Ptr(userID)
	plant.Species = species.String
	plant.IdentifiedCommonName = commonName.String
	plant.LightingRequirement = lighting.String
	plant.PetFriendly = boolPtr(petFriendly)
	plant.SoilType = soilType.String
	plant.CareSummary = careSummary.String
	return plant, nil
}

func fillIfEmpty(column, value string) goqu.Expression {
	return goqu.L(fmt.Sprintf("COALESCE(NULLIF(%s, ''), ?)", column), value)
}

// toColumns turns column names into select expressions, qualified by alias when set
func toColumns(alias string, columns []string) []interface{} {
	out := make([]interface{}, len(columns))
	for i, c := range columns {
		if alias == "" {
			out[i] = goqu.C(c)
		} else {
			out[i] = goqu.I(alias + "." + c)
		}
	}
	return out
}
