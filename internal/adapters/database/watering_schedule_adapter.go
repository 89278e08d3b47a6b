package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

var wateringScheduleColumns = []string{
	"id", "plant_id", "frequency_days", "last_watered", "next_watering", "created_at",
}

// WateringScheduleAdapter implements WateringScheduleRepository
type WateringScheduleAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	dbx    *sqlx.DB
}

// NewWateringScheduleAdapter creates a new watering schedule adapter
func NewWateringScheduleAdapter(client *postgres.Client) repositories.WateringScheduleRepository {
	return &WateringScheduleAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		dbx:    sqlx.NewDb(client.DB(), "postgres"),
	}
}

// GetByPlantID retrieves the schedule of a plant
func (a *WateringScheduleAdapter) GetByPlantID(ctx context.Context, plantID int64) (*entities.WateringSchedule, error) {
	query, args, err := a.db.Select(toColumns("", wateringScheduleColumns)...).
		From("watering_schedules").
		Where(goqu.Ex{"plant_id": plantID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build schedule query", err)
	}

	var s entities.WateringSchedule
	err = a.dbx.GetContext(ctx, &s, query, args...)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("watering schedule for plant %d not found", plantID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get watering schedule", err)
	}
	return &s, nil
}

// CreateIfMissing inserts the schedule. An existing schedule is left
// untouched and false is returned.
func (a *WateringScheduleAdapter) CreateIfMissing(ctx context.Context, schedule *entities.WateringSchedule) (bool, error) {
	if schedule == nil || schedule.FrequencyDays <= 0 {
		return false, apperrors.NewValidationError("watering schedule requires a positive frequency")
	}

	query := `
		INSERT INTO watering_schedules (plant_id, frequency_days, last_watered, next_watering)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (plant_id) DO NOTHING
		RETURNING id, created_at
	`
	err := a.client.DB().QueryRowContext(ctx, query,
		schedule.PlantID,
		schedule.FrequencyDays,
		nullTime(schedule.LastWatered),
		schedule.NextWatering.Format(runDateLayout),
	).Scan(&schedule.ID, &schedule.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("failed to create watering schedule", err)
	}
	return true, nil
}
