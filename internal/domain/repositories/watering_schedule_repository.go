package repositories

import (
	"context"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// WateringScheduleRepository defines the interface for watering schedule storage
type WateringScheduleRepository interface {
	GetByPlantID(ctx context.Context, plantID int64) (*entities.WateringSchedule, error)

	// CreateIfMissing inserts the schedule unless the plant already has one
	CreateIfMissing(ctx context.Context, schedule *entities.WateringSchedule) (bool, error)
}
