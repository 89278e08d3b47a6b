package repositories

import (
	"context"
	"time"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// EnrichmentLogRepository defines the interface for the daily enrichment ledger
type EnrichmentLogRepository interface {
	GetByDate(ctx context.Context, runDate time.Time) (*entities.EnrichmentLog, error)

	// GetOrCreate returns the ledger for runDate, creating a pending one with
	// the given request limit when none exists
	GetOrCreate(ctx context.Context, runDate time.Time, requestLimit int) (*entities.EnrichmentLog, error)

	// TryStart moves a pending or failed ledger to running. It returns false
	// when another invocation already holds the day.
	TryStart(ctx context.Context, id int64, startedAt time.Time) (bool, error)

	Update(ctx context.Context, log *entities.EnrichmentLog) error
	ListRecent(ctx context.Context, limit int) ([]*entities.EnrichmentLog, error)
}
