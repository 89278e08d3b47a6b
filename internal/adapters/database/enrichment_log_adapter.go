package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/dontkillit/backend/pkg/errors"
)

const runDateLayout = "2006-01-02"

// enrichmentLogSelect maps onto the db tags of entities.EnrichmentLog
var enrichmentLogSelect = []interface{}{
	"id", "run_date", "perenual_requests_made", "perenual_requests_limit",
	"plants_processed", "plants_enriched", "plants_not_found", "plants_errored",
	"plants_cache_hits", "started_at", "completed_at", "status",
	goqu.L("COALESCE(error_message, '')").As("error_message"),
	"created_at",
}

// EnrichmentLogAdapter implements EnrichmentLogRepository
type EnrichmentLogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	dbx    *sqlx.DB
}

// NewEnrichmentLogAdapter creates a new enrichment log adapter
func NewEnrichmentLogAdapter(client *postgres.Client) repositories.EnrichmentLogRepository {
	return &EnrichmentLogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		dbx:    sqlx.NewDb(client.DB(), "postgres"),
	}
}

// GetByDate retrieves the ledger of a calendar day
func (a *EnrichmentLogAdapter) GetByDate(ctx context.Context, runDate time.Time) (*entities.EnrichmentLog, error) {
	day := runDate.Format(runDateLayout)
	query, args, err := a.db.Select(enrichmentLogSelect...).
		From("enrichment_logs").
		Where(goqu.Ex{"run_date": day}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build enrichment log query", err)
	}

	var log entities.EnrichmentLog
	err = a.dbx.GetContext(ctx, &log, query, args...)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("enrichment log for %s not found", day))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get enrichment log", err)
	}
	return &log, nil
}

// GetOrCreate returns the ledger of runDate, inserting a pending one first.
// Concurrent callers converge on the same row.
func (a *EnrichmentLogAdapter) GetOrCreate(ctx context.Context, runDate time.Time, requestLimit int) (*entities.EnrichmentLog, error) {
	query := `
		INSERT INTO enrichment_logs (run_date, perenual_requests_limit, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_date) DO NOTHING
	`
	_, err := a.client.DB().ExecContext(ctx, query,
		runDate.Format(runDateLayout), requestLimit, string(entities.EnrichmentStatusPending), time.Now().UTC())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create enrichment log", err)
	}
	return a.GetByDate(ctx, runDate)
}

// TryStart claims the ledger for a run
func (a *EnrichmentLogAdapter) TryStart(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	query := `
		UPDATE enrichment_logs
		SET status = 'running', started_at = $1, completed_at = NULL, error_message = NULL
		WHERE id = $2 AND status IN ('pending', 'failed')
	`
	result, err := a.client.DB().ExecContext(ctx, query, startedAt, id)
	if err != nil {
		return false, apperrors.NewInternalError("failed to start enrichment run", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// Update persists the counters and status of the ledger
func (a *EnrichmentLogAdapter) Update(ctx context.Context, log *entities.EnrichmentLog) error {
	if log == nil {
		return apperrors.NewValidationError("enrichment log is required")
	}

	record := goqu.Record{
		"perenual_requests_made":  log.PerenualRequestsMade,
		"perenual_requests_limit": log.PerenualRequestsLimit,
		"plants_processed":        log.PlantsProcessed,
		"plants_enriched":         log.PlantsEnriched,
		"plants_not_found":        log.PlantsNotFound,
		"plants_errored":          log.PlantsErrored,
		"plants_cache_hits":       log.PlantsCacheHits,
		"started_at":              nullTime(log.StartedAt),
		"completed_at":            nullTime(log.CompletedAt),
		"status":                  string(log.Status),
		"error_message":           nullString(log.ErrorMessage),
	}

	query, args, err := a.db.Update("enrichment_logs").
		Set(record).
		Where(goqu.Ex{"id": log.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update enrichment log", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("enrichment log with id %d not found", log.ID))
	}
	return nil
}

// ListRecent returns the newest ledgers first
func (a *EnrichmentLogAdapter) ListRecent(ctx context.Context, limit int) ([]*entities.EnrichmentLog, error) {
	ds := a.db.Select(enrichmentLogSelect...).
		From("enrichment_logs").
		Order(goqu.C("run_date").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	logs := make([]*entities.EnrichmentLog, 0)
	if err := a.dbx.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list enrichment logs", err)
	}
	return logs, nil
}
