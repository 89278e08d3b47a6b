package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	apperrors "github.com/dontkillit/backend/pkg/errors"
	"github.com/dontkillit/backend/pkg/retry"
)

// Run statuses reported in EnrichmentSummary
const (
	RunStatusCompleted        = "completed"
	RunStatusAlreadyCompleted = "already_completed"
	RunStatusAlreadyRunning   = "already_running"
	RunStatusLimitReached     = "limit_reached"
	RunStatusNoPlants         = "no_plants"
)

// providerCallCost is the budget charged per provider lookup (search + details)
const providerCallCost = 2

const (
	defaultLogsLimit    = 10
	defaultSpeciesLimit = 20
	maxListLimit        = 100
)

// PlantResult is the outcome of one plant's enrichment attempt
type PlantResult struct {
	PlantID   int64  `json:"plant_id"`
	PlantName string `json:"plant_name"`
	Species   string `json:"species,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// EnrichmentSummary is what a call to RunDailyEnrichment did
type EnrichmentSummary struct {
	Status               string        `json:"status"`
	Message              string        `json:"message,omitempty"`
	LogID                int64         `json:"log_id,omitempty"`
	RunDate              string        `json:"run_date"`
	PlantsProcessed      int           `json:"plants_processed"`
	PlantsEnriched       int           `json:"plants_enriched"`
	PlantsNotFound       int           `json:"plants_not_found"`
	PlantsErrored        int           `json:"plants_errored"`
	PlantsCacheHits      int           `json:"plants_cache_hits"`
	APIRequestsUsed      int           `json:"api_requests_used"`
	APIRequestsRemaining int           `json:"api_requests_remaining"`
	Results              []PlantResult `json:"results,omitempty"`
}

// EnrichmentStats summarises enrichment coverage and today's budget
type EnrichmentStats struct {
	TotalPlantsWithSpecies  int    `json:"total_plants_with_species"`
	PlantsEnriched          int    `json:"plants_enriched"`
	PlantsNeedingEnrichment int    `json:"plants_needing_enrichment"`
	CachedSpeciesCount      int    `json:"cached_species_count"`
	TodayAPIRequests        int    `json:"today_api_requests"`
	APIRequestLimit         int    `json:"api_request_limit"`
	TodayRequestsRemaining  int    `json:"today_requests_remaining"`
	TodayStatus             string `json:"today_status"`
}

// EnrichmentServiceDeps are the collaborators of the enrichment pipeline.
// Provider, Events and Metrics may be nil.
type EnrichmentServiceDeps struct {
	Plants       repositories.PlantRepository
	Enrichments  repositories.PlantEnrichmentRepository
	Logs         repositories.EnrichmentLogRepository
	Schedules    repositories.WateringScheduleRepository
	SpeciesCache *SpeciesCacheService
	Provider     providers.SpeciesProvider
	Events       providers.EventBus
	Metrics      *observability.Metrics
}

// EnrichmentSettings tune the pipeline
type EnrichmentSettings struct {
	DailyLimit int
	PlantDelay time.Duration
	Location   *time.Location
}

// EnrichmentOption customises an EnrichmentService
type EnrichmentOption func(*EnrichmentService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) EnrichmentOption {
	return func(s *EnrichmentService) { s.now = now }
}

// WithSleep replaces the pause between plants
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) EnrichmentOption {
	return func(s *EnrichmentService) { s.sleep = sleep }
}

// EnrichmentService runs the daily species enrichment pipeline. It keeps no
// state between runs; the day's ledger row is the only budget record.
type EnrichmentService struct {
	plants      repositories.PlantRepository
	enrichments repositories.PlantEnrichmentRepository
	logs        repositories.EnrichmentLogRepository
	schedules   repositories.WateringScheduleRepository
	cache       *SpeciesCacheService
	candidates  *CandidateSelector
	provider    providers.SpeciesProvider
	events      providers.EventBus
	metrics     *observability.Metrics

	dailyLimit int
	plantDelay time.Duration
	location   *time.Location
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewEnrichmentService creates the enrichment pipeline
func NewEnrichmentService(deps EnrichmentServiceDeps, settings EnrichmentSettings, opts ...EnrichmentOption) *EnrichmentService {
	s := &EnrichmentService{
		plants:      deps.Plants,
		enrichments: deps.Enrichments,
		logs:        deps.Logs,
		schedules:   deps.Schedules,
		cache:       deps.SpeciesCache,
		provider:    deps.Provider,
		events:      deps.Events,
		metrics:     deps.Metrics,
		dailyLimit:  settings.DailyLimit,
		plantDelay:  settings.PlantDelay,
		location:    settings.Location,
		now:         time.Now,
		sleep:       retry.Sleep,
	}
	if s.dailyLimit <= 0 {
		s.dailyLimit = entities.DefaultPerenualDailyLimit
	}
	if s.location == nil {
		s.location = time.UTC
	}
	for _, opt := range opts {
		opt(s)
	}
	s.candidates = &CandidateSelector{plants: deps.Plants, now: s.now}
	return s
}

// enrichmentRun is the state of one invocation. The in-memory ledger mirrors
// the stored row and is written back after every change.
type enrichmentRun struct {
	log     *entities.EnrichmentLog
	results []PlantResult
}

func (r *enrichmentRun) budgetExhausted() bool {
	return r.log.PerenualRequestsMade >= r.log.PerenualRequestsLimit
}

func (r *enrichmentRun) charge(units int) {
	r.log.PerenualRequestsMade += units
}

// RunDailyEnrichment enriches as many plants as today's remaining budget
// allows. maxPlants further caps the batch when positive.
func (s *EnrichmentService) RunDailyEnrichment(ctx context.Context, maxPlants *int) (*EnrichmentSummary, error) {
	ctx, span := observability.StartSpan(ctx, "enrichment.run")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	// Postgres keeps microseconds; failRun compares this against the stored value
	startedAt := s.now().UTC().Truncate(time.Microsecond)
	runDate := entities.RunDateOf(startedAt, s.location)

	ledger, err := s.logs.GetOrCreate(ctx, runDate, s.dailyLimit)
	if err != nil {
		observability.RecordError(span, err)
		s.failRun(ctx, runDate, startedAt, err)
		return nil, fmt.Errorf("failed to load enrichment log: %w", err)
	}

	if ledger.Status == entities.EnrichmentStatusCompleted {
		logger.Info().Int64("log_id", ledger.ID).Msg("Daily enrichment already completed today")
		return newSummary(RunStatusAlreadyCompleted, "Daily enrichment already ran today", ledger), nil
	}

	if ledger.RequestsRemaining() <= 0 {
		logger.Info().Int("requests_used", ledger.PerenualRequestsMade).Msg("Daily API limit already reached")
		return newSummary(RunStatusLimitReached, "Daily API limit already reached", ledger), nil
	}

	started, err := s.logs.TryStart(ctx, ledger.ID, startedAt)
	if err != nil {
		observability.RecordError(span, err)
		s.failRun(ctx, runDate, startedAt, err)
		return nil, fmt.Errorf("failed to start enrichment run: %w", err)
	}
	if !started {
		logger.Warn().Int64("log_id", ledger.ID).Msg("Enrichment run already in progress")
		return newSummary(RunStatusAlreadyRunning, "Another enrichment run holds today's log", ledger), nil
	}
	ledger.Status = entities.EnrichmentStatusRunning
	ledger.StartedAt = &startedAt
	ledger.CompletedAt = nil
	ledger.ErrorMessage = ""

	run := &enrichmentRun{log: ledger}
	summary, err := s.execute(ctx, run, maxPlants)
	if err != nil {
		observability.RecordError(span, err)
		s.failRun(ctx, runDate, startedAt, err)
		observability.RecordRunDuration(ctx, s.metrics, string(entities.EnrichmentStatusFailed), s.now().Sub(startedAt))
		return nil, fmt.Errorf("enrichment run failed: %w", err)
	}

	span.SetAttributes(
		attribute.String("enrichment.status", summary.Status),
		attribute.Int("enrichment.plants_processed", summary.PlantsProcessed),
		attribute.Int("enrichment.requests_used", summary.APIRequestsUsed),
	)
	observability.RecordRunDuration(ctx, s.metrics, summary.Status, s.now().Sub(startedAt))
	s.publish(ctx, providers.EventChannelEnrichment, entities.NewEnrichmentEvent(
		entities.EnrichmentEventRunFinished, 0, ledger.ID, summaryEventData(summary),
	))
	return summary, nil
}

func (s *EnrichmentService) execute(ctx context.Context, run *enrichmentRun, maxPlants *int) (*EnrichmentSummary, error) {
	logger := observability.LoggerFromContext(ctx)

	plantsToProcess := run.log.RequestsRemaining() / providerCallCost
	if maxPlants != nil && *maxPlants > 0 && *maxPlants < plantsToProcess {
		plantsToProcess = *maxPlants
	}

	plants, err := s.candidates.GetPlantsNeedingEnrichment(ctx, plantsToProcess)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}

	if len(plants) == 0 {
		logger.Info().Msg("No plants need enrichment")
		if err := s.complete(ctx, run); err != nil {
			return nil, err
		}
		return newSummary(RunStatusNoPlants, "All plants are already enriched", run.log), nil
	}

	logger.Info().Int("plants", len(plants)).Int("requests_remaining", run.log.RequestsRemaining()).Msg("Starting enrichment")

	for _, plant := range plants {
		if run.budgetExhausted() {
			logger.Info().Msg("Daily limit reached, stopping")
			break
		}

		run.log.PlantsProcessed++
		if err := s.logs.Update(ctx, run.log); err != nil {
			return nil, fmt.Errorf("failed to save enrichment log: %w", err)
		}

		result, err := s.enrichPlant(ctx, run, plant)
		if err != nil {
			return nil, fmt.Errorf("plant %d: %w", plant.ID, err)
		}
		run.results = append(run.results, result)

		if err := s.logs.Update(ctx, run.log); err != nil {
			return nil, fmt.Errorf("failed to save enrichment log: %w", err)
		}

		if err := s.sleep(ctx, s.plantDelay); err != nil {
			return nil, err
		}
	}

	if err := s.complete(ctx, run); err != nil {
		return nil, err
	}

	summary := newSummary(RunStatusCompleted, "", run.log)
	summary.Results = run.results
	logger.Info().
		Int("plants_processed", summary.PlantsProcessed).
		Int("plants_enriched", summary.PlantsEnriched).
		Int("plants_cache_hits", summary.PlantsCacheHits).
		Int("plants_not_found", summary.PlantsNotFound).
		Int("plants_errored", summary.PlantsErrored).
		Int("requests_used", summary.APIRequestsUsed).
		Msg("Enrichment complete")
	return summary, nil
}

func (s *EnrichmentService) complete(ctx context.Context, run *enrichmentRun) error {
	completedAt := s.now().UTC()
	run.log.Status = entities.EnrichmentStatusCompleted
	run.log.CompletedAt = &completedAt
	if err := s.logs.Update(ctx, run.log); err != nil {
		return fmt.Errorf("failed to complete enrichment log: %w", err)
	}
	return nil
}

// failRun marks the day's ledger failed. It reloads the row so counters
// already written by the run are kept. A completed ledger, or one running
// under another run's start time, is left alone.
func (s *EnrichmentService) failRun(ctx context.Context, runDate, startedAt time.Time, cause error) {
	ctx = context.WithoutCancel(ctx)
	logger := observability.LoggerFromContext(ctx)
	logger.Error().Err(cause).Msg("Enrichment run failed")

	ledger, err := s.logs.GetOrCreate(ctx, runDate, s.dailyLimit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reload enrichment log")
		return
	}
	if ledger.Status == entities.EnrichmentStatusCompleted {
		return
	}
	if ledger.Status == entities.EnrichmentStatusRunning &&
		(ledger.StartedAt == nil || !ledger.StartedAt.Equal(startedAt)) {
		logger.Warn().Int64("log_id", ledger.ID).Msg("Enrichment log owned by another run; not marking failed")
		return
	}
	completedAt := s.now().UTC()
	ledger.Status = entities.EnrichmentStatusFailed
	ledger.ErrorMessage = cause.Error()
	ledger.CompletedAt = &completedAt
	if err := s.logs.Update(ctx, ledger); err != nil {
		logger.Error().Err(err).Msg("Failed to mark enrichment log failed")
	}
}

// Stats reports enrichment coverage and today's budget
func (s *EnrichmentService) Stats(ctx context.Context) (*EnrichmentStats, error) {
	total, err := s.plants.CountWithSpecies(ctx)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrichments.CountWithWateringData(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := s.cache.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := &EnrichmentStats{
		TotalPlantsWithSpecies:  total,
		PlantsEnriched:          enriched,
		PlantsNeedingEnrichment: max(0, total-enriched),
		CachedSpeciesCount:      cached,
		APIRequestLimit:         s.dailyLimit,
		TodayRequestsRemaining:  s.dailyLimit,
		TodayStatus:             "not_started",
	}

	today, err := s.logs.GetByDate(ctx, s.today())
	if err != nil {
		if apperrors.IsNotFound(err) {
			return stats, nil
		}
		return nil, err
	}
	stats.TodayAPIRequests = today.PerenualRequestsMade
	stats.APIRequestLimit = today.PerenualRequestsLimit
	stats.TodayRequestsRemaining = today.RequestsRemaining()
	stats.TodayStatus = string(today.Status)
	return stats, nil
}

// ResetDailyCounter zeroes today's ledger and sets it back to pending so the
// pipeline can run again. It is also how an operator recovers a run left in
// running by a crash.
func (s *EnrichmentService) ResetDailyCounter(ctx context.Context) (*entities.EnrichmentLog, error) {
	ledger, err := s.logs.GetByDate(ctx, s.today())
	if err != nil {
		return nil, err
	}

	ledger.PerenualRequestsMade = 0
	ledger.PlantsProcessed = 0
	ledger.PlantsEnriched = 0
	ledger.PlantsNotFound = 0
	ledger.PlantsErrored = 0
	ledger.PlantsCacheHits = 0
	ledger.Status = entities.EnrichmentStatusPending
	ledger.StartedAt = nil
	ledger.CompletedAt = nil
	ledger.ErrorMessage = ""
	if err := s.logs.Update(ctx, ledger); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().Int64("log_id", ledger.ID).Msg("Daily enrichment counter reset")
	return ledger, nil
}

// ListLogs returns recent ledgers, newest first
func (s *EnrichmentService) ListLogs(ctx context.Context, limit int) ([]*entities.EnrichmentLog, error) {
	return s.logs.ListRecent(ctx, clampLimit(limit, defaultLogsLimit))
}

// ListCachedSpecies returns cached species whose names match search
func (s *EnrichmentService) ListCachedSpecies(ctx context.Context, search string, limit int) ([]*entities.SpeciesCacheEntry, error) {
	return s.cache.List(ctx, search, clampLimit(limit, defaultSpeciesLimit))
}

// GetPlantEnrichment returns the enrichment record of a plant
func (s *EnrichmentService) GetPlantEnrichment(ctx context.Context, plantID int64) (*entities.PlantEnrichment, error) {
	if plantID <= 0 {
		return nil, apperrors.NewValidationError("plant id must be positive")
	}
	return s.enrichments.GetByPlantID(ctx, plantID)
}

func (s *EnrichmentService) today() time.Time {
	return entities.RunDateOf(s.now(), s.location)
}

func (s *EnrichmentService) publish(ctx context.Context, channel string, event *entities.EnrichmentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), channel, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("channel", channel).Msg("Failed to publish enrichment event")
	}
}

func newSummary(status, message string, ledger *entities.EnrichmentLog) *EnrichmentSummary {
	return &EnrichmentSummary{
		Status:               status,
		Message:              message,
		LogID:                ledger.ID,
		RunDate:              ledger.RunDate.Format("2006-01-02"),
		PlantsProcessed:      ledger.PlantsProcessed,
		PlantsEnriched:       ledger.PlantsEnriched,
		PlantsNotFound:       ledger.PlantsNotFound,
		PlantsErrored:        ledger.PlantsErrored,
		PlantsCacheHits:      ledger.PlantsCacheHits,
		APIRequestsUsed:      ledger.PerenualRequestsMade,
		APIRequestsRemaining: ledger.RequestsRemaining(),
	}
}

func summaryEventData(summary *EnrichmentSummary) map[string]interface{} {
	return map[string]interface{}{
		"status":            summary.Status,
		"plants_processed":  summary.PlantsProcessed,
		"plants_enriched":   summary.PlantsEnriched,
		"plants_cache_hits": summary.PlantsCacheHits,
		"plants_not_found":  summary.PlantsNotFound,
		"plants_errored":    summary.PlantsErrored,
		"api_requests_used": summary.APIRequestsUsed,
	}
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxListLimit)
}
