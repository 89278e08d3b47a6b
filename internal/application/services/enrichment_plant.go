package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
)

// Per-plant failure messages
const (
	msgUsedCache          = "Used cached data"
	msgLimitReached       = "Daily API limit reached"
	msgNoMatch            = "No match found"
	msgProviderMissing    = "Species provider not configured"
	msgCacheStoreFailed   = "Failed to cache data"
	msgEnrichedWithPrefix = "Enriched with Perenual ID"
)

// fatalError aborts the whole run instead of failing one plant
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// enrichPlant resolves care data for one plant from the species cache or the
// provider. Lookup problems are recorded on the plant and returned as a
// failed result; only storage failures and cancellation return an error.
func (s *EnrichmentService) enrichPlant(ctx context.Context, run *enrichmentRun, plant *entities.Plant) (PlantResult, error) {
	ctx, span := observability.StartSpan(ctx, "enrichment.plant", attribute.Int64("plant.id", plant.ID))
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	result := PlantResult{PlantID: plant.ID, PlantName: plant.Name, Species: plant.Species}

	enrichment, err := s.enrichments.GetOrCreate(ctx, plant.ID)
	if err != nil {
		return result, fmt.Errorf("failed to load enrichment: %w", err)
	}

	query := plant.SearchQuery()

	cached, err := s.cache.Lookup(ctx, plant.Species, plant.IdentifiedCommonName)
	if err != nil {
		return result, fmt.Errorf("species cache lookup failed: %w", err)
	}
	if cached != nil {
		logger.Info().Int64("plant_id", plant.ID).Str("query", query).Msg("Using cached species data")
		if err := s.applySpecies(ctx, plant, enrichment, cached, entities.CacheQueryPrefix+query, false); err != nil {
			return result, err
		}
		run.log.PlantsCacheHits++
		s.finishPlant(ctx, span, run, &result, observability.OutcomeCacheHit, true, msgUsedCache)
		return result, nil
	}

	if run.budgetExhausted() {
		s.finishPlant(ctx, span, run, &result, observability.OutcomeSkipped, false, msgLimitReached)
		return result, nil
	}

	if s.provider == nil {
		return s.recordError(ctx, span, run, enrichment, &result, errors.New(msgProviderMissing))
	}

	logger.Info().Int64("plant_id", plant.ID).Str("query", query).Msg("Fetching species data")
	match, err := s.lookup(ctx, run, query)
	if err == nil && match == nil && plant.IdentifiedCommonName != "" && plant.IdentifiedCommonName != query {
		match, err = s.lookup(ctx, run, plant.IdentifiedCommonName)
	}
	if err != nil {
		return s.recordError(ctx, span, run, enrichment, &result, err)
	}

	if match == nil {
		enrichment.RecordFailure(msgNoMatch)
		if err := s.enrichments.Update(ctx, enrichment); err != nil {
			return result, fmt.Errorf("failed to save enrichment: %w", err)
		}
		run.log.PlantsNotFound++
		s.finishPlant(ctx, span, run, &result, observability.OutcomeNotFound, false, msgNoMatch)
		return result, nil
	}

	entry, err := s.cache.Store(ctx, match)
	if err != nil {
		return s.recordError(ctx, span, run, enrichment, &result, err)
	}
	if entry == nil {
		return s.recordError(ctx, span, run, enrichment, &result, errors.New(msgCacheStoreFailed))
	}

	if err := s.applySpecies(ctx, plant, enrichment, entry, query, true); err != nil {
		return s.recordError(ctx, span, run, enrichment, &result, err)
	}
	run.log.PlantsEnriched++
	s.finishPlant(ctx, span, run, &result, observability.OutcomeEnriched, true,
		fmt.Sprintf("%s %d", msgEnrichedWithPrefix, entry.PerenualID))
	return result, nil
}

// lookup charges the budget for one provider call and makes it. The charge
// is persisted before the call so a crash cannot hide spent budget.
func (s *EnrichmentService) lookup(ctx context.Context, run *enrichmentRun, query string) (*providers.SpeciesMatch, error) {
	run.charge(providerCallCost)
	observability.RecordProviderRequests(ctx, s.metrics, providerCallCost)
	if err := s.logs.Update(ctx, run.log); err != nil {
		return nil, &fatalError{err: fmt.Errorf("failed to save enrichment log: %w", err)}
	}
	return s.provider.SearchAndGetDetails(ctx, query)
}

// applySpecies copies species data onto the enrichment record, fills the
// plant's empty care fields and bootstraps a watering schedule.
func (s *EnrichmentService) applySpecies(ctx context.Context, plant *entities.Plant, enrichment *entities.PlantEnrichment, entry *entities.SpeciesCacheEntry, queryUsed string, clearErrors bool) error {
	enrichment.ApplySpecies(entry)
	enrichment.PerenualQueryUsed = queryUsed
	if clearErrors {
		enrichment.ErrorCount = 0
		enrichment.LastError = ""
	}
	if err := s.enrichments.Update(ctx, enrichment); err != nil {
		return fmt.Errorf("failed to save enrichment: %w", err)
	}

	if update := plant.GapFill(entry); !update.IsEmpty() {
		if err := s.plants.UpdateCareFields(ctx, plant.ID, update); err != nil {
			return fmt.Errorf("failed to update plant: %w", err)
		}
	}

	if freq := entry.WateringFrequencyDays; freq != nil && *freq > 0 {
		schedule := &entities.WateringSchedule{
			PlantID:       plant.ID,
			FrequencyDays: *freq,
			NextWatering:  s.today().AddDate(0, 0, *freq),
		}
		created, err := s.schedules.CreateIfMissing(ctx, schedule)
		if err != nil {
			return fmt.Errorf("failed to create watering schedule: %w", err)
		}
		if created {
			observability.LoggerFromContext(ctx).Info().
				Int64("plant_id", plant.ID).
				Int("frequency_days", *freq).
				Msg("Created watering schedule")
		}
	}
	return nil
}

// recordError stores a per-plant failure. Fatal errors and cancellation are
// passed through to stop the run.
func (s *EnrichmentService) recordError(ctx context.Context, span trace.Span, run *enrichmentRun, enrichment *entities.PlantEnrichment, result *PlantResult, cause error) (PlantResult, error) {
	var fatal *fatalError
	if errors.As(cause, &fatal) {
		return *result, fatal.err
	}
	if ctx.Err() != nil {
		return *result, ctx.Err()
	}

	observability.LoggerFromContext(ctx).Warn().Err(cause).Int64("plant_id", result.PlantID).Msg("Error enriching plant")
	span.RecordError(cause)

	enrichment.RecordFailure(cause.Error())
	if err := s.enrichments.Update(ctx, enrichment); err != nil {
		return *result, fmt.Errorf("failed to save enrichment: %w", err)
	}
	run.log.PlantsErrored++
	s.finishPlant(ctx, span, run, result, observability.OutcomeErrored, false, "Error: "+cause.Error())
	return *result, nil
}

func (s *EnrichmentService) finishPlant(ctx context.Context, span trace.Span, run *enrichmentRun, result *PlantResult, outcome string, success bool, message string) {
	result.Success = success
	result.Message = message
	span.SetAttributes(attribute.String("enrichment.outcome", outcome))
	observability.RecordPlantOutcome(ctx, s.metrics, outcome)

	if !success {
		return
	}
	event := entities.NewEnrichmentEvent(entities.EnrichmentEventPlantEnriched, result.PlantID, run.log.ID, map[string]interface{}{
		"outcome": outcome,
		"message": message,
	})
	s.publish(ctx, providers.EventChannelEnrichment, event)
	s.publish(ctx, providers.GetPlantChannel(result.PlantID), event)
}
