package services

import (
	"context"
	"sync"
	"time"

	"github.com/dontkillit/backend/internal/infrastructure/observability"
)

// EnrichmentRunner runs one enrichment batch
type EnrichmentRunner interface {
	RunDailyEnrichment(ctx context.Context, maxPlants *int) (*EnrichmentSummary, error)
}

// EnrichmentScheduler fires the enrichment runner once a day at a fixed
// local time and allows manual triggers in between.
type EnrichmentScheduler struct {
	runner   EnrichmentRunner
	hour     int
	minute   int
	location *time.Location
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewEnrichmentScheduler creates a scheduler firing at hour:minute in loc
func NewEnrichmentScheduler(runner EnrichmentRunner, hour, minute int, loc *time.Location) *EnrichmentScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &EnrichmentScheduler{
		runner:   runner,
		hour:     hour,
		minute:   minute,
		location: loc,
		now:      time.Now,
	}
}

// NextRun returns the first scheduled time strictly after t
func (s *EnrichmentScheduler) NextRun(t time.Time) time.Time {
	local := t.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, s.minute, 0, 0, s.location)
	}
	return next
}

// Start runs the daily loop in the background until ctx is done
func (s *EnrichmentScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logger := observability.LoggerFromContext(ctx)
		for {
			next := s.NextRun(s.now())
			logger.Info().Time("next_run", next).Msg("Enrichment scheduled")

			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Info().Msg("Stopping enrichment scheduler")
				return
			case <-timer.C:
				s.runScheduled(ctx)
			}
		}
	}()
}

// Wait blocks until the background loop has exited
func (s *EnrichmentScheduler) Wait() {
	s.wg.Wait()
}

// TriggerNow runs enrichment immediately
func (s *EnrichmentScheduler) TriggerNow(ctx context.Context, maxPlants *int) (*EnrichmentSummary, error) {
	return s.runner.RunDailyEnrichment(ctx, maxPlants)
}

func (s *EnrichmentScheduler) runScheduled(ctx context.Context) {
	logger := observability.LoggerFromContext(ctx)
	summary, err := s.runner.RunDailyEnrichment(ctx, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Scheduled enrichment failed")
		return
	}
	logger.Info().
		Str("status", summary.Status).
		Int("plants_processed", summary.PlantsProcessed).
		Int("plants_enriched", summary.PlantsEnriched).
		Int("requests_used", summary.APIRequestsUsed).
		Msg("Scheduled enrichment finished")
}
