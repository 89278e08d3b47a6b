package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dontkillit/backend/internal/adapters/database"
	"github.com/dontkillit/backend/internal/application/services"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/infrastructure/clients/perenual"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	"github.com/dontkillit/backend/pkg/config"
	"github.com/dontkillit/backend/pkg/secrets"
)

func main() {
	var maxPlants int
	var showStats bool
	var resetDaily bool

	flag.IntVar(&maxPlants, "max", 0, "Maximum plants to process (0 = budget only)")
	flag.BoolVar(&showStats, "stats", false, "Print enrichment statistics and exit")
	flag.BoolVar(&resetDaily, "reset-daily", false, "Reset today's request counter and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := secrets.ApplyVaultSecrets(ctx, http.DefaultClient, secrets.LoadVaultConfigFromEnv("")); err != nil {
		log.Fatal().Err(err).Msg("Failed to load secrets from Vault")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("dontkillit-enrich", cfg.Env, cfg.LogLevel)

	// Setup DB
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	// Setup provider
	var provider providers.SpeciesProvider
	if cfg.Perenual.APIKey != "" {
		provider = perenual.NewClient(&cfg.Perenual)
	} else {
		log.Warn().Msg("PERENUAL_API_KEY is not set; only cached species can be used")
	}

	// Setup service
	svc := services.NewEnrichmentService(services.EnrichmentServiceDeps{
		Plants:       database.NewPlantAdapter(pgClient),
		Enrichments:  database.NewPlantEnrichmentAdapter(pgClient),
		Logs:         database.NewEnrichmentLogAdapter(pgClient),
		Schedules:    database.NewWateringScheduleAdapter(pgClient),
		SpeciesCache: services.NewSpeciesCacheService(database.NewSpeciesCacheAdapter(pgClient), nil),
		Provider:     provider,
	}, services.EnrichmentSettings{
		DailyLimit: cfg.Perenual.DailyLimit,
		PlantDelay: cfg.Enrichment.PlantDelay,
		Location:   cfg.Enrichment.Location(),
	})

	switch {
	case showStats:
		stats, err := svc.Stats(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load stats")
		}
		log.Info().
			Int("plants_with_species", stats.TotalPlantsWithSpecies).
			Int("plants_enriched", stats.PlantsEnriched).
			Int("plants_needing_enrichment", stats.PlantsNeedingEnrichment).
			Int("cached_species", stats.CachedSpeciesCount).
			Int("requests_today", stats.TodayAPIRequests).
			Int("request_limit", stats.APIRequestLimit).
			Int("requests_remaining", stats.TodayRequestsRemaining).
			Str("today_status", stats.TodayStatus).
			Msg("Enrichment stats")

	case resetDaily:
		entry, err := svc.ResetDailyCounter(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reset daily counter")
		}
		log.Info().
			Time("run_date", entry.RunDate).
			Str("status", string(entry.Status)).
			Msg("Daily request counter reset")

	default:
		var limit *int
		if maxPlants > 0 {
			limit = &maxPlants
		}

		start := time.Now()
		log.Info().Int("max", maxPlants).Msg("Starting enrichment run")
		summary, err := svc.RunDailyEnrichment(ctx, limit)
		if err != nil {
			log.Fatal().Err(err).Msg("Enrichment run failed")
		}

		log.Info().
			Str("status", summary.Status).
			Str("message", summary.Message).
			Str("run_date", summary.RunDate).
			Int("processed", summary.PlantsProcessed).
			Int("enriched", summary.PlantsEnriched).
			Int("not_found", summary.PlantsNotFound).
			Int("errored", summary.PlantsErrored).
			Int("cache_hits", summary.PlantsCacheHits).
			Int("requests_used", summary.APIRequestsUsed).
			Int("requests_remaining", summary.APIRequestsRemaining).
			Dur("elapsed", time.Since(start)).
			Msg("Enrichment run complete")
	}
}
