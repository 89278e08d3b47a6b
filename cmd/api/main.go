package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dontkillit/backend/internal/adapters/cache"
	"github.com/dontkillit/backend/internal/adapters/database"
	"github.com/dontkillit/backend/internal/adapters/events"
	"github.com/dontkillit/backend/internal/adapters/search"
	"github.com/dontkillit/backend/internal/api/handlers"
	"github.com/dontkillit/backend/internal/api/middleware"
	"github.com/dontkillit/backend/internal/api/routes"
	"github.com/dontkillit/backend/internal/application/services"
	"github.com/dontkillit/backend/internal/domain/providers"
	"github.com/dontkillit/backend/internal/domain/repositories"
	"github.com/dontkillit/backend/internal/infrastructure/clients/perenual"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	"github.com/dontkillit/backend/internal/infrastructure/clients/redis"
	"github.com/dontkillit/backend/internal/infrastructure/clients/typesense"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	"github.com/dontkillit/backend/pkg/config"
	"github.com/dontkillit/backend/pkg/secrets"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pull secrets into the environment before config reads it
	vaultResult, err := secrets.ApplyVaultSecrets(ctx, http.DefaultClient, secrets.LoadVaultConfigFromEnv(""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets from Vault: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)
	if vaultResult.Enabled {
		log.Info().Str("path", vaultResult.Path).Strs("loaded", vaultResult.Loaded).Msg("Vault secrets applied")
	}

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized successfully")

	// Redis is optional: without it the species cache reads straight from
	// PostgreSQL, triggers are not rate limited and no events are published
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis client")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Msg("Redis client initialized successfully")
	}

	var speciesSearch repositories.SpeciesSearchRepository
	if cfg.Typesense.Enabled {
		typesenseClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Typesense client")
		} else {
			if err := typesenseClient.InitSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			speciesSearch = search.NewTypesenseSpeciesAdapter(typesenseClient)
			log.Info().Msg("Typesense species index initialized successfully")
		}
	}

	var (
		cacheProvider providers.CacheProvider
		rateLimiter   providers.RateLimiter
		eventBus      providers.EventBus
	)
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient.Client())
		rateLimiter = cache.NewRedisRateLimiter(redisClient.Client(), "ratelimit:")
		eventBus = events.NewRedisEventBus(redisClient.Client())
	}

	// Initialize adapters
	var speciesRepo repositories.SpeciesCacheRepository = database.NewSpeciesCacheAdapter(pgClient)
	if cacheProvider != nil {
		speciesRepo = database.NewCachedSpeciesCacheAdapter(speciesRepo, cacheProvider, metrics)
		log.Info().Msg("Species cache adapter wrapped with Redis read-through layer")
	}

	var speciesProvider providers.SpeciesProvider
	if cfg.Perenual.APIKey == "" {
		log.Warn().Msg("PERENUAL_API_KEY is not set; only cached species can be used")
	} else {
		speciesProvider = perenual.NewClient(&cfg.Perenual)
	}

	// Initialize services
	speciesCacheService := services.NewSpeciesCacheService(speciesRepo, speciesSearch)
	enrichmentService := services.NewEnrichmentService(services.EnrichmentServiceDeps{
		Plants:       database.NewPlantAdapter(pgClient),
		Enrichments:  database.NewPlantEnrichmentAdapter(pgClient),
		Logs:         database.NewEnrichmentLogAdapter(pgClient),
		Schedules:    database.NewWateringScheduleAdapter(pgClient),
		SpeciesCache: speciesCacheService,
		Provider:     speciesProvider,
		Events:       eventBus,
		Metrics:      metrics,
	}, services.EnrichmentSettings{
		DailyLimit: cfg.Perenual.DailyLimit,
		PlantDelay: cfg.Enrichment.PlantDelay,
		Location:   cfg.Enrichment.Location(),
	})

	scheduler := services.NewEnrichmentScheduler(
		enrichmentService,
		cfg.Enrichment.ScheduleHour,
		cfg.Enrichment.ScheduleMinute,
		cfg.Enrichment.Location(),
	)
	if cfg.Enrichment.SchedulerEnabled {
		scheduler.Start(ctx)
		log.Info().
			Int("hour", cfg.Enrichment.ScheduleHour).
			Int("minute", cfg.Enrichment.ScheduleMinute).
			Str("timezone", cfg.Enrichment.Timezone).
			Msg("Daily enrichment scheduler started")
	}

	// Initialize handlers
	enrichmentHandler := handlers.NewEnrichmentHandler(enrichmentService, scheduler, rateLimiter, cfg.Enrichment.TriggerLimitPerHour)

	var sseHandler *handlers.SSEHandler
	if eventBus != nil {
		sseHandler = handlers.NewSSEHandler(eventBus)
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, nil)
	}

	router := routes.NewRouter(enrichmentHandler, sseHandler, cacheMiddleware, cfg.Server.AllowedOrigins, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// Triggered runs pause between plants and the event stream never
		// finishes, so responses get no write deadline
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Stop the scheduler; a run in progress is marked failed and resumes on
	// the next trigger
	cancel()
	scheduler.Wait()

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}
