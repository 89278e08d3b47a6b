package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dontkillit/backend/internal/adapters/database"
	"github.com/dontkillit/backend/internal/domain/entities"
	"github.com/dontkillit/backend/internal/infrastructure/clients/postgres"
	"github.com/dontkillit/backend/internal/infrastructure/observability"
	"github.com/dontkillit/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("dontkillit-seed", cfg.Env, cfg.LogLevel)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	plantRepo := database.NewPlantAdapter(pgClient)
	scheduleRepo := database.NewWateringScheduleAdapter(pgClient)

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				plant_enrichments,
				watering_schedules,
				enrichment_logs,
				species_cache,
				plants
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	petSafe := true
	plants := []entities.Plant{
		{Name: "Big Monstera", Species: "Monstera deliciosa"},
		{Name: "Kitchen Pothos", Species: "Epipremnum aureum"},
		{Name: "Snake Plant", Species: "Sansevieria trifasciata", SoilType: "Cactus mix"},
		{Name: "Fern by the window", IdentifiedCommonName: "Boston fern", PetFriendly: &petSafe},
		{Name: "Fiddle Leaf", Species: "Ficus lyrata", LightingRequirement: "Bright indirect"},
		{Name: "Spider Plant", Species: "Chlorophytum comosum"},
		{Name: "Aloe", Species: "Aloe vera", CareSummary: "Water sparingly, lots of sun."},
		{Name: "Unknown cutting"},
	}

	created := 0
	for i := range plants {
		p := plants[i]
		if err := plantRepo.Create(ctx, &p); err != nil {
			log.Error().Err(err).Str("plant", p.Name).Msg("Failed to create plant")
			continue
		}
		created++

		// The snake plant already has a user-set schedule that enrichment must keep
		if p.Species == "Sansevieria trifasciata" {
			schedule := &entities.WateringSchedule{
				PlantID:       p.ID,
				FrequencyDays: 21,
				NextWatering:  time.Now().AddDate(0, 0, 21),
			}
			if _, err := scheduleRepo.CreateIfMissing(ctx, schedule); err != nil {
				log.Error().Err(err).Str("plant", p.Name).Msg("Failed to create watering schedule")
			}
		}
	}

	log.Info().Int("plants", created).Msg("Seeding completed successfully")
}
