package entities

import "time"

// CacheQueryPrefix marks enrichments resolved from the species cache
const CacheQueryPrefix = "cache:"

// PlantEnrichment tracks which care facts have been resolved for a plant.
// One row per plant, created on the first enrichment attempt.
type PlantEnrichment struct {
	ID                int64      `json:"id" db:"id"`
	PlantID           int64      `json:"plant_id" db:"plant_id"`
	PerenualID        *int       `json:"perenual_id" db:"perenual_id"`
	PerenualFetchedAt *time.Time `json:"perenual_fetched_at" db:"perenual_fetched_at"`
	PerenualQueryUsed string     `json:"perenual_query_used,omitempty" db:"perenual_query_used"`

	HasWateringData  bool `json:"has_watering_data" db:"has_watering_data"`
	HasSunlightData  bool `json:"has_sunlight_data" db:"has_sunlight_data"`
	HasCareLevelData bool `json:"has_care_level_data" db:"has_care_level_data"`
	HasToxicityData  bool `json:"has_toxicity_data" db:"has_toxicity_data"`
	HasSoilData      bool `json:"has_soil_data" db:"has_soil_data"`
	HasDescription   bool `json:"has_description" db:"has_description"`

	WateringCategory       string   `json:"watering_category,omitempty" db:"watering_category"`
	WateringBenchmarkValue string   `json:"watering_benchmark_value,omitempty" db:"watering_benchmark_value"`
	WateringBenchmarkUnit  string   `json:"watering_benchmark_unit,omitempty" db:"watering_benchmark_unit"`
	CareLevel              string   `json:"care_level,omitempty" db:"care_level"`
	GrowthRate             string   `json:"growth_rate,omitempty" db:"growth_rate"`
	Maintenance            string   `json:"maintenance,omitempty" db:"maintenance"`
	Cycle                  string   `json:"cycle,omitempty" db:"cycle"`
	HardinessMin           string   `json:"hardiness_min,omitempty" db:"hardiness_min"`
	HardinessMax           string   `json:"hardiness_max,omitempty" db:"hardiness_max"`
	DroughtTolerant        *bool    `json:"drought_tolerant" db:"drought_tolerant"`
	SoilTypes              []string `json:"soil_types" db:"soil_types"`
	ScientificName         string   `json:"scientific_name,omitempty" db:"scientific_name"`
	CommonName             string   `json:"common_name,omitempty" db:"common_name"`
	Description            string   `json:"description,omitempty" db:"description"`
	Origin                 []string `json:"origin" db:"origin"`
	PropagationMethods     []string `json:"propagation_methods" db:"propagation_methods"`
	FloweringSeason        string   `json:"flowering_season,omitempty" db:"flowering_season"`
	PoisonousToPets        *bool    `json:"poisonous_to_pets" db:"poisonous_to_pets"`
	PoisonousToHumans      *bool    `json:"poisonous_to_humans" db:"poisonous_to_humans"`
	PerenualImageURL       string   `json:"perenual_image_url,omitempty" db:"perenual_image_url"`

	LastError  string    `json:"last_error,omitempty" db:"last_error"`
	ErrorCount int       `json:"error_count" db:"error_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ApplySpecies mirrors every cached species fact onto the enrichment and
// derives the has_* flags from which facts are present.
func (e *PlantEnrichment) ApplySpecies(s *SpeciesCacheEntry) {
	perenualID := s.PerenualID
	fetchedAt := s.FetchedAt

	e.PerenualID = &perenualID
	e.PerenualFetchedAt = &fetchedAt
	e.ScientificName = s.ScientificName
	e.CommonName = s.CommonName
	e.WateringCategory = s.Watering
	e.WateringBenchmarkValue = s.WateringBenchmarkValue
	e.WateringBenchmarkUnit = s.WateringBenchmarkUnit
	e.CareLevel = s.CareLevel
	e.GrowthRate = s.GrowthRate
	e.Maintenance = s.Maintenance
	e.Cycle = s.Cycle
	e.HardinessMin = s.HardinessMin
	e.HardinessMax = s.HardinessMax
	e.DroughtTolerant = s.DroughtTolerant
	e.SoilTypes = s.SoilTypes
	e.PoisonousToPets = s.PoisonousToPets
	e.PoisonousToHumans = s.PoisonousToHumans
	e.Description = s.Description
	e.Origin = s.Origin
	e.PropagationMethods = s.Propagation
	e.FloweringSeason = s.FloweringSeason
	e.PerenualImageURL = s.ImageURL

	e.HasWateringData = s.Watering != ""
	e.HasSunlightData = s.LightingRequirement != ""
	e.HasCareLevelData = s.CareLevel != ""
	e.HasToxicityData = s.PoisonousToPets != nil
	e.HasSoilData = len(s.SoilTypes) > 0
	e.HasDescription = s.Description != ""
}

// IsComplete reports whether the facts the candidate selector cares about are
// all present.
func (e *PlantEnrichment) IsComplete() bool {
	return e.HasWateringData && e.HasSunlightData && e.HasCareLevelData
}

// RecordFailure notes a failed enrichment attempt
func (e *PlantEnrichment) RecordFailure(message string) {
	e.LastError = message
	e.ErrorCount++
}
