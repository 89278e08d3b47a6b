package entities

// CareData is the normalized set of care facts for one species as returned by
// the species provider.
type CareData struct {
	PerenualID             int      `json:"perenual_id"`
	ScientificName         string   `json:"scientific_name,omitempty"`
	CommonName             string   `json:"common_name,omitempty"`
	AlternativeNames       []string `json:"alternative_names,omitempty"`
	Watering               string   `json:"watering,omitempty"`
	WateringFrequencyDays  *int     `json:"watering_frequency_days,omitempty"`
	WateringBenchmarkValue string   `json:"watering_benchmark_value,omitempty"`
	WateringBenchmarkUnit  string   `json:"watering_benchmark_unit,omitempty"`
	Sunlight               []string `json:"sunlight,omitempty"`
	LightingRequirement    string   `json:"lighting_requirement,omitempty"`
	CareLevel              string   `json:"care_level,omitempty"`
	GrowthRate             string   `json:"growth_rate,omitempty"`
	Maintenance            string   `json:"maintenance,omitempty"`
	Cycle                  string   `json:"cycle,omitempty"`
	HardinessMin           string   `json:"hardiness_min,omitempty"`
	HardinessMax           string   `json:"hardiness_max,omitempty"`
	DroughtTolerant        *bool    `json:"drought_tolerant,omitempty"`
	SoilTypes              []string `json:"soil_types,omitempty"`
	Indoor                 *bool    `json:"indoor,omitempty"`
	PoisonousToPets        *bool    `json:"poisonous_to_pets,omitempty"`
	PoisonousToHumans      *bool    `json:"poisonous_to_humans,omitempty"`
	Description            string   `json:"description,omitempty"`
	Origin                 []string `json:"origin,omitempty"`
	Propagation            []string `json:"propagation,omitempty"`
	FloweringSeason        string   `json:"flowering_season,omitempty"`
	ImageURL               string   `json:"image_url,omitempty"`
}
