package perenual

import (
	"strconv"
	"strings"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// DefaultWateringDays is used for watering categories Perenual adds later
const DefaultWateringDays = 7

// DefaultLighting is used when no sunlight value is recognised
const DefaultLighting = "medium"

var wateringDays = map[string]int{
	"frequent": 3,
	"average":  7,
	"minimum":  14,
	"none":     30,
}

var sunlightLighting = map[string]string{
	"full_sun":       "direct sun",
	"sun-part_shade": "bright indirect",
	"part_shade":     "medium",
	"full_shade":     "low",
}

// WateringFrequencyDays maps a watering category to days between waterings.
// It returns nil for an empty category.
func WateringFrequencyDays(category string) *int {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}
	days, ok := wateringDays[strings.ToLower(category)]
	if !ok {
		days = DefaultWateringDays
	}
	return &days
}

// LightingRequirement picks the lighting requirement of the first sunlight
// value that maps to one, in list order
func LightingRequirement(sunlight []string) string {
	for _, sun := range sunlight {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sun)), " ", "_")
		if lighting, ok := sunlightLighting[key]; ok {
			return lighting
		}
	}
	return DefaultLighting
}

// BenchmarkDays parses a watering benchmark such as "5-7" days into the lower
// bound of the interval. ok is false when the unit is not days or the value
// is not a number.
func BenchmarkDays(value, unit string) (days int, ok bool) {
	value = cleanBenchmarkValue(value)
	if value == "" || !strings.Contains(strings.ToLower(unit), "day") {
		return 0, false
	}
	if lower, _, found := strings.Cut(value, "-"); found {
		value = lower
	}
	days, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return days, true
}

// ExtractCareData normalizes a Perenual species into care data
func ExtractCareData(s *Species) entities.CareData {
	care := entities.CareData{
		PerenualID:        s.ID,
		CommonName:        strings.TrimSpace(s.CommonName),
		AlternativeNames:  []string(s.OtherName),
		Watering:          strings.TrimSpace(s.Watering),
		Sunlight:          []string(s.Sunlight),
		CareLevel:         string(s.CareLevel),
		GrowthRate:        string(s.GrowthRate),
		Maintenance:       string(s.Maintenance),
		Cycle:             s.Cycle,
		DroughtTolerant:   s.DroughtTolerant.Ptr(),
		SoilTypes:         []string(s.Soil),
		Indoor:            s.Indoor.Ptr(),
		PoisonousToPets:   s.PoisonousToPets.Ptr(),
		PoisonousToHumans: s.PoisonousToHumans.Ptr(),
		Description:       strings.TrimSpace(s.Description),
		Origin:            []string(s.Origin),
		Propagation:       []string(s.Propagation),
		FloweringSeason:   string(s.FloweringSeason),
	}

	if len(s.ScientificName) > 0 {
		care.ScientificName = s.ScientificName[0]
	}

	care.WateringFrequencyDays = WateringFrequencyDays(care.Watering)

	if len(care.Sunlight) > 0 {
		care.LightingRequirement = LightingRequirement(care.Sunlight)
	}

	if s.Hardiness != nil {
		care.HardinessMin = string(s.Hardiness.Min)
		care.HardinessMax = string(s.Hardiness.Max)
	}

	if s.DefaultImage != nil {
		care.ImageURL = s.DefaultImage.RegularURL
		if care.ImageURL == "" {
			care.ImageURL = s.DefaultImage.MediumURL
		}
	}

	if b := s.WateringGeneralBenchmark; b != nil {
		care.WateringBenchmarkValue = cleanBenchmarkValue(string(b.Value))
		care.WateringBenchmarkUnit = strings.TrimSpace(string(b.Unit))
		if days, ok := BenchmarkDays(string(b.Value), string(b.Unit)); ok {
			care.WateringFrequencyDays = &days
		}
	}

	return care
}

// Perenual wraps benchmark values in literal quotes, e.g. "\"5-7\"".
func cleanBenchmarkValue(value string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"'`))
}
