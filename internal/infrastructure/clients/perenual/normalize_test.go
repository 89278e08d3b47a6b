package perenual

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWateringFrequencyDays(t *testing.T) {
	tests := []struct {
		category string
		want     *int
	}{
		{"Frequent", intPtr(3)},
		{"average", intPtr(7)},
		{"Minimum", intPtr(14)},
		{"None", intPtr(30)},
		{"Sometimes", intPtr(DefaultWateringDays)},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, WateringFrequencyDays(tt.category))
		})
	}
}

func TestLightingRequirement(t *testing.T) {
	tests := []struct {
		name     string
		sunlight []string
		want     string
	}{
		{"full sun", []string{"Full sun"}, "direct sun"},
		{"underscore form", []string{"full_sun"}, "direct sun"},
		{"sun part shade", []string{"sun-part shade"}, "bright indirect"},
		{"part shade", []string{"part shade"}, "medium"},
		{"full shade", []string{"full shade"}, "low"},
		{"first recognised wins", []string{"filtered shade", "full shade", "full sun"}, "low"},
		{"unrecognised", []string{"deep shade"}, DefaultLighting},
		{"empty", nil, DefaultLighting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LightingRequirement(tt.sunlight))
		})
	}
}

func TestBenchmarkDays(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		unit   string
		want   int
		wantOK bool
	}{
		{"range", "5-7", "days", 5, true},
		{"quoted range", `"7-10"`, "days", 7, true},
		{"single", "6", "Days", 6, true},
		{"week unit", "1", "week", 0, false},
		{"not numeric", "often", "days", 0, false},
		{"empty", "", "days", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BenchmarkDays(tt.value, tt.unit)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCareData_LooseTypes(t *testing.T) {
	raw := `{
		"id": 9,
		"common_name": "Snake plant",
		"scientific_name": "Dracaena trifasciata",
		"watering": "Minimum",
		"sunlight": "full sun",
		"poisonous_to_pets": true,
		"indoor": "1",
		"hardiness": {"min": 9, "max": "11"},
		"default_image": {"medium_url": "https://img.test/medium.jpg"},
		"watering_general_benchmark": {"value": "10-14", "unit": "weeks"}
	}`
	var s Species
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	care := ExtractCareData(&s)

	assert.Equal(t, "Dracaena trifasciata", care.ScientificName)
	assert.Equal(t, "direct sun", care.LightingRequirement)
	require.NotNil(t, care.WateringFrequencyDays)
	assert.Equal(t, 14, *care.WateringFrequencyDays)
	assert.Equal(t, "10-14", care.WateringBenchmarkValue)
	assert.Equal(t, "weeks", care.WateringBenchmarkUnit)
	assert.Equal(t, "9", care.HardinessMin)
	assert.Equal(t, "https://img.test/medium.jpg", care.ImageURL)
	require.NotNil(t, care.Indoor)
	assert.True(t, *care.Indoor)
	assert.Nil(t, care.DroughtTolerant)
}

func TestExtractCareData_NoWateringNoSunlight(t *testing.T) {
	var s Species
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"scientific_name":[],"sunlight":[]}`), &s))

	care := ExtractCareData(&s)

	assert.Equal(t, 3, care.PerenualID)
	assert.Empty(t, care.ScientificName)
	assert.Nil(t, care.WateringFrequencyDays)
	assert.Empty(t, care.LightingRequirement)
}

func intPtr(v int) *int { return &v }
