package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestPlant_SearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		plant Plant
		want  string
	}{
		{"species first", Plant{Name: "Monty", Species: "Monstera deliciosa", IdentifiedCommonName: "Swiss cheese plant"}, "Monstera deliciosa"},
		{"identified common name", Plant{Name: "Monty", IdentifiedCommonName: "Swiss cheese plant"}, "Swiss cheese plant"},
		{"plant name", Plant{Name: "Monty"}, "Monty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.plant.SearchQuery())
		})
	}
}

func TestPlant_GapFill(t *testing.T) {
	species := &SpeciesCacheEntry{CareData: CareData{
		PerenualID:          42,
		CommonName:          "Swiss cheese plant",
		LightingRequirement: "medium",
		PoisonousToPets:     boolPtr(true),
		SoilTypes:           []string{"Peat", "Loam"},
		Description:         "A climbing evergreen.",
	}}

	plant := &Plant{ID: 1, Name: "Monty"}
	update := plant.GapFill(species)

	require.NotNil(t, update.LightingRequirement)
	assert.Equal(t, "medium", *update.LightingRequirement)
	require.NotNil(t, update.PetFriendly)
	assert.False(t, *update.PetFriendly)
	assert.Equal(t, "Peat, Loam", *update.SoilType)
	assert.Equal(t, "A climbing evergreen.", *update.CareSummary)
	assert.Equal(t, "Swiss cheese plant", *update.IdentifiedCommonName)
	assert.Equal(t, "medium", plant.LightingRequirement)

	assert.True(t, plant.GapFill(species).IsEmpty())
}

func TestPlant_GapFillKeepsExistingValues(t *testing.T) {
	plant := &Plant{LightingRequirement: "bright indirect", PetFriendly: boolPtr(true)}
	update := plant.GapFill(&SpeciesCacheEntry{CareData: CareData{
		LightingRequirement: "low",
		PoisonousToPets:     boolPtr(true),
	}})

	assert.True(t, update.IsEmpty())
	assert.Equal(t, "bright indirect", plant.LightingRequirement)
	assert.True(t, *plant.PetFriendly)
}

func TestPlant_GapFillTruncatesCareSummary(t *testing.T) {
	plant := &Plant{}
	update := plant.GapFill(&SpeciesCacheEntry{CareData: CareData{Description: strings.Repeat("é", 600)}})

	require.NotNil(t, update.CareSummary)
	assert.Equal(t, 500, len([]rune(*update.CareSummary)))
}

func TestPlant_GapFillNilSpecies(t *testing.T) {
	assert.True(t, (&Plant{}).GapFill(nil).IsEmpty())
}
