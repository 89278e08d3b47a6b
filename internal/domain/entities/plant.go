package entities

import (
	"strings"
	"time"
)

// Plant is a user's plant record. Care fields left empty are candidates for
// gap-filling from species data.
type Plant struct {
	ID                   int64     `json:"id" db:"id"`
	UserID               *int64    `json:"user_id,omitempty" db:"user_id"`
	Name                 string    `json:"name" db:"name"`
	Species              string    `json:"species,omitempty" db:"species"`
	IdentifiedCommonName string    `json:"identified_common_name,omitempty" db:"identified_common_name"`
	LightingRequirement  string    `json:"lighting_requirement,omitempty" db:"lighting_requirement"`
	PetFriendly          *bool     `json:"pet_friendly,omitempty" db:"pet_friendly"`
	SoilType             string    `json:"soil_type,omitempty" db:"soil_type"`
	CareSummary          string    `json:"care_summary,omitempty" db:"care_summary"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// SearchQuery returns the name used to look the plant up with the species
// provider: species first, then the identified common name, then the
// user-given name.
func (p *Plant) SearchQuery() string {
	switch {
	case p.Species != "":
		return p.Species
	case p.IdentifiedCommonName != "":
		return p.IdentifiedCommonName
	default:
		return p.Name
	}
}

// PlantCareUpdate carries the care fields to write back to a plant.
// Nil fields are left untouched.
type PlantCareUpdate struct {
	LightingRequirement  *string
	PetFriendly          *bool
	SoilType             *string
	CareSummary          *string
	IdentifiedCommonName *string
}

// IsEmpty reports whether the update changes nothing
func (u PlantCareUpdate) IsEmpty() bool {
	return u.LightingRequirement == nil &&
		u.PetFriendly == nil &&
		u.SoilType == nil &&
		u.CareSummary == nil &&
		u.IdentifiedCommonName == nil
}

// careSummaryMaxLen caps the description copied into CareSummary (in characters)
const careSummaryMaxLen = 500

// GapFill builds the update that fills the plant's empty care fields from
// species data and applies it to p. Fields that are already set are never
// touched, so a second call with the same species returns an empty update.
func (p *Plant) GapFill(s *SpeciesCacheEntry) PlantCareUpdate {
	var u PlantCareUpdate
	if s == nil {
		return u
	}

	if p.LightingRequirement == "" && s.LightingRequirement != "" {
		v := s.LightingRequirement
		u.LightingRequirement = &v
		p.LightingRequirement = v
	}
	if p.PetFriendly == nil && s.PoisonousToPets != nil {
		v := !*s.PoisonousToPets
		u.PetFriendly = &v
		p.PetFriendly = &v
	}
	if p.SoilType == "" && len(s.SoilTypes) > 0 {
		v := strings.Join(s.SoilTypes, ", ")
		u.SoilType = &v
		p.SoilType = v
	}
	if p.CareSummary == "" && s.Description != "" {
		v := truncateRunes(s.Description, careSummaryMaxLen)
		u.CareSummary = &v
		p.CareSummary = v
	}
	if p.IdentifiedCommonName == "" && s.CommonName != "" {
		v := s.CommonName
		u.IdentifiedCommonName = &v
		p.IdentifiedCommonName = v
	}
	return u
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
