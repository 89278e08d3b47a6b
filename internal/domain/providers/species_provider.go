package providers

import (
	"context"
	"encoding/json"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// SpeciesMatch is a resolved species: normalized care data plus the raw
// provider payload it was derived from
type SpeciesMatch struct {
	CareData entities.CareData
	Raw      json.RawMessage
}

// SpeciesProvider looks species up in an external plant database
type SpeciesProvider interface {
	// SearchAndGetDetails resolves query to the best matching species and its
	// details. It returns nil without error when nothing matches.
	SearchAndGetDetails(ctx context.Context, query string) (*SpeciesMatch, error)
}
