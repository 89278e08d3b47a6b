package entities

import (
	"encoding/json"
	"time"
)

// SpeciesCacheEntry is a species fetched once from the provider and shared by
// every plant of that species. Entries are never updated after creation.
type SpeciesCacheEntry struct {
	ID int64 `json:"id" db:"id"`
	CareData
	RawData   json.RawMessage `json:"raw_data,omitempty" db:"raw_data"`
	FetchedAt time.Time       `json:"fetched_at" db:"fetched_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
