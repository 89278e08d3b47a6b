package entities

import (
	"time"

	"github.com/google/uuid"
)

// EnrichmentEventType represents the type of enrichment event
type EnrichmentEventType string

const (
	EnrichmentEventPlantEnriched EnrichmentEventType = "enrichment.plant_enriched"
	EnrichmentEventRunFinished   EnrichmentEventType = "enrichment.run_finished"
)

// EnrichmentEvent is published whenever the pipeline changes user-visible data
type EnrichmentEvent struct {
	ID        string                 `json:"id"`
	EventType EnrichmentEventType    `json:"event_type"`
	PlantID   int64                  `json:"plant_id,omitempty"`
	LogID     int64                  `json:"log_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEnrichmentEvent creates a new enrichment event
func NewEnrichmentEvent(eventType EnrichmentEventType, plantID, logID int64, data map[string]interface{}) *EnrichmentEvent {
	return &EnrichmentEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		PlantID:   plantID,
		LogID:     logID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
