package providers

import (
	"context"
	"strconv"

	"github.com/dontkillit/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.EnrichmentEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.EnrichmentEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelEnrichment carries run-level enrichment events
	EventChannelEnrichment = "enrichment:updates"

	// EventChannelPlantPrefix is the prefix for plant-specific channels
	EventChannelPlantPrefix = "plant:"
)

// GetPlantChannel returns the channel name for a specific plant
func GetPlantChannel(plantID int64) string {
	return EventChannelPlantPrefix + strconv.FormatInt(plantID, 10)
}
