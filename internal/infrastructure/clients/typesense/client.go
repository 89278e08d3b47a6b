package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/dontkillit/backend/pkg/config"
	"github.com/dontkillit/backend/pkg/retry"
	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	SpeciesCollection = "species"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = 5
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// NewClientFromTypesense wraps an existing client without a health check
func NewClientFromTypesense(client *typesense.Client) *Client {
	return &Client{client: client}
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the species collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.client.Collection(SpeciesCollection).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: SpeciesCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "perenual_id", Type: "int32"},
			{Name: "scientific_name", Type: "string", Optional: pointer.True()},
			{Name: "common_name", Type: "string", Optional: pointer.True()},
			{Name: "alternative_names", Type: "string[]", Optional: pointer.True()},
			{Name: "watering", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "care_level", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "lighting_requirement", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "image_url", Type: "string", Index: pointer.False(), Optional: pointer.True()},
			{Name: "fetched_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("fetched_at"),
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", SpeciesCollection).Msg("Created Typesense collection")
	return nil
}
