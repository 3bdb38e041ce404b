package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/facilitysearch/pkg/config"
	"github.com/zatekoja/facilitysearch/pkg/retry"
)

const (
	// SuggestionsCollection holds one lightweight document per facility
	SuggestionsCollection = "facility_suggestions"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client and waits for the server to report healthy
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 5
	err := retry.Do(ctx, retryCfg, "typesense", func(ctx context.Context) error {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ok, err := client.Health(healthCtx, 2*time.Second)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("typesense reported unhealthy")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the suggestions collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.client.Collection(SuggestionsCollection).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: SuggestionsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "facility_id", Type: "int64"},
			{Name: "name", Type: "string"},
			{Name: "rating", Type: "float"},
			{Name: "facility_type", Type: "string", Facet: pointer.True()},
		},
		DefaultSortingField: pointer.String("rating"),
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", SuggestionsCollection).Msg("created Typesense collection")
	return nil
}

// DropSchema deletes the suggestions collection
func (c *Client) DropSchema(ctx context.Context) error {
	if _, err := c.client.Collection(SuggestionsCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}
