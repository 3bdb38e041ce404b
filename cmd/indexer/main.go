package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/facilitysearch/internal/adapters/database"
	"github.com/zatekoja/facilitysearch/internal/adapters/events"
	"github.com/zatekoja/facilitysearch/internal/adapters/search"
	"github.com/zatekoja/facilitysearch/internal/application/services"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	"github.com/zatekoja/facilitysearch/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag, configPath string
	var batchSize int
	flag.BoolVar(&reset, "reset", false, "delete the suggestions collection before the first pass")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.IntVar(&batchSize, "batch", 500, "facilities read per page")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Server.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Typesense client")
	}

	// the bus is optional; without it cached suggestions simply expire
	var eventBus providers.EventBus
	if redisClient, err := redis.NewClient(ctx, &cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached suggestions will not be invalidated")
	} else {
		defer redisClient.Close()
		eventBus = events.NewRedisEventBus(redisClient)
		defer eventBus.Close()
	}

	indexer := services.NewSuggestionIndexer(
		database.NewFacilityAdapter(pgClient, nil),
		search.NewTypesenseAdapter(tsClient),
		batchSize,
	)

	for {
		if err := indexOnce(ctx, tsClient, indexer, eventBus, reset); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			return
		}
		reset = false
		log.Info().Dur("interval", interval).Msg("reindex complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, tsClient *typesense.Client, indexer *services.SuggestionIndexer, eventBus providers.EventBus, reset bool) error {
	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.SuggestionsCollection).Msg("deleting collection before reindex")
		if err := tsClient.DropSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to delete collection")
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	start := time.Now()
	stats, err := indexer.Reindex(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("indexed", stats.Indexed).
		Int("failed", stats.Failed).
		Dur("took", time.Since(start)).
		Msg("reindex pass finished")

	if eventBus != nil && stats.Indexed > 0 {
		event := entities.NewFacilityEvent(0, entities.FacilityEventTypeUpdated, "reindex")
		if err := eventBus.Publish(ctx, providers.EventChannelFacilityUpdates, event); err != nil {
			log.Warn().Err(err).Msg("failed to publish reindex event")
		}
	}
	return nil
}
