package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/facilitysearch/internal/adapters/cache"
	"github.com/zatekoja/facilitysearch/internal/adapters/database"
	"github.com/zatekoja/facilitysearch/internal/adapters/events"
	"github.com/zatekoja/facilitysearch/internal/adapters/search"
	"github.com/zatekoja/facilitysearch/internal/api/handlers"
	"github.com/zatekoja/facilitysearch/internal/api/routes"
	"github.com/zatekoja/facilitysearch/internal/application/services"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	"github.com/zatekoja/facilitysearch/pkg/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	loc, err := cfg.Search.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid operating timezone")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	healthChecks := map[string]handlers.HealthCheck{
		"postgres": pgClient.Ping,
	}

	// Redis is optional: without it autocomplete goes straight to the store
	var cacheProvider providers.CacheProvider
	var popularity providers.PopularityCounter
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, suggestion cache disabled")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		popularity = cache.NewRedisPopularityCounter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		healthChecks["redis"] = redisClient.Ping
	}

	facilityAdapter := database.NewFacilityAdapter(pgClient, metrics)
	tagAdapter := database.NewTagAdapter(pgClient)

	opts := []services.SearchServiceOption{
		services.WithAutocompleteLimit(cfg.Search.AutocompleteLimit),
		services.WithMetrics(metrics),
	}
	if popularity != nil {
		opts = append(opts, services.WithPopularityCounter(popularity))
	}

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, autocomplete served from PostgreSQL")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to init Typesense schema, autocomplete served from PostgreSQL")
		} else {
			opts = append(opts, services.WithSuggestionIndex(search.NewTypesenseAdapter(tsClient)))
		}
	}

	searchService := services.NewSearchService(
		facilityAdapter,
		services.NewTagResolver(tagAdapter),
		services.NewSuggestionCache(cacheProvider, popularity, metrics),
		loc,
		opts...,
	)

	var invalidation *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		invalidation = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start cache invalidation service")
			invalidation = nil
		}
	}

	facilityHandler := handlers.NewFacilityHandler(searchService, handlers.PageLimits{
		DefaultSize: cfg.Search.DefaultPageSize,
		MaxSize:     cfg.Search.MaxPageSize,
	})
	healthHandler := handlers.NewHealthHandler(healthChecks)

	router := routes.NewRouter(facilityHandler, healthHandler, cfg.Server.AllowedOrigins, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("timezone", loc.String()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if invalidation != nil {
		invalidation.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}

	log.Info().Msg("server stopped")
}
