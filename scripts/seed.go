package main

import (
	"context"
	"flag"
	"os"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/facilitysearch/internal/adapters/events"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	"github.com/zatekoja/facilitysearch/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS facilities (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	address        TEXT,
	floor          TEXT,
	avg_rating     DOUBLE PRECISION,
	is_partnership BOOLEAN NOT NULL DEFAULT FALSE,
	facility_type  TEXT NOT NULL DEFAULT 'OTHER',
	is_always_open BOOLEAN NOT NULL DEFAULT FALSE,
	open_time      TIME,
	close_time     TIME,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tags (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS facility_tags (
	facility_id BIGINT NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
	tag_id      BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (facility_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_facility_tags_tag ON facility_tags (tag_id);
CREATE INDEX IF NOT EXISTS idx_facilities_active_rating ON facilities (is_active, avg_rating DESC);
`

type seedFacility struct {
	Name       string
	Lat, Lng   float64
	Address    string
	Floor      string
	Rating     float64
	Partner    bool
	Type       entities.FacilityType
	AlwaysOpen bool
	Open       string
	Close      string
	Tags       []string
}

var seedFacilities = []seedFacility{
	{"Gangnam Station Restroom", 37.4979, 127.0276, "396 Gangnam-daero, Gangnam-gu, Seoul", "B1", 4.2, false, entities.FacilityTypeTransit, true, "", "", []string{"24시간", "wheelchair"}},
	{"Yeoksam Public Library", 37.5007, 127.0365, "7-1 Yeoksam-ro, Gangnam-gu, Seoul", "1F", 4.6, false, entities.FacilityTypePublic, false, "09:00", "18:00", []string{"wheelchair", "diaper table"}},
	{"Gangnam Finance Center", 37.5002, 127.0364, "152 Teheran-ro, Gangnam-gu, Seoul", "2F", 4.8, true, entities.FacilityTypePartner, false, "07:00", "22:00", []string{"wheelchair", "bidet"}},
	{"Seolleung Park", 37.5087, 127.0468, "1 Seolleung-ro 100-gil, Gangnam-gu, Seoul", "", 3.9, false, entities.FacilityTypePublic, false, "06:00", "21:00", []string{"diaper table"}},
	{"Jamsil Stadium Gate 3", 37.5122, 127.0719, "25 Olympic-ro, Songpa-gu, Seoul", "1F", 3.1, false, entities.FacilityTypePublic, false, "22:00", "06:00", []string{"24시간"}},
	{"COEX Mall West", 37.5116, 127.0595, "513 Yeongdong-daero, Gangnam-gu, Seoul", "B1", 4.4, false, entities.FacilityTypeCommercial, false, "10:00", "22:00", []string{"wheelchair", "bidet", "diaper table"}},
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional YAML config file")
	reset := flag.Bool("reset", os.Getenv("RESET_DB") == "true", "truncate tables before seeding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Server.Env)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatal().Err(err).Msg("failed to create schema")
	}

	if *reset {
		log.Info().Msg("truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE facility_tags, tags, facilities RESTART IDENTITY CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("failed to truncate tables")
		}
	}

	db := goqu.New("postgres", pgClient.DB())

	tagIDs := map[string]int64{}
	for _, f := range seedFacilities {
		for _, name := range f.Tags {
			if _, ok := tagIDs[name]; ok {
				continue
			}
			var id int64
			_, err := db.Insert("tags").
				Rows(goqu.Record{"name": name}).
				OnConflict(goqu.DoUpdate("name", goqu.Record{"name": goqu.L("EXCLUDED.name")})).
				Returning("id").
				Executor().ScanValContext(ctx, &id)
			if err != nil {
				log.Fatal().Err(err).Str("tag", name).Msg("failed to upsert tag")
			}
			tagIDs[name] = id
		}
	}

	var eventBus providers.EventBus
	if redisClient, err := redis.NewClient(ctx, &cfg.Redis); err == nil {
		defer redisClient.Close()
		eventBus = events.NewRedisEventBus(redisClient)
		defer eventBus.Close()
	}

	for _, f := range seedFacilities {
		record := goqu.Record{
			"name":           f.Name,
			"latitude":       f.Lat,
			"longitude":      f.Lng,
			"address":        f.Address,
			"floor":          f.Floor,
			"avg_rating":     f.Rating,
			"is_partnership": f.Partner,
			"facility_type":  string(f.Type),
			"is_always_open": f.AlwaysOpen,
		}
		if !f.AlwaysOpen {
			record["open_time"] = f.Open
			record["close_time"] = f.Close
		}

		var id int64
		if _, err := db.Insert("facilities").Rows(record).Returning("id").Executor().ScanValContext(ctx, &id); err != nil {
			log.Fatal().Err(err).Str("facility", f.Name).Msg("failed to insert facility")
		}

		links := make([]interface{}, 0, len(f.Tags))
		for _, name := range f.Tags {
			links = append(links, goqu.Record{"facility_id": id, "tag_id": tagIDs[name]})
		}
		if len(links) > 0 {
			if _, err := db.Insert("facility_tags").Rows(links...).OnConflict(goqu.DoNothing()).Executor().ExecContext(ctx); err != nil {
				log.Fatal().Err(err).Str("facility", f.Name).Msg("failed to attach tags")
			}
		}

		if eventBus != nil {
			event := entities.NewFacilityEvent(id, entities.FacilityEventTypeCreated, f.Name)
			if err := eventBus.Publish(ctx, providers.EventChannelFacilityUpdates, event); err != nil {
				log.Warn().Err(err).Msg("failed to publish facility event")
			}
		}
		log.Info().Int64("id", id).Str("name", f.Name).Msg("seeded facility")
	}

	log.Info().Int("facilities", len(seedFacilities)).Int("tags", len(tagIDs)).Msg("seeding complete")
}
