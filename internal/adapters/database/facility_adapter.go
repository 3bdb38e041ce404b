package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	"github.com/zatekoja/facilitysearch/internal/geo"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

// openNowClause mirrors geo.IsOpenNow. Each placeholder is the current
// wall-clock time in the operating timezone.
const openNowClause = `(f.is_always_open
	OR (f.open_time < f.close_time AND f.open_time <= ?::time AND ?::time < f.close_time)
	OR (f.open_time > f.close_time AND (?::time >= f.open_time OR ?::time < f.close_time)))`

var facilityColumns = []interface{}{
	goqu.I("f.id"),
	goqu.I("f.name"),
	goqu.I("f.latitude"),
	goqu.I("f.longitude"),
	goqu.I("f.address"),
	goqu.I("f.floor"),
	goqu.I("f.avg_rating"),
	goqu.I("f.is_partnership"),
	goqu.I("f.facility_type"),
	goqu.I("f.is_always_open"),
	goqu.I("f.open_time"),
	goqu.I("f.close_time"),
	goqu.I("f.is_active"),
	goqu.I("f.updated_at"),
}

// FacilityAdapter implements the candidate store on Postgres
type FacilityAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewFacilityAdapter creates a new facility adapter. metrics may be nil.
func NewFacilityAdapter(client *postgres.Client, metrics *observability.Metrics) *FacilityAdapter {
	return &FacilityAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

var _ repositories.FacilityRepository = (*FacilityAdapter)(nil)

// SearchFiltered returns all active facilities matching the hard filters
func (a *FacilityAdapter) SearchFiltered(ctx context.Context, filter repositories.CandidateFilter) ([]*entities.Facility, error) {
	ds := a.db.From(goqu.T("facilities").As("f")).
		Prepared(true).
		Select(facilityColumns...).
		Where(goqu.I("f.is_active").IsTrue())

	if filter.Keyword != "" {
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("f.name").ILike(pattern),
			goqu.I("f.address").ILike(pattern),
		))
	}

	if filter.MinRating != nil {
		ds = ds.Where(goqu.COALESCE(goqu.I("f.avg_rating"), 0).Gte(*filter.MinRating))
	}

	if filter.FacilityType != nil {
		ds = ds.Where(goqu.I("f.facility_type").Eq(string(*filter.FacilityType)))
	}

	if len(filter.TagIDs) > 0 {
		tagged := a.db.From("facility_tags").
			Select("facility_id").
			Where(goqu.I("tag_id").In(filter.TagIDs)).
			GroupBy("facility_id").
			Having(goqu.COUNT(goqu.DISTINCT("tag_id")).Eq(filter.RequiredTagCount))
		ds = ds.Where(goqu.I("f.id").In(tagged))
	}

	if filter.RequireAvailable {
		now := geo.TimeOfDayAt(filter.Now, filter.Location).String()
		ds = ds.Where(goqu.L(openNowClause, now, now, now, now))
	}

	ds = ds.Order(goqu.I("f.id").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build candidate query", err)
	}

	start := time.Now()
	facilities, err := a.queryFacilities(ctx, query, args)
	observability.RecordDBMetric(ctx, a.metrics, "facility_search_filtered", time.Since(start))
	if err != nil {
		return nil, err
	}

	if err := a.attachTags(ctx, facilities); err != nil {
		return nil, err
	}
	return facilities, nil
}

// FindByNamePrefix returns name matches ordered by rating, highest first
func (a *FacilityAdapter) FindByNamePrefix(ctx context.Context, keyword string, limit int) ([]*entities.Facility, error) {
	pattern := "%" + escapeLike(keyword) + "%"

	query, args, err := a.db.From(goqu.T("facilities").As("f")).
		Prepared(true).
		Select(facilityColumns...).
		Where(
			goqu.I("f.is_active").IsTrue(),
			goqu.I("f.name").ILike(pattern),
		).
		Order(
			goqu.COALESCE(goqu.I("f.avg_rating"), 0).Desc(),
			goqu.I("f.name").Asc(),
			goqu.I("f.id").Asc(),
		).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build autocomplete query", err)
	}

	start := time.Now()
	facilities, err := a.queryFacilities(ctx, query, args)
	observability.RecordDBMetric(ctx, a.metrics, "facility_find_by_name", time.Since(start))
	return facilities, err
}

// ListForIndexing pages through active facilities by ascending id
func (a *FacilityAdapter) ListForIndexing(ctx context.Context, afterID int64, limit int) ([]*entities.Facility, error) {
	query, args, err := a.db.From(goqu.T("facilities").As("f")).
		Prepared(true).
		Select(facilityColumns...).
		Where(
			goqu.I("f.is_active").IsTrue(),
			goqu.I("f.id").Gt(afterID),
		).
		Order(goqu.I("f.id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build indexing query", err)
	}

	return a.queryFacilities(ctx, query, args)
}

func (a *FacilityAdapter) queryFacilities(ctx context.Context, query string, args []interface{}) ([]*entities.Facility, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewCandidateStoreError("failed to query facilities", err)
	}
	defer rows.Close()

	facilities := []*entities.Facility{}
	for rows.Next() {
		facility, err := scanFacility(rows)
		if err != nil {
			return nil, apperrors.NewCandidateStoreError("failed to scan facility", err)
		}
		facilities = append(facilities, facility)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewCandidateStoreError("error iterating facilities", err)
	}

	return facilities, nil
}

func scanFacility(rows *sql.Rows) (*entities.Facility, error) {
	facility := &entities.Facility{}
	var (
		latitude, longitude, rating sql.NullFloat64
		address, floor              sql.NullString
		openTime, closeTime         sql.NullString
		facilityType                sql.NullString
	)

	err := rows.Scan(
		&facility.ID,
		&facility.Name,
		&latitude,
		&longitude,
		&address,
		&floor,
		&rating,
		&facility.IsPartnership,
		&facilityType,
		&facility.Hours.AlwaysOpen,
		&openTime,
		&closeTime,
		&facility.IsActive,
		&facility.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	facility.Latitude = nullFloat(latitude)
	facility.Longitude = nullFloat(longitude)
	facility.Rating = nullFloat(rating)
	facility.Address = address.String
	facility.Floor = floor.String
	facility.FacilityType = entities.FacilityType(facilityType.String)

	if facility.Hours.Open, err = nullTimeOfDay(openTime); err != nil {
		return nil, err
	}
	if facility.Hours.Close, err = nullTimeOfDay(closeTime); err != nil {
		return nil, err
	}

	return facility, nil
}

// attachTags loads the persisted tags of every facility in one query
func (a *FacilityAdapter) attachTags(ctx context.Context, facilities []*entities.Facility) error {
	if len(facilities) == 0 {
		return nil
	}

	byID := make(map[int64]*entities.Facility, len(facilities))
	ids := make([]int64, 0, len(facilities))
	for _, f := range facilities {
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	query, args, err := a.db.From(goqu.T("facility_tags").As("ft")).
		Prepared(true).
		Select(goqu.I("ft.facility_id"), goqu.I("t.id"), goqu.I("t.name")).
		Join(goqu.T("tags").As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("ft.tag_id")))).
		Where(goqu.I("ft.facility_id").In(ids)).
		Order(goqu.I("ft.facility_id").Asc(), goqu.I("t.id").Asc()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build tag query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewCandidateStoreError("failed to load facility tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var facilityID int64
		var tag entities.Tag
		if err := rows.Scan(&facilityID, &tag.ID, &tag.Name); err != nil {
			return apperrors.NewCandidateStoreError("failed to scan facility tag", err)
		}
		if f, ok := byID[facilityID]; ok {
			f.Tags = append(f.Tags, tag)
		}
	}

	if err := rows.Err(); err != nil {
		return apperrors.NewCandidateStoreError("error iterating facility tags", err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTimeOfDay(v sql.NullString) (*geo.TimeOfDay, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := geo.ParseTimeOfDay(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
