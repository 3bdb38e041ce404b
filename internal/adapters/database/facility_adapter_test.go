package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	"github.com/zatekoja/facilitysearch/internal/geo"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

var facilityRowColumns = []string{
	"id", "name", "latitude", "longitude", "address", "floor", "avg_rating",
	"is_partnership", "facility_type", "is_always_open", "open_time", "close_time",
	"is_active", "updated_at",
}

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

func TestFacilityAdapter_SearchFiltered(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client, nil)
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "facilities" AS "f"`)).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow(1, "Gangnam Station Restroom", 37.4979, 127.0276, "Gangnam-daero 396", "B1", 4.5,
				false, "TRANSIT", false, "22:00:00", "06:00:00", true, updated).
			AddRow(2, "Yeoksam Library", nil, nil, nil, nil, nil,
				true, "PUBLIC", true, nil, nil, true, updated))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "facility_tags" AS "ft" INNER JOIN "tags" AS "t"`)).
		WillReturnRows(sqlmock.NewRows([]string{"facility_id", "id", "name"}).
			AddRow(1, 10, "24시간").
			AddRow(1, 11, "wheelchair").
			AddRow(2, 10, "24시간"))

	rating := 3.0
	facilities, err := adapter.SearchFiltered(context.Background(), repositories.CandidateFilter{
		Keyword:          "gang",
		MinRating:        &rating,
		TagIDs:           []int64{10},
		RequiredTagCount: 1,
		RequireAvailable: true,
		Now:              updated,
		Location:         time.UTC,
	})
	require.NoError(t, err)
	require.Len(t, facilities, 2)

	first := facilities[0]
	assert.Equal(t, int64(1), first.ID)
	require.True(t, first.HasLocation())
	assert.InDelta(t, 37.4979, *first.Latitude, 1e-9)
	assert.Equal(t, "B1", first.Floor)
	assert.Equal(t, entities.FacilityTypeTransit, first.FacilityType)
	require.NotNil(t, first.Hours.Open)
	assert.Equal(t, geo.NewTimeOfDay(22, 0), *first.Hours.Open)
	assert.Equal(t, geo.NewTimeOfDay(6, 0), *first.Hours.Close)
	assert.Equal(t, []string{"24시간", "wheelchair"}, first.TagNames())

	second := facilities[1]
	assert.False(t, second.HasLocation())
	assert.Nil(t, second.Rating)
	assert.Equal(t, "", second.Address)
	assert.True(t, second.Hours.AlwaysOpen)
	assert.Nil(t, second.Hours.Open)
	assert.Equal(t, []string{"24시간"}, second.TagNames())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_SearchFiltered_FilterClauses(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client, nil)

	// each hard filter must be pushed down to SQL
	mock.ExpectQuery(`(?s)ILIKE.*COALESCE\("f"\."avg_rating".*"f"\."facility_type".*HAVING .*COUNT\(DISTINCT.*f\.is_always_open`).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns))

	rating := 4.0
	transit := entities.FacilityTypeTransit
	facilities, err := adapter.SearchFiltered(context.Background(), repositories.CandidateFilter{
		Keyword:          "station",
		MinRating:        &rating,
		FacilityType:     &transit,
		TagIDs:           []int64{10, 11},
		RequiredTagCount: 2,
		RequireAvailable: true,
		Now:              time.Now(),
		Location:         time.UTC,
	})
	require.NoError(t, err)
	assert.Empty(t, facilities)

	// no candidates means no tag query
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_SearchFiltered_QueryError(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "facilities"`)).
		WillReturnError(sql.ErrConnDone)

	facilities, err := adapter.SearchFiltered(context.Background(), repositories.CandidateFilter{Keyword: "x"})
	require.Error(t, err)
	assert.Nil(t, facilities)
	assert.True(t, errors.Is(err, apperrors.ErrCandidateStore))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestFacilityAdapter_SearchFiltered_BadHours(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "facilities"`)).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow(1, "Broken", nil, nil, nil, nil, nil,
				false, "OTHER", false, "not-a-time", nil, true, time.Now()))

	_, err := adapter.SearchFiltered(context.Background(), repositories.CandidateFilter{Keyword: "broken"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCandidateStore))
}

func TestFacilityAdapter_FindByNamePrefix(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client, nil)

	mock.ExpectQuery(`(?s)"f"\."name" ILIKE .*ORDER BY COALESCE\("f"\."avg_rating", [^)]+\) DESC.*LIMIT`).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow(3, "Gangnam Finance Center", nil, nil, nil, nil, 4.8,
				false, "COMMERCIAL", false, "09:00", "18:00", true, time.Now()))

	facilities, err := adapter.FindByNamePrefix(context.Background(), "gangnam", 8)
	require.NoError(t, err)
	require.Len(t, facilities, 1)
	assert.Equal(t, "Gangnam Finance Center", facilities[0].Name)
	assert.Equal(t, 4.8, facilities[0].RatingOrZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacilityAdapter_ListForIndexing(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewFacilityAdapter(client, nil)

	mock.ExpectQuery(`(?s)"f"\."id" > .*ORDER BY "f"\."id" ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows(facilityRowColumns).
			AddRow(101, "Seolleung Park", nil, nil, nil, nil, nil,
				false, "PUBLIC", true, nil, nil, true, time.Now()))

	facilities, err := adapter.ListForIndexing(context.Background(), 100, 50)
	require.NoError(t, err)
	require.Len(t, facilities, 1)
	assert.Equal(t, int64(101), facilities[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
	assert.Equal(t, "강남", escapeLike("강남"))
}
