package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilitysearch/internal/application/services"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

type searchFixture struct {
	facilities *MockFacilityRepository
	tags       *MockTagRepository
	counter    *MockPopularityCounter
	cache      *MockCacheProvider
	service    *services.SearchService
}

func newSearchFixture(opts ...services.SearchServiceOption) *searchFixture {
	f := &searchFixture{
		facilities: new(MockFacilityRepository),
		tags:       new(MockTagRepository),
		counter:    new(MockPopularityCounter),
		cache:      NewMockCacheProvider(),
	}
	opts = append([]services.SearchServiceOption{services.WithPopularityCounter(f.counter)}, opts...)
	f.service = services.NewSearchService(
		f.facilities,
		services.NewTagResolver(f.tags),
		services.NewSuggestionCache(f.cache, f.counter, nil),
		seoul,
		opts...,
	)
	return f
}

func TestSearchService_BlankQueryIsSkipped(t *testing.T) {
	f := newSearchFixture()

	result, err := f.service.Search(context.Background(), entities.SearchCriteria{
		Keyword:   "   ",
		TagNames:  []string{" ", ""},
		Latitude:  float64Ptr(37.5),
		Longitude: float64Ptr(127.0),
	}, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Results)

	f.facilities.AssertNotCalled(t, "SearchFiltered", mock.Anything, mock.Anything)
	f.tags.AssertNotCalled(t, "FindIDsByNames", mock.Anything, mock.Anything)
}

func TestSearchService_ZeroMatchesIsNotSkipped(t *testing.T) {
	f := newSearchFixture()
	f.facilities.On("SearchFiltered", mock.Anything, mock.Anything).Return([]*entities.Facility{}, nil)

	result, err := f.service.Search(context.Background(), entities.SearchCriteria{Keyword: "nowhere"}, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, int64(0), result.TotalCount)
}

func TestSearchService_PassesFiltersToStore(t *testing.T) {
	f := newSearchFixture()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, seoul)
	transit := entities.FacilityTypeTransit

	f.tags.On("FindIDsByNames", mock.Anything, []string{"24시간", "wheelchair"}).Return([]int64{10, 11}, nil)
	f.facilities.On("SearchFiltered", mock.Anything, mock.MatchedBy(func(filter repositories.CandidateFilter) bool {
		return filter.Keyword == "station" &&
			*filter.MinRating == 3.5 &&
			*filter.FacilityType == transit &&
			filter.RequiredTagCount == 2 &&
			filter.RequireAvailable &&
			filter.Now.Equal(now) &&
			filter.Location == seoul
	})).Return([]*entities.Facility{
		{ID: 1, Name: "Low", Rating: float64Ptr(3.6), Hours: entities.OpenHours{AlwaysOpen: true}},
		{ID: 2, Name: "High", Rating: float64Ptr(4.8), Hours: entities.OpenHours{AlwaysOpen: true}},
	}, nil)

	result, err := f.service.Search(context.Background(), entities.SearchCriteria{
		Keyword:      "  station ",
		MinRating:    float64Ptr(3.5),
		FacilityType: &transit,
		TagNames:     []string{"24시간", "AVAILABLE_NOW", "wheelchair", "24시간"},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)
	assert.Equal(t, int64(2), result.Results[0].ID)
	assert.Contains(t, result.Results[0].Tags, entities.AvailableNowTag)

	f.facilities.AssertExpectations(t)
	f.tags.AssertExpectations(t)
}

func TestSearchService_UnknownTagAbortsSearch(t *testing.T) {
	f := newSearchFixture()
	f.tags.On("FindIDsByNames", mock.Anything, []string{"unknown"}).Return([]int64{}, nil)

	result, err := f.service.Search(context.Background(), entities.SearchCriteria{TagNames: []string{"unknown"}}, time.Now())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, apperrors.ErrTagNotFound))
	f.facilities.AssertNotCalled(t, "SearchFiltered", mock.Anything, mock.Anything)
}

func TestSearchService_PartialLocationRejected(t *testing.T) {
	f := newSearchFixture()

	_, err := f.service.Search(context.Background(), entities.SearchCriteria{
		Keyword:  "gangnam",
		Latitude: float64Ptr(37.5),
	}, time.Now())
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCoordinatePair))
}

func TestSearchService_StoreFailureIsRetryable(t *testing.T) {
	f := newSearchFixture()
	f.facilities.On("SearchFiltered", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewCandidateStoreError("failed to query facilities", errors.New("timeout")))

	_, err := f.service.Search(context.Background(), entities.SearchCriteria{Keyword: "gangnam"}, time.Now())
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSearchService_SearchByDistance(t *testing.T) {
	f := newSearchFixture()
	f.facilities.On("SearchFiltered", mock.Anything, mock.Anything).Return([]*entities.Facility{
		facilityAt(1, "Far", 37.5665, 126.9780),
		facilityAt(2, "Near", 37.4980, 127.0277),
	}, nil)

	result, err := f.service.Search(context.Background(), entities.SearchCriteria{
		Keyword:   "restroom",
		Latitude:  float64Ptr(37.4979),
		Longitude: float64Ptr(127.0276),
	}, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "Near", result.Results[0].Name)
	assert.Less(t, *result.Results[0].Distance, *result.Results[1].Distance)
}

func TestSearchService_AutocompleteBlank(t *testing.T) {
	f := newSearchFixture()

	result, err := f.service.Autocomplete(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, result.Suggestions)
	assert.NotNil(t, result.Suggestions)
	f.facilities.AssertNotCalled(t, "FindByNamePrefix", mock.Anything, mock.Anything, mock.Anything)
	f.counter.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSearchService_AutocompleteMissPopulatesCache(t *testing.T) {
	ctx := context.Background()
	f := newSearchFixture()
	f.facilities.On("FindByNamePrefix", mock.Anything, "Gangnam", 8).Return([]*entities.Facility{
		{ID: 1, Name: "Gangnam Station", Rating: float64Ptr(4.5)},
		{ID: 1, Name: "Gangnam Station", Rating: float64Ptr(4.5)},
		{ID: 2, Name: "Gangnam Library"},
	}, nil)
	f.counter.On("Get", mock.Anything, "gangnam").Return(int64(15), nil)

	result, err := f.service.Autocomplete(ctx, "  Gangnam  ")
	require.NoError(t, err)
	assert.Equal(t, "Gangnam", result.Keyword)
	assert.Equal(t, []entities.Suggestion{
		{ID: 1, Name: "Gangnam Station", Rating: 4.5},
		{ID: 2, Name: "Gangnam Library", Rating: 0},
	}, result.Suggestions)

	assert.True(t, f.cache.Has("autocomplete:gangnam"))
	assert.Equal(t, 1800, f.cache.TTL("autocomplete:gangnam"))

	// second call is served from cache
	again, err := f.service.Autocomplete(ctx, "gangnam")
	require.NoError(t, err)
	assert.Equal(t, result.Suggestions, again.Suggestions)
	f.facilities.AssertNumberOfCalls(t, "FindByNamePrefix", 1)
	f.counter.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything)
}

func TestSearchService_AutocompleteCacheDownDegrades(t *testing.T) {
	f := newSearchFixture()
	f.cache.failGet = errors.New("connection refused")
	f.cache.failSet = errors.New("connection refused")
	f.facilities.On("FindByNamePrefix", mock.Anything, "yeoksam", 8).Return([]*entities.Facility{
		{ID: 3, Name: "Yeoksam Library", Rating: float64Ptr(3.9)},
	}, nil)
	f.counter.On("Get", mock.Anything, "yeoksam").Return(int64(0), nil)

	result, err := f.service.Autocomplete(context.Background(), "yeoksam")
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "Yeoksam Library", result.Suggestions[0].Name)
}

func TestSearchService_AutocompleteStoreFailure(t *testing.T) {
	f := newSearchFixture()
	f.facilities.On("FindByNamePrefix", mock.Anything, "x", 8).
		Return(nil, apperrors.NewCandidateStoreError("failed to query facilities", errors.New("timeout")))

	_, err := f.service.Autocomplete(context.Background(), "x")
	assert.True(t, apperrors.IsRetryable(err))
	assert.False(t, f.cache.Has("autocomplete:x"))
}

func TestSearchService_AutocompleteUsesIndexThenFallsBack(t *testing.T) {
	index := new(MockSuggestionRepository)
	f := newSearchFixture(services.WithSuggestionIndex(index), services.WithAutocompleteLimit(5))
	f.counter.On("Get", mock.Anything, mock.Anything).Return(int64(0), nil)

	index.On("FindByNamePrefix", mock.Anything, "seolleung", 5).
		Return([]entities.Suggestion{{ID: 9, Name: "Seolleung Park", Rating: 4.1}}, nil)
	result, err := f.service.Autocomplete(context.Background(), "seolleung")
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Suggestions[0].ID)
	f.facilities.AssertNotCalled(t, "FindByNamePrefix", mock.Anything, mock.Anything, mock.Anything)

	index.On("FindByNamePrefix", mock.Anything, "jamsil", 5).Return(nil, errors.New("typesense down"))
	f.facilities.On("FindByNamePrefix", mock.Anything, "jamsil", 5).
		Return([]*entities.Facility{{ID: 4, Name: "Jamsil Stadium"}}, nil)
	result, err = f.service.Autocomplete(context.Background(), "jamsil")
	require.NoError(t, err)
	assert.Equal(t, "Jamsil Stadium", result.Suggestions[0].Name)
}

func TestSearchService_AutocompleteLimitIsCapped(t *testing.T) {
	f := newSearchFixture(services.WithAutocompleteLimit(50))
	f.counter.On("Get", mock.Anything, mock.Anything).Return(int64(0), nil)
	f.facilities.On("FindByNamePrefix", mock.Anything, "a", 8).Return([]*entities.Facility{}, nil)

	_, err := f.service.Autocomplete(context.Background(), "a")
	require.NoError(t, err)
	f.facilities.AssertExpectations(t)
}

func TestSearchService_TrackKeyword(t *testing.T) {
	f := newSearchFixture()
	f.counter.On("Increment", mock.Anything, "gangnam").Return(int64(1), nil)

	f.service.TrackKeyword(context.Background(), " Gangnam ")
	f.service.TrackKeyword(context.Background(), "   ")

	f.counter.AssertNumberOfCalls(t, "Increment", 1)
}

func TestSearchService_TrackKeywordFailureIsSwallowed(t *testing.T) {
	f := newSearchFixture()
	f.counter.On("Increment", mock.Anything, "gangnam").Return(int64(0), errors.New("redis down"))

	assert.NotPanics(t, func() {
		f.service.TrackKeyword(context.Background(), "gangnam")
	})
}
