package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

type MockFacilitySearcher struct {
	mock.Mock
}

func (m *MockFacilitySearcher) Search(ctx context.Context, criteria entities.SearchCriteria, now time.Time) (*entities.SearchResult, error) {
	args := m.Called(ctx, criteria, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SearchResult), args.Error(1)
}

func (m *MockFacilitySearcher) Autocomplete(ctx context.Context, keyword string) (*entities.AutocompleteResult, error) {
	args := m.Called(ctx, keyword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AutocompleteResult), args.Error(1)
}

func (m *MockFacilitySearcher) TrackKeyword(ctx context.Context, keyword string) {
	m.Called(ctx, keyword)
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestHandler(searcher FacilitySearcher) *FacilityHandler {
	h := NewFacilityHandler(searcher, PageLimits{DefaultSize: 2, MaxSize: 10})
	h.now = func() time.Time { return fixedNow }
	return h
}

func rankedResults(ids ...int64) []entities.RankedResult {
	results := make([]entities.RankedResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, entities.RankedResult{ID: id, Name: "f", Tags: []string{}})
	}
	return results
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSearchFacilities_ParsesCriteriaAndPages(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(c entities.SearchCriteria) bool {
		return c.Keyword == "station" &&
			*c.Latitude == 37.4979 && *c.Longitude == 127.0276 &&
			*c.MinRating == 3.5 &&
			*c.FacilityType == entities.FacilityTypeTransit &&
			assert.ObjectsAreEqual([]string{"24시간", "AVAILABLE_NOW", "wheelchair"}, c.TagNames) &&
			c.Page == 1 && c.Size == 2
	}), fixedNow).Return(&entities.SearchResult{TotalCount: 5, Results: rankedResults(1, 2, 3, 4, 5)}, nil)
	searcher.On("TrackKeyword", mock.Anything, "station").Return()

	req := httptest.NewRequest(http.MethodGet,
		"/api/facilities/search?keyword=+station+&lat=37.4979&lng=127.0276&minRating=3.5&type=transit&tags=24%EC%8B%9C%EA%B0%84,AVAILABLE_NOW&tags=wheelchair&page=1", nil)
	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(5), body["totalCount"])
	assert.Equal(t, float64(1), body["page"])
	results := body["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, float64(3), results[0].(map[string]interface{})["id"])
	assert.NotContains(t, body, "skipped")

	searcher.AssertExpectations(t)
}

func TestSearchFacilities_TrackKeywordIsBounded(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.Anything, fixedNow).Return(&entities.SearchResult{TotalCount: 1, Results: rankedResults(1)}, nil)
	searcher.On("TrackKeyword", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= trackKeywordTimeout
	}), "station").Return()

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/search?keyword=station", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	searcher.AssertExpectations(t)
}

func TestSearchFacilities_SkippedDoesNotTrack(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.Anything, fixedNow).Return(entities.SkippedSearchResult(), nil)

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/search", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["skipped"])
	assert.Empty(t, body["results"])
	searcher.AssertNotCalled(t, "TrackKeyword", mock.Anything, mock.Anything)
}

func TestSearchFacilities_PageOutOfRange(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.Anything, fixedNow).Return(&entities.SearchResult{TotalCount: 1, Results: rankedResults(1)}, nil)
	searcher.On("TrackKeyword", mock.Anything, "x").Return()

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/search?keyword=x&page=9", nil))

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["totalCount"])
	assert.Empty(t, body["results"])
}

func TestSearchFacilities_OversizedPageIsCapped(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(c entities.SearchCriteria) bool {
		return c.Size == 10
	}), fixedNow).Return(&entities.SearchResult{TotalCount: 12, Results: rankedResults(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)}, nil)
	searcher.On("TrackKeyword", mock.Anything, "a").Return()

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/search?keyword=a&size=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(10), body["size"])
	assert.Equal(t, float64(12), body["totalCount"])
	assert.Len(t, body["results"], 10)
	searcher.AssertExpectations(t)
}

func TestSearchFacilities_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		code string
	}{
		{"only latitude", "/api/facilities/search?keyword=a&lat=37.5", apperrors.CodeInvalidCoordinatePair},
		{"only longitude", "/api/facilities/search?keyword=a&lng=127", apperrors.CodeInvalidCoordinatePair},
		{"latitude out of range", "/api/facilities/search?lat=91&lng=0", apperrors.CodeInvalidFilter},
		{"bad rating", "/api/facilities/search?minRating=abc", apperrors.CodeInvalidFilter},
		{"unknown type", "/api/facilities/search?type=SPACESHIP", apperrors.CodeInvalidFilter},
		{"negative page", "/api/facilities/search?keyword=a&page=-1", apperrors.CodeInvalidFilter},
		{"zero size", "/api/facilities/search?keyword=a&size=0", apperrors.CodeInvalidFilter},
		{"non-numeric size", "/api/facilities/search?keyword=a&size=ten", apperrors.CodeInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockFacilitySearcher)
			rec := httptest.NewRecorder()
			newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
			searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearchFacilities_TagNotFound(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.Anything, fixedNow).Return(nil, apperrors.NewTagNotFoundError(nil))

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/search?tags=nope", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeTagNotFound, decodeBody(t, rec)["code"])
}

func TestSearchFacilities_StoreFailure(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Search", mock.Anything, mock.Anything, fixedNow).
		Return(nil, apperrors.NewCandidateStoreError("failed to query facilities", errors.New("timeout")))

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SearchFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/search?keyword=a", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "internal server error", body["error"])
}

func TestSuggestFacilities(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Autocomplete", mock.Anything, "  Gangnam ").Return(&entities.AutocompleteResult{
		Keyword:     "Gangnam",
		Suggestions: []entities.Suggestion{{ID: 1, Name: "Gangnam Station", Rating: 4.5}},
	}, nil)

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SuggestFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/autocomplete?keyword=++Gangnam+", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Gangnam", body["keyword"])
	assert.Len(t, body["suggestions"], 1)
}

func TestSuggestFacilities_Error(t *testing.T) {
	searcher := new(MockFacilitySearcher)
	searcher.On("Autocomplete", mock.Anything, "a").Return(nil, errors.New("boom"))

	rec := httptest.NewRecorder()
	newTestHandler(searcher).SuggestFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/autocomplete?keyword=a", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeBody(t, rec), "retryable")
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	healthy.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	degraded := NewHealthHandler(map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	rec = httptest.NewRecorder()
	degraded.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
}
