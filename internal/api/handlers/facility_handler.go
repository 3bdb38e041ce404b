package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

// FacilitySearcher is the search use case consumed by the handler
type FacilitySearcher interface {
	Search(ctx context.Context, criteria entities.SearchCriteria, now time.Time) (*entities.SearchResult, error)
	Autocomplete(ctx context.Context, keyword string) (*entities.AutocompleteResult, error)
	TrackKeyword(ctx context.Context, keyword string)
}

// trackKeywordTimeout bounds the best-effort popularity increment.
const trackKeywordTimeout = 100 * time.Millisecond

// PageLimits bounds the page size accepted by search
type PageLimits struct {
	DefaultSize int
	MaxSize     int
}

// FacilityHandler handles facility search HTTP requests
type FacilityHandler struct {
	searcher FacilitySearcher
	limits   PageLimits
	now      func() time.Time
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(searcher FacilitySearcher, limits PageLimits) *FacilityHandler {
	return &FacilityHandler{
		searcher: searcher,
		limits:   limits,
		now:      time.Now,
	}
}

type searchResponse struct {
	TotalCount int64                   `json:"totalCount"`
	Page       int                     `json:"page"`
	Size       int                     `json:"size"`
	Results    []entities.RankedResult `json:"results"`
	Skipped    bool                    `json:"skipped,omitempty"`
}

// SearchFacilities handles GET /api/facilities/search
func (h *FacilityHandler) SearchFacilities(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.parseCriteria(r.URL.Query())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.searcher.Search(r.Context(), *criteria, h.now())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if !result.Skipped {
		trackCtx, cancel := context.WithTimeout(r.Context(), trackKeywordTimeout)
		h.searcher.TrackKeyword(trackCtx, criteria.Keyword)
		cancel()
	}

	respondWithJSON(w, http.StatusOK, searchResponse{
		TotalCount: result.TotalCount,
		Page:       criteria.Page,
		Size:       criteria.Size,
		Results:    result.Page(criteria.Page, criteria.Size),
		Skipped:    result.Skipped,
	})
}

// SuggestFacilities handles GET /api/facilities/autocomplete
func (h *FacilityHandler) SuggestFacilities(w http.ResponseWriter, r *http.Request) {
	result, err := h.searcher.Autocomplete(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *FacilityHandler) parseCriteria(query url.Values) (*entities.SearchCriteria, error) {
	criteria := &entities.SearchCriteria{
		Keyword: strings.TrimSpace(query.Get("keyword")),
		Size:    h.limits.DefaultSize,
	}

	var err error
	if criteria.Latitude, err = parseOptionalFloat(query, "lat", -90, 90); err != nil {
		return nil, err
	}
	if criteria.Longitude, err = parseOptionalFloat(query, "lng", -180, 180); err != nil {
		return nil, err
	}
	if criteria.HasPartialLocation() {
		return nil, apperrors.NewInvalidCoordinatePairError()
	}

	if criteria.MinRating, err = parseOptionalFloat(query, "minRating", 0, 5); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		facilityType, err := entities.ParseFacilityType(raw)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		criteria.FacilityType = &facilityType
	}

	for _, value := range query["tags"] {
		criteria.TagNames = append(criteria.TagNames, strings.Split(value, ",")...)
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return nil, apperrors.NewValidationError("page must be a non-negative integer")
		}
		criteria.Page = page
	}

	if raw := query.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return nil, apperrors.NewValidationError("size must be a positive integer")
		}
		if size > h.limits.MaxSize {
			size = h.limits.MaxSize
		}
		criteria.Size = size
	}

	return criteria, nil
}

func parseOptionalFloat(query url.Values, name string, min, max float64) (*float64, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < min || value > max {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be a number between %g and %g", name, min, max))
	}
	return &value, nil
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondWithAppError maps the error taxonomy to HTTP status codes
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: appErr.Message, Code: appErr.Code})
			return
		case apperrors.ErrorTypeNotFound:
			respondWithJSON(w, http.StatusNotFound, errorResponse{Error: appErr.Message, Code: appErr.Code})
			return
		}
	}

	observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	respondWithJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     "internal server error",
		Code:      apperrors.CodeInternal,
		Retryable: apperrors.IsRetryable(err),
	})
}
