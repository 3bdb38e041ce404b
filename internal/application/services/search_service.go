package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

// DefaultAutocompleteLimit caps the suggestions returned per keyword
const DefaultAutocompleteLimit = 8

// SearchService answers full searches and autocomplete queries
type SearchService struct {
	facilities        repositories.FacilityRepository
	suggestionIndex   repositories.SuggestionRepository
	tags              *TagResolver
	ranking           *RankingEngine
	cache             *SuggestionCache
	popularity        providers.PopularityCounter
	location          *time.Location
	autocompleteLimit int
	metrics           *observability.Metrics
}

// SearchServiceOption configures optional collaborators
type SearchServiceOption func(*SearchService)

// WithSuggestionIndex serves autocomplete misses from a search index,
// falling back to the candidate store when the index fails.
func WithSuggestionIndex(index repositories.SuggestionRepository) SearchServiceOption {
	return func(s *SearchService) { s.suggestionIndex = index }
}

// WithPopularityCounter enables keyword tracking
func WithPopularityCounter(counter providers.PopularityCounter) SearchServiceOption {
	return func(s *SearchService) { s.popularity = counter }
}

// WithAutocompleteLimit overrides the suggestion cap. Values outside
// 1..DefaultAutocompleteLimit are ignored.
func WithAutocompleteLimit(limit int) SearchServiceOption {
	return func(s *SearchService) {
		if limit > 0 && limit <= DefaultAutocompleteLimit {
			s.autocompleteLimit = limit
		}
	}
}

// WithMetrics records search metrics
func WithMetrics(metrics *observability.Metrics) SearchServiceOption {
	return func(s *SearchService) { s.metrics = metrics }
}

// NewSearchService creates a new search service. loc is the operating
// timezone for open-now evaluation.
func NewSearchService(
	facilities repositories.FacilityRepository,
	tags *TagResolver,
	cache *SuggestionCache,
	loc *time.Location,
	opts ...SearchServiceOption,
) *SearchService {
	if loc == nil {
		loc = time.UTC
	}
	s := &SearchService{
		facilities:        facilities,
		tags:              tags,
		ranking:           NewRankingEngine(loc),
		cache:             cache,
		location:          loc,
		autocompleteLimit: DefaultAutocompleteLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the fully ranked candidate set. A query with no keyword
// and no filters returns the skipped marker without touching the store.
func (s *SearchService) Search(ctx context.Context, criteria entities.SearchCriteria, now time.Time) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	criteria.Keyword = strings.TrimSpace(criteria.Keyword)
	criteria.TagNames = NormalizeTagNames(criteria.TagNames)

	if criteria.HasPartialLocation() {
		return nil, apperrors.NewInvalidCoordinatePairError()
	}

	if isNoOp(&criteria) {
		observability.SetSpanAttributes(span, attribute.Bool("search.skipped", true))
		return entities.SkippedSearchResult(), nil
	}

	tagFilter, err := s.tags.Resolve(ctx, criteria.TagNames)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	filter := repositories.CandidateFilter{
		Keyword:          criteria.Keyword,
		MinRating:        criteria.MinRating,
		FacilityType:     criteria.FacilityType,
		TagIDs:           tagFilter.IDs,
		RequiredTagCount: len(tagFilter.IDs),
		RequireAvailable: tagFilter.RequireAvailable,
		Now:              now,
		Location:         s.location,
	}

	candidates, err := s.facilities.SearchFiltered(ctx, filter)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordCandidateCount(ctx, s.metrics, len(candidates))

	results := s.ranking.Rank(candidates, &criteria, now)

	observability.SetSpanAttributes(span,
		attribute.String("search.keyword", criteria.Keyword),
		attribute.Bool("search.by_distance", criteria.HasLocation()),
		attribute.Bool("search.require_available", tagFilter.RequireAvailable),
		attribute.Int("search.tag_count", len(tagFilter.IDs)),
		attribute.Int("search.result_count", len(results)),
	)

	return &entities.SearchResult{
		TotalCount: int64(len(results)),
		Results:    results,
	}, nil
}

// Autocomplete returns up to the configured limit of suggestions. Cache
// failures degrade to a direct lookup and are never returned.
func (s *SearchService) Autocomplete(ctx context.Context, keyword string) (*entities.AutocompleteResult, error) {
	ctx, span := observability.StartSpan(ctx, "SearchService.Autocomplete")
	defer span.End()

	keyword = strings.TrimSpace(keyword)
	result := &entities.AutocompleteResult{Keyword: keyword, Suggestions: []entities.Suggestion{}}
	if keyword == "" {
		return result, nil
	}

	logger := observability.LoggerFromContext(ctx)

	cached, hit, err := s.cache.Lookup(ctx, keyword)
	if err != nil {
		logger.Warn().Err(err).Str("keyword", keyword).Msg("suggestion cache lookup failed")
	}
	if hit {
		observability.SetSpanAttributes(span, attribute.Bool("autocomplete.cache_hit", true))
		result.Suggestions = cached
		return result, nil
	}

	suggestions, err := s.findSuggestions(ctx, keyword)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	ttl := s.cache.ComputeTTL(ctx, keyword)
	if err := s.cache.Store(ctx, keyword, suggestions, ttl); err != nil {
		logger.Warn().Err(err).Str("keyword", keyword).Msg("suggestion cache store failed")
	}

	observability.SetSpanAttributes(span,
		attribute.Bool("autocomplete.cache_hit", false),
		attribute.Int("autocomplete.ttl_seconds", ttl),
		attribute.Int("autocomplete.result_count", len(suggestions)),
	)

	result.Suggestions = suggestions
	return result, nil
}

// TrackKeyword bumps the keyword's popularity count. Failures are logged.
func (s *SearchService) TrackKeyword(ctx context.Context, keyword string) {
	keyword = strings.TrimSpace(keyword)
	if s.popularity == nil || keyword == "" {
		return
	}
	if _, err := s.popularity.Increment(ctx, strings.ToLower(keyword)); err != nil {
		observability.RecordCacheError(ctx, s.metrics, "popularity_incr")
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("keyword", keyword).Msg("failed to track keyword popularity")
	}
}

func (s *SearchService) findSuggestions(ctx context.Context, keyword string) ([]entities.Suggestion, error) {
	if s.suggestionIndex != nil {
		suggestions, err := s.suggestionIndex.FindByNamePrefix(ctx, keyword, s.autocompleteLimit)
		if err == nil {
			return capSuggestions(suggestions, s.autocompleteLimit), nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("suggestion index unavailable, falling back to database")
	}

	facilities, err := s.facilities.FindByNamePrefix(ctx, keyword, s.autocompleteLimit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]entities.Suggestion, 0, len(facilities))
	for _, f := range facilities {
		suggestions = append(suggestions, entities.Suggestion{ID: f.ID, Name: f.Name, Rating: f.RatingOrZero()})
	}
	return capSuggestions(suggestions, s.autocompleteLimit), nil
}

// capSuggestions drops repeated ids and truncates to limit
func capSuggestions(suggestions []entities.Suggestion, limit int) []entities.Suggestion {
	out := make([]entities.Suggestion, 0, len(suggestions))
	seen := make(map[int64]struct{}, len(suggestions))
	for _, suggestion := range suggestions {
		if len(out) == limit {
			break
		}
		if _, dup := seen[suggestion.ID]; dup {
			continue
		}
		seen[suggestion.ID] = struct{}{}
		out = append(out, suggestion)
	}
	return out
}

// isNoOp reports a query without keyword or filters. Coordinates order
// results but do not filter them.
func isNoOp(criteria *entities.SearchCriteria) bool {
	return criteria.Keyword == "" &&
		criteria.MinRating == nil &&
		criteria.FacilityType == nil &&
		len(criteria.TagNames) == 0
}
