package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/providers"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

const suggestionKeyPrefix = "autocomplete:"

// Suggestion TTL tiers, in seconds
const (
	SuggestionTTLHot  = 3600
	SuggestionTTLWarm = 1800
	SuggestionTTLCold = 300

	hotKeywordThreshold  = 50
	warmKeywordThreshold = 10
)

// SuggestionCache owns the key and TTL policy of cached autocomplete lists
type SuggestionCache struct {
	cache      providers.CacheProvider
	popularity providers.PopularityCounter
	metrics    *observability.Metrics
}

// NewSuggestionCache creates a new suggestion cache. A nil cache always
// misses and drops writes. popularity and metrics may be nil.
func NewSuggestionCache(cache providers.CacheProvider, popularity providers.PopularityCounter, metrics *observability.Metrics) *SuggestionCache {
	return &SuggestionCache{
		cache:      cache,
		popularity: popularity,
		metrics:    metrics,
	}
}

// SuggestionCacheKey derives the cache key for a keyword
func SuggestionCacheKey(keyword string) string {
	return suggestionKeyPrefix + strings.ToLower(strings.TrimSpace(keyword))
}

// Lookup returns the cached suggestions and whether there was a usable hit.
// Store failures are returned as CacheUnavailable; a payload that is not a
// suggestion list is a miss.
func (c *SuggestionCache) Lookup(ctx context.Context, keyword string) ([]entities.Suggestion, bool, error) {
	if c.cache == nil {
		return nil, false, nil
	}
	key := SuggestionCacheKey(keyword)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, providers.ErrCacheMiss) {
			observability.RecordSuggestionCache(ctx, c.metrics, false)
			return nil, false, nil
		}
		observability.RecordCacheError(ctx, c.metrics, "get")
		return nil, false, apperrors.NewCacheUnavailableError("get", err)
	}

	suggestions, ok := decodeSuggestions(data)
	if !ok {
		observability.LoggerFromContext(ctx).Debug().Str("key", key).Msg("ignoring non-list suggestion payload")
		observability.RecordSuggestionCache(ctx, c.metrics, false)
		return nil, false, nil
	}

	observability.RecordSuggestionCache(ctx, c.metrics, true)
	return suggestions, true, nil
}

// Store writes suggestions under the keyword's key
func (c *SuggestionCache) Store(ctx context.Context, keyword string, suggestions []entities.Suggestion, ttlSeconds int) error {
	if c.cache == nil {
		return nil
	}
	if suggestions == nil {
		suggestions = []entities.Suggestion{}
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return apperrors.NewInternalError("failed to encode suggestions", err)
	}

	if err := c.cache.Set(ctx, SuggestionCacheKey(keyword), data, ttlSeconds); err != nil {
		observability.RecordCacheError(ctx, c.metrics, "set")
		return apperrors.NewCacheUnavailableError("set", err)
	}
	return nil
}

// ComputeTTL picks the TTL tier from the keyword's search count. Counter
// failures count as zero.
func (c *SuggestionCache) ComputeTTL(ctx context.Context, keyword string) int {
	var count int64
	if c.popularity != nil {
		n, err := c.popularity.Get(ctx, strings.ToLower(keyword))
		if err != nil {
			observability.RecordCacheError(ctx, c.metrics, "popularity_get")
		} else {
			count = n
		}
	}
	return TTLForCount(count)
}

// TTLForCount maps a popularity count to a TTL tier
func TTLForCount(count int64) int {
	switch {
	case count >= hotKeywordThreshold:
		return SuggestionTTLHot
	case count >= warmKeywordThreshold:
		return SuggestionTTLWarm
	default:
		return SuggestionTTLCold
	}
}

func decodeSuggestions(data []byte) ([]entities.Suggestion, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()

	var suggestions []entities.Suggestion
	if err := decoder.Decode(&suggestions); err != nil {
		return nil, false
	}
	for _, s := range suggestions {
		if s.ID <= 0 || s.Name == "" {
			return nil, false
		}
	}
	return suggestions, true
}
