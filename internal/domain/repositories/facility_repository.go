package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/facilitysearch/internal/domain/entities"
)

// FacilityRepository is the candidate store consulted by search.
type FacilityRepository interface {
	// SearchFiltered returns every active facility matching the hard filters.
	// Every tag in TagIDs must be attached (ALL semantics, not ANY).
	SearchFiltered(ctx context.Context, filter CandidateFilter) ([]*entities.Facility, error)

	// FindByNamePrefix returns facilities whose name contains the keyword,
	// ordered by rating descending, capped at limit.
	FindByNamePrefix(ctx context.Context, keyword string, limit int) ([]*entities.Facility, error)

	// ListForIndexing pages through all active facilities.
	ListForIndexing(ctx context.Context, afterID int64, limit int) ([]*entities.Facility, error)
}

// SuggestionRepository serves autocomplete candidates from a search index.
type SuggestionRepository interface {
	FindByNamePrefix(ctx context.Context, keyword string, limit int) ([]entities.Suggestion, error)
}

// TagRepository resolves tag names to persisted tag ids.
type TagRepository interface {
	// FindIDsByNames returns the ids of the tags whose name exactly matches
	// one of names. Order is not guaranteed.
	FindIDsByNames(ctx context.Context, names []string) ([]int64, error)
}

// CandidateFilter is the hard-filter set pushed down to the candidate store.
type CandidateFilter struct {
	Keyword          string
	MinRating        *float64
	FacilityType     *entities.FacilityType
	TagIDs           []int64
	RequiredTagCount int
	RequireAvailable bool
	Now              time.Time
	// Location is the operating timezone used for the open-now filter.
	Location *time.Location
}
