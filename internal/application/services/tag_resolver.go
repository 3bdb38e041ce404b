package services

import (
	"context"
	"strings"

	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/domain/repositories"
	"github.com/zatekoja/facilitysearch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilitysearch/pkg/errors"
)

// TagFilter is the resolved form of the requested tag names
type TagFilter struct {
	IDs              []int64
	RequireAvailable bool
}

// TagResolver turns requested tag names into persisted tag ids
type TagResolver struct {
	tags repositories.TagRepository
}

// NewTagResolver creates a new tag resolver
func NewTagResolver(tags repositories.TagRepository) *TagResolver {
	return &TagResolver{tags: tags}
}

// NormalizeTagNames trims names and drops blanks and exact duplicates,
// keeping first-seen order. Case is preserved.
func NormalizeTagNames(raw []string) []string {
	names := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// SplitAvailableTag removes the virtual available tag, matched
// case-insensitively, and reports whether it was present.
func SplitAvailableTag(names []string) ([]string, bool) {
	persisted := make([]string, 0, len(names))
	requireAvailable := false
	for _, name := range names {
		if strings.EqualFold(name, entities.AvailableNowTag) {
			requireAvailable = true
			continue
		}
		persisted = append(persisted, name)
	}
	return persisted, requireAvailable
}

// Resolve normalizes raw names, extracts the virtual tag and resolves the rest
func (r *TagResolver) Resolve(ctx context.Context, raw []string) (*TagFilter, error) {
	persisted, requireAvailable := SplitAvailableTag(NormalizeTagNames(raw))

	ids, err := r.ResolveIDs(ctx, persisted)
	if err != nil {
		return nil, err
	}

	return &TagFilter{IDs: ids, RequireAvailable: requireAvailable}, nil
}

// ResolveIDs looks up exact tag names. Every name must resolve.
func (r *TagResolver) ResolveIDs(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return []int64{}, nil
	}

	ids, err := r.tags.FindIDsByNames(ctx, names)
	if err != nil {
		return nil, err
	}

	if len(ids) != len(names) {
		observability.LoggerFromContext(ctx).Debug().
			Strs("requested", names).
			Int("resolved", len(ids)).
			Msg("tag filter did not fully resolve")
		return nil, apperrors.NewTagNotFoundError(nil)
	}

	return ids, nil
}
