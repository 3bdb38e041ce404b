package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zatekoja/facilitysearch/internal/domain/entities"
	"github.com/zatekoja/facilitysearch/internal/geo"
)

// RankingEngine orders a candidate set by distance or by rating
type RankingEngine struct {
	location *time.Location
}

// NewRankingEngine creates a ranking engine evaluating hours in loc
func NewRankingEngine(loc *time.Location) *RankingEngine {
	if loc == nil {
		loc = time.UTC
	}
	return &RankingEngine{location: loc}
}

type rankedCandidate struct {
	result   entities.RankedResult
	distance int64
}

// Rank projects and sorts every candidate. Nothing is truncated.
//
// With requester coordinates the order is ascending distance, stable for
// ties, and facilities without a location sort last. Otherwise the order is
// descending rating, then ascending name with empty names last.
//
// A nil candidate or one without an id is a caller bug and panics.
func (e *RankingEngine) Rank(candidates []*entities.Facility, criteria *entities.SearchCriteria, now time.Time) []entities.RankedResult {
	nowOfDay := geo.TimeOfDayAt(now, e.location)
	byDistance := criteria != nil && criteria.HasLocation()

	ranked := make([]rankedCandidate, 0, len(candidates))
	for i, facility := range candidates {
		if facility == nil || facility.ID <= 0 {
			panic(fmt.Sprintf("ranking: malformed candidate at index %d", i))
		}

		candidate := rankedCandidate{result: project(facility, facility.IsOpenAt(nowOfDay))}
		if byDistance {
			candidate.distance = distanceTo(criteria, facility)
			if candidate.distance != geo.MaxDistanceMeters {
				d := candidate.distance
				candidate.result.Distance = &d
			}
		}
		ranked = append(ranked, candidate)
	}

	if byDistance {
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].distance < ranked[j].distance
		})
	} else {
		sort.SliceStable(ranked, func(i, j int) bool {
			return byRatingThenName(ranked[i].result, ranked[j].result)
		})
	}

	results := make([]entities.RankedResult, len(ranked))
	for i := range ranked {
		results[i] = ranked[i].result
	}
	return results
}

func project(facility *entities.Facility, open bool) entities.RankedResult {
	// The availability tag is only ever computed; a stored tag of that name is dropped.
	tags := make([]string, 0, len(facility.Tags)+1)
	for _, name := range facility.TagNames() {
		if !strings.EqualFold(name, entities.AvailableNowTag) {
			tags = append(tags, name)
		}
	}
	if open {
		tags = append(tags, entities.AvailableNowTag)
	}

	result := entities.RankedResult{
		ID:            facility.ID,
		Name:          facility.Name,
		Address:       facility.Address,
		Rating:        facility.RatingOrZero(),
		Tags:          tags,
		IsPartnership: facility.IsPartnership,
	}
	if facility.HasLocation() {
		result.Latitude = facility.Latitude
		result.Longitude = facility.Longitude
	}
	return result
}

func distanceTo(criteria *entities.SearchCriteria, facility *entities.Facility) int64 {
	if !facility.HasLocation() {
		return geo.MaxDistanceMeters
	}
	return geo.DistanceMeters(*criteria.Latitude, *criteria.Longitude, facility.Latitude, facility.Longitude)
}

func byRatingThenName(a, b entities.RankedResult) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.Name == "" || b.Name == "" {
		return b.Name == "" && a.Name != ""
	}
	return a.Name < b.Name
}
