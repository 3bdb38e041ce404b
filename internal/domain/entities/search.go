package entities

// AvailableNowTag is the reserved virtual tag meaning "must currently be
// open". It is matched case-insensitively and never persisted.
const AvailableNowTag = "AVAILABLE_NOW"

// SearchCriteria is the validated input of a full search.
type SearchCriteria struct {
	Keyword      string
	Latitude     *float64
	Longitude    *float64
	MinRating    *float64
	FacilityType *FacilityType
	TagNames     []string
	Page         int
	Size         int
}

// HasLocation reports whether the requester supplied coordinates.
func (c *SearchCriteria) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// HasPartialLocation reports the invalid one-coordinate case.
func (c *SearchCriteria) HasPartialLocation() bool {
	return (c.Latitude == nil) != (c.Longitude == nil)
}

// RankedResult is the facility projection returned by search.
type RankedResult struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Address       string   `json:"address"`
	Rating        float64  `json:"rating"`
	Distance      *int64   `json:"distance"`
	Tags          []string `json:"tags"`
	IsPartnership bool     `json:"isPartnership"`
}

// SearchResult carries the fully ranked list and its unpaged size.
//
// Skipped marks a query with no keyword and no filters; the candidate store
// was not consulted. It is distinct from a search with zero matches.
type SearchResult struct {
	TotalCount int64          `json:"totalCount"`
	Results    []RankedResult `json:"results"`
	Skipped    bool           `json:"skipped,omitempty"`
}

// SkippedSearchResult returns the no-op marker.
func SkippedSearchResult() *SearchResult {
	return &SearchResult{Results: []RankedResult{}, Skipped: true}
}

// Page slices the ranked list. Out-of-range pages are empty.
func (r *SearchResult) Page(page, size int) []RankedResult {
	if page < 0 || size <= 0 {
		return []RankedResult{}
	}
	start := page * size
	if start >= len(r.Results) {
		return []RankedResult{}
	}
	end := start + size
	if end > len(r.Results) {
		end = len(r.Results)
	}
	return r.Results[start:end]
}

// Suggestion is the lightweight projection used for autocomplete.
type Suggestion struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// AutocompleteResult is returned by autocomplete.
type AutocompleteResult struct {
	Keyword     string       `json:"keyword"`
	Suggestions []Suggestion `json:"suggestions"`
}
