package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/facilitysearch/internal/geo"
)

// FacilityType classifies a facility for the type filter.
type FacilityType string

const (
	FacilityTypePublic     FacilityType = "PUBLIC"
	FacilityTypeCommercial FacilityType = "COMMERCIAL"
	FacilityTypeTransit    FacilityType = "TRANSIT"
	FacilityTypePartner    FacilityType = "PARTNER"
	FacilityTypeOther      FacilityType = "OTHER"
)

var facilityTypes = map[FacilityType]struct{}{
	FacilityTypePublic:     {},
	FacilityTypeCommercial: {},
	FacilityTypeTransit:    {},
	FacilityTypePartner:    {},
	FacilityTypeOther:      {},
}

// ParseFacilityType validates a type filter value, case-insensitively.
func ParseFacilityType(value string) (FacilityType, error) {
	t := FacilityType(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := facilityTypes[t]; !ok {
		return "", fmt.Errorf("unknown facility type %q", value)
	}
	return t, nil
}

// Facility is the read-only facility record produced by the candidate store.
type Facility struct {
	ID            int64        `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	Latitude      *float64     `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64     `json:"longitude,omitempty" db:"longitude"`
	Address       string       `json:"address" db:"address"`
	Floor         string       `json:"floor,omitempty" db:"floor"`
	Rating        *float64     `json:"rating,omitempty" db:"avg_rating"`
	IsPartnership bool         `json:"is_partnership" db:"is_partnership"`
	FacilityType  FacilityType `json:"facility_type" db:"facility_type"`
	Hours         OpenHours    `json:"hours" db:"-"`
	Tags          []Tag        `json:"tags,omitempty" db:"-"`
	IsActive      bool         `json:"is_active" db:"is_active"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// OpenHours is either always open or an open/close wall-clock pair.
type OpenHours struct {
	AlwaysOpen bool           `json:"always_open"`
	Open       *geo.TimeOfDay `json:"open,omitempty"`
	Close      *geo.TimeOfDay `json:"close,omitempty"`
}

// Tag is a persisted tag attached to a facility.
type Tag struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// HasLocation reports whether both coordinates are present. A facility with
// only one coordinate is treated as having no location.
func (f *Facility) HasLocation() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// RatingOrZero returns the average rating, defaulting to 0.
func (f *Facility) RatingOrZero() float64 {
	if f.Rating == nil {
		return 0.0
	}
	return *f.Rating
}

// IsOpenAt evaluates the open window against a wall-clock time.
func (f *Facility) IsOpenAt(now geo.TimeOfDay) bool {
	return geo.IsOpenNow(f.Hours.AlwaysOpen, f.Hours.Open, f.Hours.Close, now)
}

// TagNames lists the persisted tag names in attachment order.
func (f *Facility) TagNames() []string {
	names := make([]string, 0, len(f.Tags)+1)
	for _, tag := range f.Tags {
		names = append(names, tag.Name)
	}
	return names
}
