package geo

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a local wall-clock time expressed as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS", the forms Postgres returns
// for TIME columns.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", value)
}

// TimeOfDayAt converts an instant to the wall-clock time in loc.
func TimeOfDayAt(now time.Time, loc *time.Location) TimeOfDay {
	if loc != nil {
		now = now.In(loc)
	}
	return TimeOfDay(now.Hour()*3600 + now.Minute()*60 + now.Second())
}

// String renders the value as HH:MM:SS.
func (t TimeOfDay) String() string {
	s := int(t) % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// IsOpenNow reports whether now falls inside the open window.
//
// An equal open and close time is a degenerate window and counts as closed.
// When open is after close the window spans midnight.
func IsOpenNow(alwaysOpen bool, open, close *TimeOfDay, now TimeOfDay) bool {
	if alwaysOpen {
		return true
	}
	if open == nil || close == nil {
		return false
	}

	switch {
	case *open == *close:
		return false
	case *open < *close:
		return *open <= now && now < *close
	default:
		return now >= *open || now < *close
	}
}
