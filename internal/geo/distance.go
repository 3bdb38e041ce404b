// Package geo holds the pure distance and opening-hours helpers used by
// search ranking.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000.0

// MaxDistanceMeters is returned when the target has no usable location so
// that such facilities sort last under distance ordering.
const MaxDistanceMeters int64 = math.MaxInt64

// DistanceMeters returns the haversine distance between the origin and the
// target, rounded to whole meters. A nil target coordinate yields
// MaxDistanceMeters.
func DistanceMeters(lat1, lng1 float64, lat2, lng2 *float64) int64 {
	if lat2 == nil || lng2 == nil {
		return MaxDistanceMeters
	}
	return int64(math.Round(haversine(lat1, lng1, *lat2, *lng2)))
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
