// Package geo provides great-circle distance and bounding-box helpers
// for decimal-degree coordinates.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// Mean Earth radius in kilometers.
const earthRadiusKm = 6371.0088

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * earthRadiusKm
}

// BoundingBox returns an approximate degree-space box enclosing the
// radius around a point. It is a cheap SQL prefilter; callers still do
// the exact distance check on the candidates.
func BoundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusKm / 111.0
	// Longitude degrees shrink with latitude; clamp the divisor away
	// from zero so polar boxes stay finite.
	lonDelta := radiusKm / (111.0 * math.Max(0.2, math.Cos(lat*math.Pi/180)))
	return lat - latDelta, lat + latDelta, lon - lonDelta, lon + lonDelta
}

// Clamp01 clamps v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
