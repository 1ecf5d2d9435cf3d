// Package geo holds the pure distance math behind place deduplication.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance between two
// WGS84 coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// RadiusTable maps a place category to its dedup radius in meters. A radius
// of 0 disables dedup for the category (lodging: two hotels 10 m apart are
// still distinct stays).
type RadiusTable map[string]float64

// DefaultRadii is the built-in category radius table.
func DefaultRadii() RadiusTable {
	return RadiusTable{
		"scenic":        200,
		"cultural":      200,
		"food":          50,
		"shopping":      50,
		"activity":      100,
		"entertainment": 100,
		"lodging":       0,
	}
}

// fallbackRadius applies to categories absent from the table.
const fallbackRadius = 100.0

// For returns the dedup radius for a category.
func (t RadiusTable) For(category string) float64 {
	if r, ok := t[category]; ok {
		return r
	}
	return fallbackRadius
}

// WithinRadius reports whether two coordinates fall within radius meters of
// each other. Always false for radius <= 0.
func WithinRadius(lat1, lng1, lat2, lng2, radius float64) bool {
	if radius <= 0 {
		return false
	}
	return DistanceMeters(lat1, lng1, lat2, lng2) <= radius
}
