// Package geo provides great-circle distance math and tile-grid generation
// for paging radius-bounded place searches.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius in miles.
const EarthRadiusMiles = 3958.8

// EarthRadiusMeters is the mean Earth radius in meters.
const EarthRadiusMeters = 6371000.0

// metersPerDegreeLat approximates the north-south length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// MetersPerMile converts statute miles to meters.
const MetersPerMile = 1609.344

// HaversineMiles returns the great-circle distance between two points in miles.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	return haversine(lat1, lng1, lat2, lng2, EarthRadiusMiles)
}

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return haversine(lat1, lng1, lat2, lng2, EarthRadiusMeters)
}

func haversine(lat1, lng1, lat2, lng2, radius float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return radius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
