package geo

import "math"

// Tile is one circular sub-region of a larger search radius. Tiles are
// generated once per run and consumed read-only.
type Tile struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// TileRadiusFor picks a tile radius for the total search radius. Small
// searches get dense coverage; large ones trade density for a bounded
// number of API calls.
func TileRadiusFor(radiusMeters float64) float64 {
	switch {
	case radiusMeters <= 3000:
		return 700
	case radiusMeters <= 8000:
		return 1200
	case radiusMeters <= 20000:
		return 1800
	default:
		return 2500
	}
}

// GenerateTiles lays a square grid over the bounding box of the search
// circle with step 1.6x the tile radius, keeping tiles whose center lies
// within radius+tileRadius of the origin. The origin tile is always first
// and centers are unique at 5-decimal rounding.
func GenerateTiles(centerLat, centerLng, radiusMeters, tileRadiusMeters float64) []Tile {
	if radiusMeters <= 0 || tileRadiusMeters <= 0 {
		return nil
	}

	origin := Tile{Lat: round5(centerLat), Lng: round5(centerLng), RadiusMeters: tileRadiusMeters}
	tiles := []Tile{origin}
	seen := map[[2]float64]bool{{origin.Lat, origin.Lng}: true}

	stepMeters := 1.6 * tileRadiusMeters
	latStep := stepMeters / metersPerDegreeLat
	cosLat := math.Cos(centerLat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngStep := latStep / cosLat

	latSpan := radiusMeters / metersPerDegreeLat
	lngSpan := radiusMeters / (metersPerDegreeLat * cosLat)

	for lat := centerLat - latSpan; lat <= centerLat+latSpan+1e-9; lat += latStep {
		for lng := centerLng - lngSpan; lng <= centerLng+lngSpan+1e-9; lng += lngStep {
			if HaversineMeters(centerLat, centerLng, lat, lng) > radiusMeters+tileRadiusMeters {
				continue
			}
			key := [2]float64{round5(lat), round5(lng)}
			if seen[key] {
				continue
			}
			seen[key] = true
			tiles = append(tiles, Tile{Lat: key[0], Lng: key[1], RadiusMeters: tileRadiusMeters})
		}
	}

	return tiles
}

func round5(f float64) float64 {
	return math.Round(f*1e5) / 1e5
}
