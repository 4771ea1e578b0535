package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileRadiusLadder(t *testing.T) {
	assert.InDelta(t, 700, TileRadiusFor(1000), 1e-9)
	assert.InDelta(t, 700, TileRadiusFor(3000), 1e-9)
	assert.InDelta(t, 1200, TileRadiusFor(5000), 1e-9)
	assert.InDelta(t, 1200, TileRadiusFor(8000), 1e-9)
	assert.InDelta(t, 1800, TileRadiusFor(15000), 1e-9)
	assert.InDelta(t, 1800, TileRadiusFor(20000), 1e-9)
	assert.InDelta(t, 2500, TileRadiusFor(40000), 1e-9)
}

func TestGenerateTilesOriginFirst(t *testing.T) {
	tiles := GenerateTiles(45.5152, -122.6784, 5000, 1200)
	require.NotEmpty(t, tiles)

	assert.InDelta(t, 45.5152, tiles[0].Lat, 1e-5)
	assert.InDelta(t, -122.6784, tiles[0].Lng, 1e-5)
	assert.InDelta(t, 1200, tiles[0].RadiusMeters, 1e-9)
}

func TestGenerateTilesUniqueCenters(t *testing.T) {
	tiles := GenerateTiles(45.5152, -122.6784, 5000, 1200)

	seen := map[[2]float64]bool{}
	for _, tile := range tiles {
		key := [2]float64{tile.Lat, tile.Lng}
		assert.False(t, seen[key], "duplicate tile center %v", key)
		seen[key] = true
	}
}

func TestGenerateTilesWithinReach(t *testing.T) {
	const radius, tileRadius = 5000.0, 1200.0
	tiles := GenerateTiles(45.5152, -122.6784, radius, tileRadius)

	for _, tile := range tiles {
		d := HaversineMeters(45.5152, -122.6784, tile.Lat, tile.Lng)
		assert.LessOrEqual(t, d, radius+tileRadius+1.0)
	}
}

func TestGenerateTilesCoverageDensity(t *testing.T) {
	tiles := GenerateTiles(45.5152, -122.6784, 5000, 1200)
	// A 5km circle with 1.2km tiles needs a few dozen tiles.
	assert.GreaterOrEqual(t, len(tiles), 25)
	assert.LessOrEqual(t, len(tiles), 45)
}

func TestGenerateTilesTinyRadius(t *testing.T) {
	tiles := GenerateTiles(45.5152, -122.6784, 500, 700)
	require.NotEmpty(t, tiles)
	// Origin plus at most a handful of neighbors.
	assert.LessOrEqual(t, len(tiles), 5)
}

func TestGenerateTilesInvalidInput(t *testing.T) {
	assert.Nil(t, GenerateTiles(45.5, -122.6, 0, 700))
	assert.Nil(t, GenerateTiles(45.5, -122.6, 5000, 0))
	assert.Nil(t, GenerateTiles(45.5, -122.6, -100, 700))
}
