package geo

import "math"

// MaxMercatorLat is the latitude limit of the Web Mercator projection.
const MaxMercatorLat = 85.05112878

// MaxTileZoom is the deepest zoom level accepted for tiles.
const MaxTileZoom = 22

// ClampMercatorLat limits lat to the Web Mercator range.
func ClampMercatorLat(lat float64) float64 {
	if lat > MaxMercatorLat {
		return MaxMercatorLat
	} else if lat < -MaxMercatorLat {
		return -MaxMercatorLat
	}

	return lat
}

// TileCount returns the number of tiles along one axis at zoom z.
func TileCount(z int) int {
	return 1 << z
}

// ValidTile reports whether z/x/y addresses an existing slippy map tile.
func ValidTile(z, x, y int) bool {
	if z < 0 || z > MaxTileZoom {
		return false
	}
	n := TileCount(z)

	return x >= 0 && x < n && y >= 0 && y < n
}

// LatLonToTile returns the tile containing c at zoom z.
func LatLonToTile(c Coordinate, z int) (x, y int) {
	n := float64(TileCount(z))
	latRad := ClampMercatorLat(c.Lat) * math.Pi / 180.0

	fx := (c.Lon + 180.0) / 360.0 * n
	fy := (1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n

	maxIdx := TileCount(z) - 1
	x = clampInt(int(math.Floor(fx)), 0, maxIdx)
	y = clampInt(int(math.Floor(fy)), 0, maxIdx)

	return x, y
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
