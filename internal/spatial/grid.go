package spatial

import "math"

// CellKey identifies one grid cell in the approximate meter grid.
type CellKey struct {
	Row int
	Col int
}

// GridCellKey maps a coordinate to its grid cell for the given cell size in
// meters. Latitude and longitude are both converted with the meters-per-degree
// latitude approximation; the longitude error is acceptable at the zoom
// levels served.
func GridCellKey(lat, lng, gridSizeMeters float64) CellKey {
	return CellKey{
		Row: int(math.Round(lat * MetersPerDegree / gridSizeMeters)),
		Col: int(math.Round(lng * MetersPerDegree / gridSizeMeters)),
	}
}

// GridSizeForZoom returns the grid cell size in meters for a map zoom level.
// Finer grids at higher zoom keep the rendered cluster density consistent;
// the step table is part of the client contract and must not drift.
func GridSizeForZoom(zoom int) float64 {
	switch {
	case zoom >= 15:
		return 50
	case zoom >= 12:
		return 200
	case zoom >= 10:
		return 500
	case zoom >= 8:
		return 1000
	default:
		return 2000
	}
}
