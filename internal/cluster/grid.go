package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tacit7/poi-markers/internal/models"
	"github.com/tacit7/poi-markers/internal/spatial"
)

// ErrMissingCoordinates is returned when a POI carries an unusable position.
var ErrMissingCoordinates = errors.New("poi has no usable coordinates")

// GridCluster groups POIs by approximate meter grid cell. Cells holding at
// least minClusterSize POIs become one CLUSTER marker at the cell centroid;
// smaller cells emit their POIs as SINGLE markers. Output is ordered by
// descending count with the cell key as tiebreak, so repeated runs over the
// same input produce the same marker sequence.
func GridCluster(pois []models.POI, gridSizeMeters float64, minClusterSize int) ([]models.Marker, error) {
	if gridSizeMeters <= 0 {
		return nil, fmt.Errorf("invalid grid size %v", gridSizeMeters)
	}
	if minClusterSize < 1 {
		minClusterSize = 1
	}

	cells := make(map[spatial.CellKey][]models.POI)
	for _, p := range pois {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
			return nil, fmt.Errorf("poi %s: %w", p.ID, ErrMissingCoordinates)
		}
		key := spatial.GridCellKey(p.Lat, p.Lng, gridSizeMeters)
		cells[key] = append(cells[key], p)
	}

	type cellGroup struct {
		key  spatial.CellKey
		pois []models.POI
	}
	groups := make([]cellGroup, 0, len(cells))
	for key, group := range cells {
		groups = append(groups, cellGroup{key: key, pois: group})
	}
	// Map iteration order is random; fix the group order before emitting.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].key.Row != groups[j].key.Row {
			return groups[i].key.Row < groups[j].key.Row
		}
		return groups[i].key.Col < groups[j].key.Col
	})

	markers := make([]models.Marker, 0, len(groups))
	for _, g := range groups {
		// Order within a cell is fixed by POI id so output does not depend
		// on the order the store returned the rows in.
		sort.Slice(g.pois, func(i, j int) bool { return g.pois[i].ID < g.pois[j].ID })
		if len(g.pois) >= minClusterSize {
			markers = append(markers, newClusterMarker(g.pois))
			continue
		}
		for _, p := range g.pois {
			markers = append(markers, newSingleMarker(p))
		}
	}

	// Larger clusters first so the client z-orders them consistently.
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Count > markers[j].Count
	})
	return markers, nil
}
