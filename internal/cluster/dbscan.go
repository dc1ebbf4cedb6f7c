package cluster

import (
	"fmt"
	"math"

	"github.com/MadAppGang/kdbush"

	"github.com/tacit7/poi-markers/internal/models"
	"github.com/tacit7/poi-markers/internal/spatial"
)

// kdbush node size; higher means faster indexing, slower search.
const dbscanNodeSize = 64

// DBSCANCluster runs density-based clustering over the POI set. A POI whose
// epsilon neighborhood (haversine distance expressed in degrees) holds at
// least minPoints members seeds a cluster and expands it breadth-first
// through every density-reachable POI. Neighbors below the threshold still
// join as border points but do not propagate the expansion. POIs reaching no
// cluster are emitted as SINGLE markers.
//
// Neighbor candidates come from a kd-tree index; the naive scan would be
// O(n^2), which the batch processor's chunk size keeps bounded anyway.
func DBSCANCluster(pois []models.POI, epsDegrees float64, minPoints int) ([]models.Marker, error) {
	if epsDegrees <= 0 {
		return nil, fmt.Errorf("invalid epsilon %v", epsDegrees)
	}
	if minPoints < 1 {
		minPoints = 1
	}
	if len(pois) == 0 {
		return nil, nil
	}

	points := make([]kdbush.Point, len(pois))
	for i, p := range pois {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
			return nil, fmt.Errorf("poi %s: %w", p.ID, ErrMissingCoordinates)
		}
		points[i] = &kdbush.SimplePoint{X: pois[i].Lng, Y: pois[i].Lat}
	}
	index := kdbush.NewBush(points, dbscanNodeSize)

	const (
		unclassified = 0
		noise        = -1
	)
	labels := make([]int, len(pois)) // 0 unclassified, -1 noise, >0 cluster id
	visited := make([]bool, len(pois))
	clusterID := 0

	neighborsOf := func(i int) []int {
		// The index query is planar in degree space, where a longitude
		// degree is shorter on the ground than a latitude degree. Pad the
		// radius by the cosine shrink at this latitude, then verify each
		// candidate with the real distance.
		radius := epsDegrees
		if cosLat := math.Cos(pois[i].Lat * math.Pi / 180); cosLat > 0.01 {
			radius = epsDegrees / cosLat
		}
		candidates := index.Within(&kdbush.SimplePoint{X: pois[i].Lng, Y: pois[i].Lat}, radius)
		neighbors := candidates[:0]
		for _, c := range candidates {
			if spatial.DistanceDegrees(pois[i].Lat, pois[i].Lng, pois[c].Lat, pois[c].Lng) <= epsDegrees {
				neighbors = append(neighbors, c)
			}
		}
		return neighbors
	}

	for i := range pois {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := neighborsOf(i)
		if len(neighbors) < minPoints {
			labels[i] = noise
			continue
		}

		clusterID++
		labels[i] = clusterID

		// Breadth-first expansion through density-reachable points.
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == noise {
				labels[j] = clusterID // border point
			}
			if labels[j] == unclassified {
				labels[j] = clusterID
			}
			if visited[j] {
				continue
			}
			visited[j] = true

			jNeighbors := neighborsOf(j)
			if len(jNeighbors) >= minPoints {
				queue = append(queue, jNeighbors...)
			}
		}
	}

	clusters := make(map[int][]models.POI)
	var singles []models.POI
	for i, p := range pois {
		if labels[i] > 0 {
			clusters[labels[i]] = append(clusters[labels[i]], p)
		} else {
			singles = append(singles, p)
		}
	}

	markers := make([]models.Marker, 0, len(clusters)+len(singles))
	for id := 1; id <= clusterID; id++ {
		if group, ok := clusters[id]; ok {
			markers = append(markers, newClusterMarker(group))
		}
	}
	for _, p := range singles {
		markers = append(markers, newSingleMarker(p))
	}
	return markers, nil
}
