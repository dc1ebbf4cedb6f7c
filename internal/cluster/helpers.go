package cluster

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/tacit7/poi-markers/internal/models"
)

// Centroid returns the arithmetic mean coordinate of a POI group.
// The group must be non-empty.
func Centroid(pois []models.POI) (float64, float64) {
	var sumLat, sumLng float64
	for _, p := range pois {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(pois))
	return sumLat / n, sumLng / n
}

// CategoryBreakdown tallies POIs per category.
func CategoryBreakdown(pois []models.POI) map[string]int {
	breakdown := make(map[string]int)
	for _, p := range pois {
		breakdown[p.Category]++
	}
	return breakdown
}

// AverageRating averages the ratings of the rated POIs in the group.
// Unrated POIs (Rating == 0) are excluded from the average rather than
// counted as zeros; returns nil when no POI carries a rating.
func AverageRating(pois []models.POI) *float64 {
	var sum float64
	var rated int
	for _, p := range pois {
		if p.Rating > 0 {
			sum += p.Rating
			rated++
		}
	}
	if rated == 0 {
		return nil
	}
	avg := sum / float64(rated)
	return &avg
}

// ClusterID derives a deterministic marker id from the cluster's POI-id set.
// The ids are sorted before hashing so the same set always produces the same
// marker id, regardless of input order.
func ClusterID(pois []models.POI) string {
	ids := make([]string, len(pois))
	for i, p := range pois {
		ids[i] = p.ID
	}
	sort.Strings(ids)

	h := fnv.New64a()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("cluster_%016x", h.Sum64())
}

// SingleID returns the marker id for a standalone POI.
func SingleID(p models.POI) string {
	return "poi_" + p.ID
}

// newClusterMarker builds a CLUSTER marker from a POI group.
func newClusterMarker(pois []models.POI) models.Marker {
	lat, lng := Centroid(pois)
	return models.Marker{
		ID:                ClusterID(pois),
		Lat:               lat,
		Lng:               lng,
		Count:             len(pois),
		POIs:              pois,
		Kind:              models.MarkerCluster,
		CategoryBreakdown: CategoryBreakdown(pois),
		AvgRating:         AverageRating(pois),
	}
}

// newSingleMarker builds a SINGLE marker for one POI.
func newSingleMarker(p models.POI) models.Marker {
	return models.Marker{
		ID:        SingleID(p),
		Lat:       p.Lat,
		Lng:       p.Lng,
		Count:     1,
		POIs:      []models.POI{p},
		Kind:      models.MarkerSingle,
		AvgRating: AverageRating([]models.POI{p}),
	}
}
