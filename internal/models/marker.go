package models

import "time"

// MarkerKind distinguishes standalone POIs from aggregated clusters.
type MarkerKind string

const (
	MarkerSingle  MarkerKind = "single"
	MarkerCluster MarkerKind = "cluster"
)

// Marker is a renderable map marker: either one POI or a cluster of POIs.
// ID is deterministic for a given POI-id set so that re-rendering the same
// cluster across requests does not flicker with a new identity.
// Count always equals len(POIs).
type Marker struct {
	ID                string         `json:"id"`
	Lat               float64        `json:"lat"`
	Lng               float64        `json:"lng"`
	Count             int            `json:"count"`
	POIs              []POI          `json:"pois"`
	Kind              MarkerKind     `json:"kind"`
	CategoryBreakdown map[string]int `json:"category_breakdown,omitempty"`
	AvgRating         *float64       `json:"avg_rating"`
	ZoomLevel         int            `json:"zoom_level"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// ClusterResult is what the coordinator hands back to callers: the marker
// set plus whether any chunk was dropped on timeout while computing it.
type ClusterResult struct {
	Markers  []Marker `json:"markers"`
	Degraded bool     `json:"degraded"`
}

// CacheStats is a point-in-time snapshot of the coordinator's counters and
// cache sizes, exposed for monitoring.
type CacheStats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Computations   int64   `json:"computations"`
	HitRatio       float64 `json:"hit_ratio"`
	ClusterEntries int     `json:"cluster_entries"`
	POIEntries     int     `json:"poi_entries"`
}
