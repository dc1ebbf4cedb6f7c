package models

import "math"

// POI represents a single point of interest as returned by the POI store.
// A POI is immutable once fetched; identity is the ID field.
// Rating == 0 means "unrated" and is excluded from cluster averages.
type POI struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Category     string  `json:"category"`
	Rating       float64 `json:"rating,omitempty"`
	ReviewsCount int     `json:"reviews_count,omitempty"`
	PriceLevel   int     `json:"price_level,omitempty"`
	Address      string  `json:"address,omitempty"`
}

// ViewportBounds is the rectangular lat/lng region visible on the map client.
// Invariant: South < North and West < East (validated at the request boundary).
type ViewportBounds struct {
	North float64 `form:"north" json:"north"`
	South float64 `form:"south" json:"south"`
	East  float64 `form:"east" json:"east"`
	West  float64 `form:"west" json:"west"`
}

// Valid reports whether the bounds describe a non-degenerate viewport.
func (b ViewportBounds) Valid() bool {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.South < b.North && b.West < b.East
}
