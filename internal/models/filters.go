package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ClusterFilter represents filter parameters for POI queries.
// Filters are order-independent: two filters that differ only in the
// submission order of PriceLevels or Categories must produce the same
// canonical string, and therefore the same cache key.
type ClusterFilter struct {
	MinRating   float64  `form:"min_rating" json:"min_rating,omitempty"`
	PriceLevels []int    `form:"price_levels" json:"price_levels,omitempty"`
	Categories  []string `form:"categories" json:"categories,omitempty"`
}

// Normalize sorts and deduplicates the set-valued fields in place so that
// semantically identical filters compare (and hash) identically.
func (f *ClusterFilter) Normalize() {
	if len(f.PriceLevels) > 1 {
		sort.Ints(f.PriceLevels)
		f.PriceLevels = dedupInts(f.PriceLevels)
	}
	if len(f.Categories) > 1 {
		sort.Strings(f.Categories)
		f.Categories = dedupStrings(f.Categories)
	}
}

// CanonicalString returns a stable string form of the filter, used as a
// cache-key fragment. Callers must Normalize first.
func (f ClusterFilter) CanonicalString() string {
	var parts []string
	if f.MinRating > 0 {
		parts = append(parts, fmt.Sprintf("min_rating=%.2f", f.MinRating))
	}
	if len(f.PriceLevels) > 0 {
		levels := make([]string, len(f.PriceLevels))
		for i, p := range f.PriceLevels {
			levels[i] = strconv.Itoa(p)
		}
		parts = append(parts, "price_levels="+strings.Join(levels, ","))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, "categories="+strings.Join(f.Categories, ","))
	}
	return strings.Join(parts, "|")
}

func dedupInts(sorted []int) []int {
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func dedupStrings(sorted []string) []string {
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
