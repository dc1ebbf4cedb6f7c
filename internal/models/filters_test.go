package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClusterFilterNormalize(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		a := ClusterFilter{MinRating: 4, Categories: []string{"a", "b"}, PriceLevels: []int{2, 1}}
		b := ClusterFilter{PriceLevels: []int{1, 2}, Categories: []string{"b", "a"}, MinRating: 4}
		a.Normalize()
		b.Normalize()
		assert.Equal(t, a.CanonicalString(), b.CanonicalString())
	})

	t.Run("deduplicates", func(t *testing.T) {
		f := ClusterFilter{Categories: []string{"bar", "bar", "cafe"}, PriceLevels: []int{3, 3, 1}}
		f.Normalize()
		assert.Equal(t, []string{"bar", "cafe"}, f.Categories)
		assert.Equal(t, []int{1, 3}, f.PriceLevels)
	})

	t.Run("empty filter has empty canonical form", func(t *testing.T) {
		f := ClusterFilter{}
		f.Normalize()
		assert.Equal(t, "", f.CanonicalString())
	})

	t.Run("canonical string is stable", func(t *testing.T) {
		f := ClusterFilter{MinRating: 4.5, PriceLevels: []int{1, 2}, Categories: []string{"restaurant"}}
		f.Normalize()
		assert.Equal(t, "min_rating=4.50|price_levels=1,2|categories=restaurant", f.CanonicalString())
	})
}

func TestViewportBoundsValid(t *testing.T) {
	valid := ViewportBounds{North: 18.47, South: 18.43, East: -66.01, West: -66.07}
	assert.True(t, valid.Valid())

	reversed := ViewportBounds{North: 18.43, South: 18.47, East: -66.01, West: -66.07}
	assert.False(t, reversed.Valid())

	flipped := ViewportBounds{North: 18.47, South: 18.43, East: -66.07, West: -66.01}
	assert.False(t, flipped.Valid())

	empty := ViewportBounds{}
	assert.False(t, empty.Valid())
}
