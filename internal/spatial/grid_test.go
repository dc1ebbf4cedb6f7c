package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridSizeForZoom(t *testing.T) {
	// The step table is part of the client contract; lock it down.
	cases := []struct {
		zoom int
		want float64
	}{
		{16, 50},
		{15, 50},
		{14, 200},
		{12, 200},
		{11, 500},
		{10, 500},
		{9, 1000},
		{8, 1000},
		{7, 2000},
		{3, 2000},
		{1, 2000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GridSizeForZoom(tc.zoom), "zoom %d", tc.zoom)
	}
}

func TestGridCellKey(t *testing.T) {
	t.Run("nearby points share a cell", func(t *testing.T) {
		// ~111m apart at a 2000m grid
		a := GridCellKey(18.4500, -66.0300, 2000)
		b := GridCellKey(18.4510, -66.0300, 2000)
		assert.Equal(t, a, b)
	})

	t.Run("distant points land in different cells", func(t *testing.T) {
		a := GridCellKey(18.4500, -66.0300, 50)
		b := GridCellKey(18.4600, -66.0300, 50)
		assert.NotEqual(t, a, b)
	})

	t.Run("cell key is deterministic", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, GridCellKey(40.7128, -74.0060, 200), GridCellKey(40.7128, -74.0060, 200))
		}
	})
}
