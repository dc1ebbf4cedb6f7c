package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tacit7/poi-markers/internal/database"
	"github.com/tacit7/poi-markers/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.InitSchema(db))
	return db
}

func seedTestPOIs(t *testing.T, repo *POIRepository) {
	t.Helper()
	pois := []models.POI{
		{ID: "r1", Name: "Cafe Uno", Lat: 18.4500, Lng: -66.0300, Category: "restaurant", Rating: 4.5, PriceLevel: 2},
		{ID: "r2", Name: "Bar Dos", Lat: 18.4520, Lng: -66.0320, Category: "bar", Rating: 3.5, PriceLevel: 1},
		{ID: "r3", Name: "Museo Tres", Lat: 18.4540, Lng: -66.0340, Category: "attraction", Rating: 4.8, PriceLevel: 3},
		{ID: "out", Name: "Far Away", Lat: 18.9000, Lng: -66.5000, Category: "restaurant", Rating: 5.0, PriceLevel: 2},
	}
	require.NoError(t, repo.ReplacePOIs(context.Background(), pois))
}

func insideBounds() models.ViewportBounds {
	return models.ViewportBounds{North: 18.4600, South: 18.4400, East: -66.0200, West: -66.0400}
}

func TestQueryPOIsBoundingBox(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedTestPOIs(t, repo)

	pois, err := repo.QueryPOIs(context.Background(), insideBounds(), models.ClusterFilter{})
	require.NoError(t, err)
	require.Len(t, pois, 3, "poi outside the viewport is excluded")

	// Stable id order
	assert.Equal(t, "r1", pois[0].ID)
	assert.Equal(t, "r2", pois[1].ID)
	assert.Equal(t, "r3", pois[2].ID)
}

func TestQueryPOIsMinRatingPushdown(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedTestPOIs(t, repo)

	pois, err := repo.QueryPOIs(context.Background(), insideBounds(), models.ClusterFilter{MinRating: 4.0})
	require.NoError(t, err)
	require.Len(t, pois, 2)
	for _, p := range pois {
		assert.GreaterOrEqual(t, p.Rating, 4.0)
	}
}

func TestQueryPOIsPriceLevelPushdown(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedTestPOIs(t, repo)

	pois, err := repo.QueryPOIs(context.Background(), insideBounds(), models.ClusterFilter{PriceLevels: []int{1, 3}})
	require.NoError(t, err)
	require.Len(t, pois, 2)
	assert.Equal(t, "r2", pois[0].ID)
	assert.Equal(t, "r3", pois[1].ID)
}

func TestQueryPOIsCategoriesNotPushedDown(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedTestPOIs(t, repo)

	// Category narrowing happens client-side; the query ignores it.
	pois, err := repo.QueryPOIs(context.Background(), insideBounds(), models.ClusterFilter{Categories: []string{"bar"}})
	require.NoError(t, err)
	assert.Len(t, pois, 3)
}

func TestInsertPOIUpsert(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))

	p := models.POI{ID: "u1", Name: "First", Lat: 18.45, Lng: -66.03, Category: "restaurant"}
	require.NoError(t, repo.InsertPOI(context.Background(), p))

	p.Name = "Renamed"
	p.Rating = 4.2
	require.NoError(t, repo.InsertPOI(context.Background(), p))

	count, err := repo.CountPOIs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pois, err := repo.QueryPOIs(context.Background(), insideBounds(), models.ClusterFilter{})
	require.NoError(t, err)
	require.Len(t, pois, 1)
	assert.Equal(t, "Renamed", pois[0].Name)
	assert.InDelta(t, 4.2, pois[0].Rating, 1e-9)
}

func TestReplacePOIsReplaces(t *testing.T) {
	repo := NewPOIRepository(openTestDB(t))
	seedTestPOIs(t, repo)

	require.NoError(t, repo.ReplacePOIs(context.Background(), []models.POI{
		{ID: "only", Lat: 18.45, Lng: -66.03},
	}))

	count, err := repo.CountPOIs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
