package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tacit7/poi-markers/internal/cluster"
	"github.com/tacit7/poi-markers/internal/models"
)

// fakeSource is an in-memory POI source that counts its queries.
type fakeSource struct {
	mu      sync.Mutex
	pois    []models.POI
	err     error
	queries int
}

func (f *fakeSource) QueryPOIs(ctx context.Context, bounds models.ViewportBounds, filter models.ClusterFilter) ([]models.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.pois, nil
}

func (f *fakeSource) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func testBounds() models.ViewportBounds {
	return models.ViewportBounds{North: 18.47, South: 18.43, East: -66.01, West: -66.07}
}

func newTestService(t *testing.T, source POISource) *ClusterService {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RequestTimeout = 2 * time.Second
	svc := NewClusterService(source, cluster.NewBatchProcessor(), cfg)
	t.Cleanup(svc.Close)
	return svc
}

func TestGetClustersCacheHit(t *testing.T) {
	source := &fakeSource{pois: []models.POI{
		{ID: "p1", Lat: 18.4500, Lng: -66.0300, Rating: 4.0},
		{ID: "p2", Lat: 18.4501, Lng: -66.0300, Rating: 5.0},
		{ID: "p3", Lat: 18.4502, Lng: -66.0300},
	}}
	svc := newTestService(t, source)

	first, err := svc.GetClusters(context.Background(), testBounds(), 16, models.ClusterFilter{}, "")
	require.NoError(t, err)

	second, err := svc.GetClusters(context.Background(), testBounds(), 16, models.ClusterFilter{}, "")
	require.NoError(t, err)

	// Second call is served from cache: identical output, one hit, one
	// store query total.
	assert.Equal(t, first, second)
	assert.Equal(t, 1, source.queryCount())

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Computations)
	assert.InDelta(t, 0.5, stats.HitRatio, 1e-9)
	assert.Equal(t, 1, stats.ClusterEntries)
	assert.Equal(t, 1, stats.POIEntries)
}

func TestGetClustersKeyNormalization(t *testing.T) {
	source := &fakeSource{pois: []models.POI{{ID: "p1", Lat: 18.45, Lng: -66.03}}}
	svc := newTestService(t, source)

	f1 := models.ClusterFilter{MinRating: 4, Categories: []string{"a", "b"}}
	f2 := models.ClusterFilter{Categories: []string{"b", "a"}, MinRating: 4}

	_, err := svc.GetClusters(context.Background(), testBounds(), 12, f1, "")
	require.NoError(t, err)
	_, err = svc.GetClusters(context.Background(), testBounds(), 12, f2, "")
	require.NoError(t, err)

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Hits, "reordered filters hit the same key")
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetClustersDistinctKeys(t *testing.T) {
	source := &fakeSource{pois: []models.POI{{ID: "p1", Lat: 18.45, Lng: -66.03}}}
	svc := newTestService(t, source)

	_, err := svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.NoError(t, err)
	_, err = svc.GetClusters(context.Background(), testBounds(), 15, models.ClusterFilter{}, "")
	require.NoError(t, err)

	stats := svc.Stats()
	assert.Equal(t, int64(0), stats.Hits, "different zoom means a different cluster key")
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.ClusterEntries)
	assert.Equal(t, 1, stats.POIEntries, "raw poi cache is keyed without zoom")
	assert.Equal(t, 1, source.queryCount())
}

func TestGetClustersInvalidBounds(t *testing.T) {
	source := &fakeSource{}
	svc := newTestService(t, source)

	reversed := models.ViewportBounds{North: 18.43, South: 18.47, East: -66.01, West: -66.07}
	_, err := svc.GetClusters(context.Background(), reversed, 12, models.ClusterFilter{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBounds)
	assert.Equal(t, 0, source.queryCount(), "no fetch happens for a bad request")
}

func TestGetClustersUpstreamFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("store is down")}
	svc := newTestService(t, source)

	_, err := svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamFetch)

	// Failure is not cached; a retry hits the store again.
	_, err = svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.Error(t, err)
	assert.Equal(t, 2, source.queryCount())
}

func TestInvalidateCacheClearsOnlyClusters(t *testing.T) {
	source := &fakeSource{pois: []models.POI{{ID: "p1", Lat: 18.45, Lng: -66.03}}}
	svc := newTestService(t, source)

	_, err := svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.NoError(t, err)

	svc.InvalidateCache("poi import")

	// The invalidation is asynchronous; wait for it to land.
	require.Eventually(t, func() bool {
		return svc.Stats().ClusterEntries == 0
	}, time.Second, 10*time.Millisecond)

	stats := svc.Stats()
	assert.Equal(t, 1, stats.POIEntries, "raw poi cache untouched")

	// Recompute uses the cached POIs, not the store.
	_, err = svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, source.queryCount())
}

func TestGetClustersEmptyViewport(t *testing.T) {
	source := &fakeSource{} // no POIs
	svc := newTestService(t, source)

	result, err := svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.NoError(t, err, "empty viewport is a valid answer, not an error")
	assert.Empty(t, result.Markers)
	assert.False(t, result.Degraded)
}

func TestGetClustersZoomClamped(t *testing.T) {
	source := &fakeSource{pois: []models.POI{{ID: "p1", Lat: 18.45, Lng: -66.03}}}
	svc := newTestService(t, source)

	result, err := svc.GetClusters(context.Background(), testBounds(), 99, models.ClusterFilter{}, "")
	require.NoError(t, err)
	require.Len(t, result.Markers, 1)
	assert.Equal(t, 20, result.Markers[0].ZoomLevel)
}

func TestGetClustersAfterClose(t *testing.T) {
	source := &fakeSource{}
	cfg := DefaultConfig()
	svc := NewClusterService(source, cluster.NewBatchProcessor(), cfg)
	svc.Close()

	_, err := svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSweepEvictsExpiredEntries(t *testing.T) {
	source := &fakeSource{pois: []models.POI{{ID: "p1", Lat: 18.45, Lng: -66.03}}}
	cfg := DefaultConfig()
	cfg.ClusterTTL = 20 * time.Millisecond
	cfg.POITTL = 20 * time.Millisecond
	cfg.SweepInterval = 20 * time.Millisecond
	svc := NewClusterService(source, cluster.NewBatchProcessor(), cfg)
	t.Cleanup(svc.Close)

	_, err := svc.GetClusters(context.Background(), testBounds(), 12, models.ClusterFilter{}, "")
	require.NoError(t, err)
	require.Equal(t, 1, svc.Stats().ClusterEntries)

	require.Eventually(t, func() bool {
		stats := svc.Stats()
		return stats.ClusterEntries == 0 && stats.POIEntries == 0
	}, time.Second, 10*time.Millisecond, "sweep removes expired entries without lookups")
}

func TestGetClustersSerializedOrder(t *testing.T) {
	source := &fakeSource{pois: []models.POI{
		{ID: "p1", Lat: 18.4500, Lng: -66.0300},
		{ID: "p2", Lat: 18.4501, Lng: -66.0300},
	}}
	svc := newTestService(t, source)

	// Near-simultaneous identical requests: only the first pays the
	// computation, the rest are cache hits behind it in the queue.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetClusters(context.Background(), testBounds(), 14, models.ClusterFilter{}, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Computations, "a key is computed at most once")
	assert.Equal(t, int64(7), stats.Hits)
	assert.Equal(t, 1, source.queryCount())
}
