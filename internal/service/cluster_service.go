package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tacit7/poi-markers/internal/cache"
	"github.com/tacit7/poi-markers/internal/cluster"
	"github.com/tacit7/poi-markers/internal/models"
)

var (
	// ErrInvalidBounds means the viewport could not be normalized into a
	// cache key. Surfaced before any fetch or compute work begins.
	ErrInvalidBounds = errors.New("invalid viewport bounds")

	// ErrUpstreamFetch means the POI store query failed. Not retried here;
	// the caller may retry the whole request.
	ErrUpstreamFetch = errors.New("poi source query failed")

	// ErrComputation means the clustering engine rejected its input.
	ErrComputation = errors.New("cluster computation failed")

	// ErrClosed is returned for requests made after Close.
	ErrClosed = errors.New("cluster service closed")
)

// POISource is the one upstream contract the coordinator consumes.
type POISource interface {
	QueryPOIs(ctx context.Context, bounds models.ViewportBounds, filter models.ClusterFilter) ([]models.POI, error)
}

// Config carries the coordinator's tuning knobs.
type Config struct {
	ClusterTTL     time.Duration // computed-cluster cache entries
	POITTL         time.Duration // raw-POI cache entries
	SweepInterval  time.Duration // expiry sweep period
	RequestTimeout time.Duration // full fetch+compute+cache budget
	MinClusterSize int           // grid cells below this emit singles
	QueueSize      int           // pending request buffer
}

// DefaultConfig returns the reference settings: 5 minute TTLs, 60 second
// sweeps, 10 second request budget.
func DefaultConfig() Config {
	return Config{
		ClusterTTL:     5 * time.Minute,
		POITTL:         5 * time.Minute,
		SweepInterval:  60 * time.Second,
		RequestTimeout: 10 * time.Second,
		MinClusterSize: 2,
		QueueSize:      64,
	}
}

// ClusterService is the cluster cache coordinator. All requests funnel
// through one processing goroutine which owns both caches and the counters,
// so a given cache key is computed at most once concurrently: the first
// request's cache write lands before the next request's lookup is evaluated.
// Cache hits are served at memory speed; each miss is parallelized
// internally by the batch processor, which is why the single-actor
// bottleneck is acceptable.
type ClusterService struct {
	source POISource
	batch  *cluster.BatchProcessor
	cfg    Config

	clusterCache *cache.Cache
	poiCache     *cache.Cache

	hits         int64
	misses       int64
	computations int64

	requests  chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

type getRequest struct {
	ctx       context.Context
	bounds    models.ViewportBounds
	zoom      int
	filter    models.ClusterFilter
	algorithm cluster.Algorithm
	reply     chan getReply
}

type getReply struct {
	result models.ClusterResult
	err    error
}

type invalidateRequest struct {
	reason string
}

type statsRequest struct {
	reply chan models.CacheStats
}

// NewClusterService creates and starts a coordinator.
func NewClusterService(source POISource, batch *cluster.BatchProcessor, cfg Config) *ClusterService {
	s := &ClusterService{
		source:       source,
		batch:        batch,
		cfg:          cfg,
		clusterCache: cache.New(cfg.ClusterTTL),
		poiCache:     cache.New(cfg.POITTL),
		requests:     make(chan interface{}, cfg.QueueSize),
		done:         make(chan struct{}),
	}
	go s.loop()
	return s
}

// GetClusters returns the marker set for a viewport at a zoom level,
// computing and caching it on first sight of the (bounds, zoom, filter)
// combination. Requests are answered in submission order; the whole call is
// bounded by the configured request timeout. Failures propagate: callers can
// always tell an empty viewport from a failed computation.
func (s *ClusterService) GetClusters(ctx context.Context, bounds models.ViewportBounds, zoom int, filter models.ClusterFilter, algorithm cluster.Algorithm) (models.ClusterResult, error) {
	if !bounds.Valid() {
		return models.ClusterResult{}, fmt.Errorf("%w: north=%v south=%v east=%v west=%v",
			ErrInvalidBounds, bounds.North, bounds.South, bounds.East, bounds.West)
	}
	zoom = clampZoom(zoom)
	filter.Normalize()
	if algorithm == "" {
		algorithm = cluster.AlgorithmGrid
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	req := getRequest{
		ctx:       ctx,
		bounds:    bounds,
		zoom:      zoom,
		filter:    filter,
		algorithm: algorithm,
		reply:     make(chan getReply, 1),
	}

	select {
	case s.requests <- req:
	case <-s.done:
		return models.ClusterResult{}, ErrClosed
	case <-ctx.Done():
		return models.ClusterResult{}, fmt.Errorf("get clusters: %w", ctx.Err())
	}

	select {
	case reply := <-req.reply:
		return reply.result, reply.err
	case <-s.done:
		return models.ClusterResult{}, ErrClosed
	case <-ctx.Done():
		return models.ClusterResult{}, fmt.Errorf("get clusters: %w", ctx.Err())
	}
}

// InvalidateCache drops every computed-cluster entry. The raw-POI cache is
// left alone; it expires on its own schedule. Fire-and-forget: the call
// returns immediately.
func (s *ClusterService) InvalidateCache(reason string) {
	req := invalidateRequest{reason: reason}
	go func() {
		select {
		case s.requests <- req:
		case <-s.done:
		}
	}()
}

// Stats returns a consistent snapshot of the counters and cache sizes.
func (s *ClusterService) Stats() models.CacheStats {
	req := statsRequest{reply: make(chan models.CacheStats, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return models.CacheStats{}
	}
	select {
	case stats := <-req.reply:
		return stats
	case <-s.done:
		return models.CacheStats{}
	}
}

// Close stops the processing loop. In-flight callers get ErrClosed.
func (s *ClusterService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// loop is the single serialization point. It alone touches the caches and
// counters, which is what makes cache writes atomic with respect to the next
// request's lookup.
func (s *ClusterService) loop() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.requests:
			switch req := msg.(type) {
			case getRequest:
				req.reply <- s.handleGet(req)
			case invalidateRequest:
				n := s.clusterCache.Len()
				s.clusterCache.Clear()
				log.Printf("[ClusterService] cache invalidated (%d entries, reason: %s)", n, req.reason)
			case statsRequest:
				req.reply <- s.snapshotStats()
			}
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *ClusterService) handleGet(req getRequest) getReply {
	key := clusterKey(req.bounds, req.zoom, req.algorithm, req.filter)

	if v, ok := s.clusterCache.Get(key); ok {
		s.hits++
		return getReply{result: v.(models.ClusterResult)}
	}
	s.misses++

	pois, err := s.fetchPOIs(req.ctx, req.bounds, req.filter)
	if err != nil {
		return getReply{err: err}
	}

	opts := cluster.Options{
		Zoom:           req.zoom,
		MinClusterSize: s.cfg.MinClusterSize,
		Algorithm:      req.algorithm,
	}
	markers, degraded, err := s.batch.Process(req.ctx, pois, opts)
	if err != nil {
		return getReply{err: fmt.Errorf("%w: %v", ErrComputation, err)}
	}
	s.computations++
	if degraded {
		log.Printf("[ClusterService] degraded result for key %s (chunk timeout)", key)
	}

	result := models.ClusterResult{Markers: markers, Degraded: degraded}
	s.clusterCache.Set(key, result)
	return getReply{result: result}
}

// fetchPOIs serves raw POIs through their own cache; the store is only hit
// when the (bounds, filter) combination is cold.
func (s *ClusterService) fetchPOIs(ctx context.Context, bounds models.ViewportBounds, filter models.ClusterFilter) ([]models.POI, error) {
	key := poiKey(bounds, filter)
	if v, ok := s.poiCache.Get(key); ok {
		return v.([]models.POI), nil
	}

	pois, err := s.source.QueryPOIs(ctx, bounds, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	s.poiCache.Set(key, pois)
	return pois, nil
}

func (s *ClusterService) snapshotStats() models.CacheStats {
	stats := models.CacheStats{
		Hits:           s.hits,
		Misses:         s.misses,
		Computations:   s.computations,
		ClusterEntries: s.clusterCache.Len(),
		POIEntries:     s.poiCache.Len(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (s *ClusterService) sweep() {
	removed := s.clusterCache.RemoveExpired() + s.poiCache.RemoveExpired()
	if removed > 0 {
		log.Printf("[ClusterService] sweep removed %d expired entries", removed)
	}
}

func clampZoom(zoom int) int {
	if zoom < 1 {
		return 1
	}
	if zoom > 20 {
		return 20
	}
	return zoom
}

// clusterKey digests the normalized request parameters. Bounds are rounded
// to 4 decimal places first: sub-pixel viewport jitter from the map client
// would otherwise explode key cardinality for visually identical requests.
func clusterKey(bounds models.ViewportBounds, zoom int, algorithm cluster.Algorithm, filter models.ClusterFilter) string {
	raw := fmt.Sprintf("%s|zoom=%d|alg=%s|%s", boundsKey(bounds), zoom, algorithm, filter.CanonicalString())
	return digest("clusters", raw)
}

// poiKey ignores zoom and algorithm: the raw POI set for a viewport is the
// same whatever cluster shape is computed from it.
func poiKey(bounds models.ViewportBounds, filter models.ClusterFilter) string {
	raw := fmt.Sprintf("%s|%s", boundsKey(bounds), filter.CanonicalString())
	return digest("pois", raw)
}

func boundsKey(b models.ViewportBounds) string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b.North, b.South, b.East, b.West)
}

func digest(prefix, raw string) string {
	sum := sha1.Sum([]byte(raw))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
