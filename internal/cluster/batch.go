package cluster

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/tacit7/poi-markers/internal/models"
	"github.com/tacit7/poi-markers/internal/spatial"
)

// Algorithm selects which clustering engine a batch run uses per chunk.
type Algorithm string

const (
	AlgorithmGrid   Algorithm = "grid"
	AlgorithmDBSCAN Algorithm = "dbscan"
)

// Options carries the per-request clustering parameters.
type Options struct {
	Zoom           int
	MinClusterSize int
	Algorithm      Algorithm

	// Density clustering only. EpsDegrees defaults to the zoom's grid size
	// converted to degrees when zero.
	EpsDegrees float64
	MinPoints  int
}

// BatchProcessor fans clustering out over fixed-size POI chunks. Chunks are
// independent and the engines are pure, so chunk computations share no state.
// A chunk that exceeds ChunkTimeout is abandoned and contributes nothing; a
// partial marker set is preferred over an unbounded wait.
type BatchProcessor struct {
	ChunkSize    int
	MaxWorkers   int
	ChunkTimeout time.Duration

	clusterFn func(pois []models.POI, opts Options) ([]models.Marker, error)
}

// NewBatchProcessor creates a batch processor with the reference settings:
// 100-POI chunks, one worker per core, 5 second chunk deadline.
func NewBatchProcessor() *BatchProcessor {
	return &BatchProcessor{
		ChunkSize:    100,
		MaxWorkers:   runtime.NumCPU(),
		ChunkTimeout: 5 * time.Second,
	}
}

// SetClusterFunc overrides the per-chunk clustering function. Used by tests
// to simulate slow or failing chunk computations.
func (bp *BatchProcessor) SetClusterFunc(fn func(pois []models.POI, opts Options) ([]models.Marker, error)) {
	bp.clusterFn = fn
}

// Process clusters the POI set and returns the merged markers, stamped with
// the requested zoom level and a generation timestamp. The boolean result
// reports degradation: true when at least one chunk was dropped on timeout.
// Engine errors are not absorbed; they fail the whole run.
func (bp *BatchProcessor) Process(ctx context.Context, pois []models.POI, opts Options) ([]models.Marker, bool, error) {
	if len(pois) == 0 {
		return []models.Marker{}, false, nil
	}

	chunks := chunkPOIs(pois, bp.ChunkSize)
	results := make([][]models.Marker, len(chunks))
	errs := make([]error, len(chunks))
	timedOut := make([]bool, len(chunks))

	workers := bp.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []models.POI) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			markers, err := bp.clusterChunkWithTimeout(ctx, chunk, opts)
			switch {
			case err == context.DeadlineExceeded:
				// Absorbed: the request continues with fewer markers.
				timedOut[i] = true
				log.Printf("[BatchProcessor] chunk %d (%d pois) dropped after %v timeout", i, len(chunk), bp.ChunkTimeout)
			case err != nil:
				errs[i] = err
			default:
				results[i] = markers
			}
		}(i, chunk)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, false, fmt.Errorf("cluster computation: %w", err)
		}
	}

	var merged []models.Marker
	degraded := false
	for i := range chunks {
		merged = append(merged, results[i]...)
		degraded = degraded || timedOut[i]
	}
	merged = mergeNearbyClusters(merged)

	now := time.Now().UTC()
	for i := range merged {
		merged[i].ZoomLevel = opts.Zoom
		merged[i].GeneratedAt = now
	}
	return merged, degraded, nil
}

// clusterChunkWithTimeout runs one chunk under its own deadline. The engine
// is CPU-bound and not interruptible, so an expired deadline abandons the
// computation goroutine and discards whatever it later produces.
func (bp *BatchProcessor) clusterChunkWithTimeout(ctx context.Context, chunk []models.POI, opts Options) ([]models.Marker, error) {
	chunkCtx, cancel := context.WithTimeout(ctx, bp.ChunkTimeout)
	defer cancel()

	type outcome struct {
		markers []models.Marker
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		markers, err := bp.clusterChunk(chunk, opts)
		done <- outcome{markers: markers, err: err}
	}()

	select {
	case out := <-done:
		return out.markers, out.err
	case <-chunkCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, context.DeadlineExceeded
	}
}

func (bp *BatchProcessor) clusterChunk(chunk []models.POI, opts Options) ([]models.Marker, error) {
	if bp.clusterFn != nil {
		return bp.clusterFn(chunk, opts)
	}
	gridSize := spatial.GridSizeForZoom(opts.Zoom)
	if opts.Algorithm == AlgorithmDBSCAN {
		eps := opts.EpsDegrees
		if eps <= 0 {
			eps = spatial.MetersToDegrees(gridSize)
		}
		minPoints := opts.MinPoints
		if minPoints < 1 {
			minPoints = opts.MinClusterSize
		}
		return DBSCANCluster(chunk, eps, minPoints)
	}
	return GridCluster(chunk, gridSize, opts.MinClusterSize)
}

// mergeNearbyClusters is the cross-chunk merge extension point. Clusters
// from different chunks that land near each other are currently left as-is;
// the client handles residual overlap at render time.
func mergeNearbyClusters(markers []models.Marker) []models.Marker {
	return markers
}

func chunkPOIs(pois []models.POI, size int) [][]models.POI {
	if size < 1 {
		size = 1
	}
	var chunks [][]models.POI
	for start := 0; start < len(pois); start += size {
		end := start + size
		if end > len(pois) {
			end = len(pois)
		}
		chunks = append(chunks, pois[start:end])
	}
	return chunks
}
