// Package affinity builds the sparse high-dimensional similarity graph that
// drives the attractive forces of an embedding.
//
// For every input point the builder finds its k nearest neighbors with an
// exact vantage-point tree, then calibrates a per-point Gaussian bandwidth
// so the entropy of the neighbor distribution matches a caller-chosen
// perplexity. The result is a directed CSR matrix whose row i holds the
// conditional probabilities p(j|i) over the k nearest neighbors of i, each
// row summing to one.
package affinity

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/tsnego/internal/parallel"
	"github.com/hupe1980/tsnego/sparse"
	"github.com/hupe1980/tsnego/vptree"
)

// Options represents the options for building the neighbor graph.
type Options struct {
	// Workers bounds the goroutines used by the parallel stages. Zero means
	// one per logical CPU.
	Workers int

	// Tolerance is the accepted deviation of a row's entropy from
	// log(perplexity) during bandwidth calibration.
	Tolerance float64

	// RandomSeed drives vantage-point selection in the neighbor index. Nil
	// means seeded from the clock; identical seeds over identical input
	// produce identical graphs.
	RandomSeed *int64

	// Calibrator converts squared neighbor distances into conditional
	// probabilities. Nil selects the built-in binary search.
	Calibrator Calibrator

	// TrackUnconvergedRows records the indices of rows whose calibration
	// hit the round cap, not just their count.
	TrackUnconvergedRows bool
}

// DefaultOptions contains the default configuration options for the graph
// builder.
var DefaultOptions = Options{
	Tolerance: 1e-5,
}

// BuildStats describes a single graph build.
type BuildStats struct {
	// K is the neighbor count of the directed graph.
	K int

	// TreeBuild, Search and Calibration hold the wall-clock duration of
	// each stage.
	TreeBuild   time.Duration
	Search      time.Duration
	Calibration time.Duration

	// Unconverged counts calibration rows that hit the round cap. Their
	// best-effort probabilities are kept.
	Unconverged int

	// UnconvergedRows lists those rows in ascending order when
	// Options.TrackUnconvergedRows was set.
	UnconvergedRows []int
}

// BuildGraph computes the directed k-nearest-neighbor affinity graph of a
// flat row-major n x d matrix, with k = int(3 * perplexity). Row i of the
// returned matrix holds p(j|i) for the k nearest neighbors j of point i and
// sums to one. The input is not modified.
func BuildGraph(ctx context.Context, x []float32, n, d int, perplexity float64, optFns ...func(o *Options)) (*sparse.Matrix, BuildStats, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	k := int(3 * perplexity)
	stats := BuildStats{K: k}

	if k < 1 {
		return nil, stats, fmt.Errorf("affinity: perplexity %g yields an empty neighborhood", perplexity)
	}

	if k+1 > n {
		return nil, stats, fmt.Errorf("affinity: %d points cannot support %d neighbors per point: %w", n, k, vptree.ErrKExceedsSize)
	}

	start := time.Now()

	tree, err := vptree.New(x, n, d, func(o *vptree.Options) {
		o.RandomSeed = opts.RandomSeed
	})
	if err != nil {
		return nil, stats, err
	}

	stats.TreeBuild = time.Since(start)

	m := sparse.NewFixedDegree(n, k)
	dists := make([]float32, n*k)

	start = time.Now()

	err = parallel.ForEach(ctx, n, opts.Workers, func(i int) error {
		ids, d2, err := tree.Search(x[i*d:(i+1)*d], k+1)
		if err != nil {
			return err
		}

		// The query point itself comes back at distance zero, but with
		// coincident points it can land anywhere among the ties, so keep
		// the first k hits that are not the query.
		cols, _ := m.Row(i)
		row := dists[i*k : (i+1)*k]
		w := 0
		for j := 0; j < len(ids) && w < k; j++ {
			if ids[j] == int32(i) {
				continue
			}
			cols[w] = ids[j]
			row[w] = d2[j]
			w++
		}

		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	stats.Search = time.Since(start)

	cal := opts.Calibrator
	if cal == nil {
		cal = &BinarySearch{Workers: opts.Workers, TrackRows: opts.TrackUnconvergedRows}
	}

	start = time.Now()

	cstats, err := cal.CalibrateRows(ctx, dists, n, k, perplexity, opts.Tolerance, m.Val)
	if err != nil {
		return nil, stats, err
	}

	stats.Calibration = time.Since(start)
	stats.Unconverged = cstats.Unconverged
	stats.UnconvergedRows = cstats.UnconvergedRows

	return m, stats, nil
}
