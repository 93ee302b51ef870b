package affinity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/tsnego/internal/parallel"
)

// fltMin is the smallest normalized float32 (the value of C's FLT_MIN). It
// floors the kernel sum so the entropy stays finite when a bandwidth
// collapses the whole row to zero.
const fltMin = 0x1p-126

// maxRounds caps the bandwidth search per row. Rows that still miss the
// tolerance keep their best-effort probabilities and are only reported.
const maxRounds = 200

// Stats reports how a calibration pass went.
type Stats struct {
	// Rows is the number of calibrated rows.
	Rows int

	// Unconverged counts rows whose bandwidth search hit the round cap
	// before matching the target entropy.
	Unconverged int

	// UnconvergedRows lists the offending rows in ascending order. Nil
	// unless tracking was requested.
	UnconvergedRows []int
}

// Calibrator turns squared neighbor distances into row-normalized
// conditional probabilities. dists is row-major n x k with the point itself
// already excluded from its row; out receives the probabilities in the same
// layout. Implementations other than the built-in binary search can plug in
// here, e.g. one that delegates the bandwidth search to an accelerator.
type Calibrator interface {
	CalibrateRows(ctx context.Context, dists []float32, n, k int, perplexity, tol float64, out []float32) (Stats, error)
}

// BinarySearch calibrates every row independently: it searches the
// precision beta of the row's Gaussian kernel until the entropy of the
// neighbor distribution matches log(perplexity) within tol.
type BinarySearch struct {
	// Workers bounds the goroutines calibrating rows. Zero means one per
	// logical CPU.
	Workers int

	// TrackRows records which rows failed to converge, not just how many.
	TrackRows bool
}

// CalibrateRows implements the Calibrator interface.
func (b *BinarySearch) CalibrateRows(ctx context.Context, dists []float32, n, k int, perplexity, tol float64, out []float32) (Stats, error) {
	if k <= 0 {
		return Stats{}, fmt.Errorf("affinity: neighbor count must be positive, got %d", k)
	}

	if len(dists) != n*k {
		return Stats{}, fmt.Errorf("affinity: expected %d distances (%d x %d), got %d", n*k, n, k, len(dists))
	}

	if len(out) != len(dists) {
		return Stats{}, fmt.Errorf("affinity: output length %d does not match input length %d", len(out), len(dists))
	}

	var (
		unconverged atomic.Int64

		mu   sync.Mutex
		rows []int
	)

	err := parallel.ForEach(ctx, n, b.Workers, func(i int) error {
		if calibrateRow(dists[i*k:(i+1)*k], out[i*k:(i+1)*k], perplexity, tol) {
			return nil
		}

		unconverged.Add(1)

		if b.TrackRows {
			mu.Lock()
			rows = append(rows, i)
			mu.Unlock()
		}

		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	// Rows finish in worker order; report them in row order.
	sort.Ints(rows)

	return Stats{
		Rows:            n,
		Unconverged:     int(unconverged.Load()),
		UnconvergedRows: rows,
	}, nil
}

// calibrateRow searches the kernel precision for a single row of squared
// distances and writes the row-normalized probabilities into out. It
// reports whether the entropy converged within the round cap.
//
// The search doubles (or halves) beta until the target entropy is bracketed
// and bisects afterwards. The entropy of the unnormalized kernel
// p_m = exp(-beta * d_m) is H = sum(beta * d_m * p_m) / sumP + log(sumP).
func calibrateRow(d2, out []float32, perplexity, tol float64) bool {
	target := math.Log(perplexity)

	beta := 1.0
	minBeta := -math.MaxFloat64
	maxBeta := math.MaxFloat64

	sumP := fltMin

	for round := 0; round < maxRounds; round++ {
		sumP = fltMin
		var h float64
		for m, d := range d2 {
			p := math.Exp(-beta * float64(d))
			out[m] = float32(p)
			sumP += p
			h += beta * float64(d) * p
		}
		h = h/sumP + math.Log(sumP)

		diff := h - target
		if diff < tol && -diff < tol {
			normalizeRow(out, sumP)
			return true
		}

		if diff > 0 {
			minBeta = beta
			if maxBeta == math.MaxFloat64 {
				beta *= 2
			} else {
				beta = (beta + maxBeta) / 2
			}
		} else {
			maxBeta = beta
			if minBeta == -math.MaxFloat64 {
				beta /= 2
			} else {
				beta = (beta + minBeta) / 2
			}
		}
	}

	normalizeRow(out, sumP)

	return false
}

func normalizeRow(out []float32, sumP float64) {
	for m := range out {
		out[m] = float32(float64(out[m]) / sumP)
	}
}
