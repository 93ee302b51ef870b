package affinity

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tsnego/testutil"
)

// rowEntropy computes the Shannon entropy (in nats) of a normalized row.
func rowEntropy(p []float32) float64 {
	h := 0.0
	for _, v := range p {
		if v <= 0 {
			continue
		}
		h -= float64(v) * math.Log(float64(v))
	}

	return h
}

func TestBinarySearchRowSums(t *testing.T) {
	const (
		n          = 50
		k          = 35
		perplexity = 10.0
	)

	rng := testutil.NewRNG(5)
	dists := rng.UniformMatrix(n, k)
	out := make([]float32, n*k)

	cal := &BinarySearch{}
	stats, err := cal.CalibrateRows(context.Background(), dists, n, k, perplexity, 1e-5, out)
	require.NoError(t, err)

	assert.Equal(t, n, stats.Rows)
	assert.Zero(t, stats.Unconverged)

	for i := 0; i < n; i++ {
		var sum float64
		for _, v := range out[i*k : (i+1)*k] {
			require.GreaterOrEqual(t, v, float32(0))
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-4, "row %d", i)
	}
}

func TestBinarySearchMatchesTargetEntropy(t *testing.T) {
	const (
		n          = 40
		k          = 30
		perplexity = 7.5
	)

	rng := testutil.NewRNG(9)
	dists := rng.UniformMatrix(n, k)
	out := make([]float32, n*k)

	cal := &BinarySearch{}
	_, err := cal.CalibrateRows(context.Background(), dists, n, k, perplexity, 1e-5, out)
	require.NoError(t, err)

	target := math.Log(perplexity)
	for i := 0; i < n; i++ {
		assert.InDelta(t, target, rowEntropy(out[i*k:(i+1)*k]), 1e-3, "row %d", i)
	}
}

func TestBinarySearchUnconvergedRows(t *testing.T) {
	const (
		n          = 3
		k          = 5
		perplexity = 2.0
	)

	rng := testutil.NewRNG(13)
	dists := rng.UniformMatrix(n, k)

	// A row of all-zero distances has constant entropy log(k) regardless of
	// the bandwidth, so the search for log(2) can never converge.
	for m := 0; m < k; m++ {
		dists[1*k+m] = 0
	}

	out := make([]float32, n*k)

	cal := &BinarySearch{TrackRows: true}
	stats, err := cal.CalibrateRows(context.Background(), dists, n, k, perplexity, 1e-5, out)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Unconverged)
	assert.Equal(t, []int{1}, stats.UnconvergedRows)

	// The degenerate row still carries its best effort: a uniform
	// distribution over the k neighbors.
	for m := 0; m < k; m++ {
		assert.InDelta(t, 1.0/k, out[1*k+m], 1e-6)
	}
}

func TestBinarySearchWorkerCountInvariance(t *testing.T) {
	const (
		n          = 64
		k          = 20
		perplexity = 5.0
	)

	rng := testutil.NewRNG(17)
	dists := rng.UniformMatrix(n, k)

	single := make([]float32, n*k)
	cal := &BinarySearch{Workers: 1}
	_, err := cal.CalibrateRows(context.Background(), dists, n, k, perplexity, 1e-5, single)
	require.NoError(t, err)

	many := make([]float32, n*k)
	cal = &BinarySearch{Workers: 7}
	_, err = cal.CalibrateRows(context.Background(), dists, n, k, perplexity, 1e-5, many)
	require.NoError(t, err)

	assert.Equal(t, single, many)
}

func TestCalibrateRowsValidation(t *testing.T) {
	cal := &BinarySearch{}

	_, err := cal.CalibrateRows(context.Background(), nil, 0, 0, 30, 1e-5, nil)
	assert.Error(t, err)

	_, err = cal.CalibrateRows(context.Background(), make([]float32, 10), 2, 4, 30, 1e-5, make([]float32, 8))
	assert.Error(t, err)

	_, err = cal.CalibrateRows(context.Background(), make([]float32, 8), 2, 4, 30, 1e-5, make([]float32, 10))
	assert.Error(t, err)
}

func TestCalibrateRowsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cal := &BinarySearch{}
	_, err := cal.CalibrateRows(ctx, make([]float32, 4*10), 4, 10, 3, 1e-5, make([]float32, 4*10))
	assert.ErrorIs(t, err, context.Canceled)
}
