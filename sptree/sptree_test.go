package sptree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tsnego/testutil"
)

// exactForces is the O(n^2) reference the tree approximates: the repulsive
// force on a point and its contribution to the normalization term.
func exactForces(y []float32, n, dims, point int) ([]float64, float64) {
	negF := make([]float64, dims)
	sumQ := 0.0

	for j := 0; j < n; j++ {
		if j == point {
			continue
		}

		d2 := 0.0
		for d := 0; d < dims; d++ {
			diff := float64(y[point*dims+d]) - float64(y[j*dims+d])
			d2 += diff * diff
		}

		q := 1.0 / (1.0 + d2)
		sumQ += q
		for d := 0; d < dims; d++ {
			diff := float64(y[point*dims+d]) - float64(y[j*dims+d])
			negF[d] += q * q * diff
		}
	}

	return negF, sumQ
}

func TestTreeExactWhenThetaZero(t *testing.T) {
	const (
		n    = 150
		dims = 2
	)

	rng := testutil.NewRNG(7)
	y := rng.UniformMatrix(n, dims)

	tree := New(y, n, dims)

	// The largest force component sets the scale for the float32
	// accumulation error.
	scale := 0.0
	type result struct {
		negF []float32
		sumQ float64
	}
	got := make([]result, n)
	want := make([]result, n)

	for i := 0; i < n; i++ {
		negF := make([]float32, dims)
		sumQ := tree.ComputeNonEdgeForces(i, 0, negF)
		got[i] = result{negF: negF, sumQ: sumQ}

		exact, exactSumQ := exactForces(y, n, dims, i)
		w := make([]float32, dims)
		for d := range exact {
			w[d] = float32(exact[d])
			scale = math.Max(scale, math.Abs(exact[d]))
		}
		want[i] = result{negF: w, sumQ: exactSumQ}
	}

	for i := 0; i < n; i++ {
		require.InEpsilon(t, want[i].sumQ, got[i].sumQ, 1e-9, "sumQ mismatch for point %d", i)
		for d := 0; d < dims; d++ {
			diff := math.Abs(float64(got[i].negF[d]) - float64(want[i].negF[d]))
			require.LessOrEqual(t, diff, 1e-4*scale+1e-6, "negF[%d] mismatch for point %d", d, i)
		}
	}
}

func TestTreeApproximationBoundedError(t *testing.T) {
	const (
		n     = 400
		dims  = 2
		theta = 0.5
	)

	rng := testutil.NewRNG(21)
	y, _ := rng.GaussianBlobs(4, n/4, dims, 10, 1)

	tree := New(y, n, dims)

	var gotTotal, wantTotal float64
	for i := 0; i < n; i++ {
		negF := make([]float32, dims)
		sumQ := tree.ComputeNonEdgeForces(i, theta, negF)

		_, exactSumQ := exactForces(y, n, dims, i)
		gotTotal += sumQ
		wantTotal += exactSumQ

		assert.InEpsilon(t, exactSumQ, sumQ, 0.2, "point %d drifted too far from the exact sum", i)
		for d := 0; d < dims; d++ {
			require.False(t, math.IsNaN(float64(negF[d])) || math.IsInf(float64(negF[d]), 0))
		}
	}

	// Individual points may trade accuracy for speed, but the aggregate
	// normalization term must stay close to the exact one.
	assert.InEpsilon(t, wantTotal, gotTotal, 0.05)
}

func TestTreeErrorGrowsWithTheta(t *testing.T) {
	const (
		n    = 400
		dims = 2
	)

	rng := testutil.NewRNG(13)
	y, _ := rng.GaussianBlobs(4, n/4, dims, 10, 1)

	tree := New(y, n, dims)

	// Aggregate L2 distance between approximate and exact force vectors,
	// and the largest exact force component for scale.
	forceError := func(theta float64) (float64, float64) {
		var total, scale float64
		for i := 0; i < n; i++ {
			negF := make([]float32, dims)
			tree.ComputeNonEdgeForces(i, theta, negF)

			exact, _ := exactForces(y, n, dims, i)

			var d2 float64
			for d := 0; d < dims; d++ {
				diff := float64(negF[d]) - exact[d]
				d2 += diff * diff
				scale = math.Max(scale, math.Abs(exact[d]))
			}
			total += math.Sqrt(d2)
		}
		return total, scale
	}

	tight, scale := forceError(0.1)
	mid, _ := forceError(0.4)
	coarse, _ := forceError(0.8)

	// theta=0.1 summarizes only far-away cells, so its error is near the
	// float32 accumulation noise; theta=0.8 summarizes aggressively.
	assert.Less(t, tight, 1e-3*scale*n)
	assert.Less(t, mid, 0.05*scale*n)
	assert.Less(t, coarse, 0.2*scale*n)
	assert.Greater(t, coarse, tight, "coarser approximation should cost accuracy")
}

func TestTreeCoincidentPoints(t *testing.T) {
	t.Run("pair shares one leaf", func(t *testing.T) {
		y := []float32{1, 2, 1, 2}
		tree := New(y, 2, 2)

		// The occupant's leaf is skipped for the occupant itself.
		negF := make([]float32, 2)
		sumQ := tree.ComputeNonEdgeForces(0, 0, negF)
		assert.Zero(t, sumQ)
		assert.Equal(t, []float32{0, 0}, negF)

		// The absorbed point sees the leaf with the full count at zero
		// distance.
		negF = make([]float32, 2)
		sumQ = tree.ComputeNonEdgeForces(1, 0, negF)
		assert.InDelta(t, 2.0, sumQ, 1e-12)
		assert.Equal(t, []float32{0, 0}, negF)
	})

	t.Run("all points coincident terminates", func(t *testing.T) {
		const n = 5
		y := make([]float32, 2*n)
		for i := 0; i < n; i++ {
			y[2*i], y[2*i+1] = -3, 4
		}

		tree := New(y, n, 2)

		negF := make([]float32, 2)
		assert.Zero(t, tree.ComputeNonEdgeForces(0, 0.5, negF))
		assert.InDelta(t, float64(n), tree.ComputeNonEdgeForces(3, 0.5, negF), 1e-12)
	})

	t.Run("duplicates among distinct points terminate", func(t *testing.T) {
		rng := testutil.NewRNG(3)
		y := rng.UniformMatrix(40, 2)
		copy(y[10*2:11*2], y[4*2:5*2]) // duplicate point 4 into slot 10

		tree := New(y, 40, 2)

		for i := 0; i < 40; i++ {
			negF := make([]float32, 2)
			sumQ := tree.ComputeNonEdgeForces(i, 0.5, negF)
			require.False(t, math.IsNaN(sumQ) || math.IsInf(sumQ, 0))
		}
	})
}

func TestTreeSinglePoint(t *testing.T) {
	tree := New([]float32{5, -7}, 1, 2)

	negF := make([]float32, 2)
	assert.Zero(t, tree.ComputeNonEdgeForces(0, 0.5, negF))
	assert.Equal(t, []float32{0, 0}, negF)
}

func TestTreeThreeDimensions(t *testing.T) {
	const (
		n    = 120
		dims = 3
	)

	rng := testutil.NewRNG(11)
	y := rng.UniformMatrix(n, dims)

	tree := New(y, n, dims)

	for i := 0; i < n; i++ {
		negF := make([]float32, dims)
		sumQ := tree.ComputeNonEdgeForces(i, 0, negF)

		_, exactSumQ := exactForces(y, n, dims, i)
		require.InEpsilon(t, exactSumQ, sumQ, 1e-9, "point %d", i)
	}
}

func BenchmarkComputeNonEdgeForces(b *testing.B) {
	const (
		n    = 2000
		dims = 2
	)

	rng := testutil.NewRNG(42)
	y, _ := rng.GaussianBlobs(8, n/8, dims, 10, 1)

	tree := New(y, n, dims)
	negF := make([]float32, dims)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		negF[0], negF[1] = 0, 0
		tree.ComputeNonEdgeForces(i%n, 0.5, negF)
	}
}
