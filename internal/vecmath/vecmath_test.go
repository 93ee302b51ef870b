package vecmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquaredL2(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		a := []float32{1, 2, 3}
		assert.Equal(t, float32(0), SquaredL2(a, a))
	})

	t.Run("known distance", func(t *testing.T) {
		a := []float32{0, 0}
		b := []float32{3, 4}
		assert.Equal(t, float32(25), SquaredL2(a, b))
	})

	t.Run("symmetry", func(t *testing.T) {
		a := []float32{1.5, -2.25, 0.5}
		b := []float32{-0.5, 4, 1}
		assert.Equal(t, SquaredL2(a, b), SquaredL2(b, a))
	})
}

func TestScaleInPlace(t *testing.T) {
	a := []float32{1, -2, 4}
	ScaleInPlace(a, 0.5)
	assert.Equal(t, []float32{0.5, -1, 2}, a)
}

func TestMax(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, float32(0), Max(nil))
	})

	t.Run("all negative", func(t *testing.T) {
		assert.Equal(t, float32(-1), Max([]float32{-5, -1, -3}))
	})

	t.Run("mixed", func(t *testing.T) {
		assert.Equal(t, float32(7), Max([]float32{3, 7, -2, 5}))
	})
}

func TestZeroMean(t *testing.T) {
	t.Run("two points", func(t *testing.T) {
		x := []float32{0, 10, 4, 20}
		ZeroMean(x, 2, 2)
		assert.Equal(t, []float32{-2, -5, 2, 5}, x)
	})

	t.Run("column means become zero", func(t *testing.T) {
		x := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
		ZeroMean(x, 3, 3)

		for d := 0; d < 3; d++ {
			var sum float32
			for i := 0; i < 3; i++ {
				sum += x[i*3+d]
			}
			assert.InDelta(t, 0, sum, 1e-5)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.NotPanics(t, func() {
			ZeroMean(nil, 0, 0)
		})
	})
}
