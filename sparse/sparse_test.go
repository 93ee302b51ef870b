package sparse

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFixedDegree(t *testing.T) {
	m := NewFixedDegree(4, 3)

	assert.Equal(t, 4, m.N)
	assert.Equal(t, []int{0, 3, 6, 9, 12}, m.RowPtr)
	assert.Equal(t, 12, m.NNZ())
	assert.Len(t, m.ColIdx, 12)
	assert.Len(t, m.Val, 12)
}

func TestSumAndScale(t *testing.T) {
	m := &Matrix{
		N:      2,
		RowPtr: []int{0, 1, 2},
		ColIdx: []int32{1, 0},
		Val:    []float32{0.25, 0.75},
	}

	assert.InDelta(t, 1.0, m.Sum(), 1e-12)

	m.Scale(2)
	assert.Equal(t, []float32{0.5, 1.5}, m.Val)
}

func TestSymmetrize(t *testing.T) {
	t.Run("mutual pair averages both directions", func(t *testing.T) {
		m := &Matrix{
			N:      2,
			RowPtr: []int{0, 1, 2},
			ColIdx: []int32{1, 0},
			Val:    []float32{0.6, 0.2},
		}

		s := Symmetrize(m)

		require.Equal(t, 2, s.NNZ())
		cols0, vals0 := s.Row(0)
		cols1, vals1 := s.Row(1)
		assert.Equal(t, []int32{1}, cols0)
		assert.Equal(t, []int32{0}, cols1)
		assert.Equal(t, []float32{0.4}, vals0)
		assert.Equal(t, []float32{0.4}, vals1)
	})

	t.Run("one-directional edges are mirrored and halved", func(t *testing.T) {
		// 0 -> 1, 1 -> 2, 2 -> 0: no edge has a reciprocal.
		m := &Matrix{
			N:      3,
			RowPtr: []int{0, 1, 2, 3},
			ColIdx: []int32{1, 2, 0},
			Val:    []float32{0.9, 0.5, 0.3},
		}

		s := Symmetrize(m)

		require.Equal(t, 6, s.NNZ())
		assert.Equal(t, []int{0, 2, 4, 6}, s.RowPtr)

		got := entryMap(s)
		assert.Equal(t, float32(0.45), got[[2]int32{0, 1}])
		assert.Equal(t, float32(0.45), got[[2]int32{1, 0}])
		assert.Equal(t, float32(0.25), got[[2]int32{1, 2}])
		assert.Equal(t, float32(0.25), got[[2]int32{2, 1}])
		assert.Equal(t, float32(0.15), got[[2]int32{2, 0}])
		assert.Equal(t, float32(0.15), got[[2]int32{0, 2}])
	})

	t.Run("mixed mutual and one-directional", func(t *testing.T) {
		m := &Matrix{
			N:      3,
			RowPtr: []int{0, 2, 3, 4},
			ColIdx: []int32{1, 2, 0, 1},
			Val:    []float32{0.2, 0.4, 0.6, 0.8},
		}

		s := Symmetrize(m)

		require.Equal(t, 6, s.NNZ())

		got := entryMap(s)
		assert.Equal(t, float32(0.4), got[[2]int32{0, 1}]) // (0.2 + 0.6) / 2
		assert.Equal(t, float32(0.4), got[[2]int32{1, 0}])
		assert.Equal(t, float32(0.2), got[[2]int32{0, 2}]) // 0.4 / 2
		assert.Equal(t, float32(0.2), got[[2]int32{2, 0}])
		assert.Equal(t, float32(0.4), got[[2]int32{1, 2}]) // 0.8 / 2
		assert.Equal(t, float32(0.4), got[[2]int32{2, 1}])
	})

	t.Run("self-loop stays a single entry", func(t *testing.T) {
		// A self-loop is its own reciprocal. It must occupy exactly one
		// slot in its row without corrupting the neighbors' slots.
		m := &Matrix{
			N:      2,
			RowPtr: []int{0, 2, 3},
			ColIdx: []int32{0, 1, 0},
			Val:    []float32{0.5, 0.2, 0.6},
		}

		s := Symmetrize(m)

		require.Equal(t, 3, s.NNZ())
		require.Equal(t, []int{0, 2, 3}, s.RowPtr)

		got := entryMap(s)
		assert.Equal(t, float32(0.5), got[[2]int32{0, 0}])
		assert.Equal(t, float32(0.4), got[[2]int32{0, 1}])
		assert.Equal(t, float32(0.4), got[[2]int32{1, 0}])
	})

	t.Run("input is not modified", func(t *testing.T) {
		m := &Matrix{
			N:      2,
			RowPtr: []int{0, 1, 2},
			ColIdx: []int32{1, 0},
			Val:    []float32{0.6, 0.2},
		}

		_ = Symmetrize(m)

		assert.Equal(t, []float32{0.6, 0.2}, m.Val)
		assert.Equal(t, []int32{1, 0}, m.ColIdx)
	})
}

func TestSymmetrizeStructuralSymmetry(t *testing.T) {
	const (
		n = 60
		k = 5
	)

	rng := rand.New(rand.NewSource(13))

	m := NewFixedDegree(n, k)
	for i := 0; i < n; i++ {
		cols, vals := m.Row(i)
		seen := map[int32]bool{int32(i): true}
		for e := range cols {
			for {
				c := int32(rng.Intn(n))
				if !seen[c] {
					seen[c] = true
					cols[e] = c
					break
				}
			}
			vals[e] = rng.Float32()
		}
	}

	s := Symmetrize(m)

	// Every entry has its mirror with the exact same stored value.
	got := entryMap(s)
	require.Equal(t, s.NNZ(), len(got), "duplicate entries in output")
	for key, v := range got {
		mirror, ok := got[[2]int32{key[1], key[0]}]
		require.True(t, ok, "missing mirror of (%d,%d)", key[0], key[1])
		assert.Equal(t, v, mirror)
	}

	// Total mass is preserved before the caller normalizes.
	assert.InDelta(t, m.Sum(), s.Sum(), 1e-6)
}

func entryMap(m *Matrix) map[[2]int32]float32 {
	got := make(map[[2]int32]float32, m.NNZ())
	for i := 0; i < m.N; i++ {
		cols, vals := m.Row(i)
		for e := range cols {
			got[[2]int32{int32(i), cols[e]}] = vals[e]
		}
	}
	return got
}
