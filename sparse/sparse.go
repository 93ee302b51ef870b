// Package sparse provides the compressed sparse row matrix that backs the
// neighbor affinity graph, along with the symmetrization step that turns
// directed conditional affinities into joint ones.
package sparse

// Matrix is a compressed sparse row matrix. Row i owns the entries in
// ColIdx[RowPtr[i]:RowPtr[i+1]] and Val[RowPtr[i]:RowPtr[i+1]]; columns
// within a row are unique but not necessarily sorted.
type Matrix struct {
	N      int
	RowPtr []int
	ColIdx []int32
	Val    []float32
}

// NewFixedDegree creates an n-row matrix with exactly k entries per row,
// columns and values zeroed. This is the shape a k-nearest-neighbor graph
// fills in row by row.
func NewFixedDegree(n, k int) *Matrix {
	m := &Matrix{
		N:      n,
		RowPtr: make([]int, n+1),
		ColIdx: make([]int32, n*k),
		Val:    make([]float32, n*k),
	}

	for i := 0; i < n; i++ {
		m.RowPtr[i+1] = m.RowPtr[i] + k
	}

	return m
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return m.RowPtr[m.N]
}

// Row returns the column indices and values of row i. The returned slices
// alias the matrix buffers.
func (m *Matrix) Row(i int) ([]int32, []float32) {
	return m.ColIdx[m.RowPtr[i]:m.RowPtr[i+1]], m.Val[m.RowPtr[i]:m.RowPtr[i+1]]
}

// Sum returns the sum of all stored values, accumulated in entry order.
func (m *Matrix) Sum() float64 {
	var sum float64
	for _, v := range m.Val {
		sum += float64(v)
	}

	return sum
}

// Scale multiplies every stored value by s.
func (m *Matrix) Scale(s float32) {
	for i := range m.Val {
		m.Val[i] *= s
	}
}

// Symmetrize builds the symmetric affinity matrix from a directed neighbor
// graph: out[i][j] = out[j][i] = (in[i][j] + in[j][i]) / 2, where absent
// entries count as zero. The input is not modified. The output is
// structurally symmetric: every (i, j) entry has a (j, i) entry holding the
// same value.
//
// Reciprocal lookups go through a packed-key position index built in one
// pass over the input, so the whole operation is O(NNZ) instead of the
// O(NNZ * k) of scanning each neighbor's row.
func Symmetrize(m *Matrix) *Matrix {
	pos := make(map[uint64]int, m.NNZ())
	for i := 0; i < m.N; i++ {
		for e := m.RowPtr[i]; e < m.RowPtr[i+1]; e++ {
			pos[packKey(int32(i), m.ColIdx[e])] = e
		}
	}

	// Counting pass: a mutual pair contributes one entry to each of its two
	// rows; a one-directional edge contributes one entry to both rows too,
	// but is discovered from one side only.
	rowCounts := make([]int, m.N)
	for i := 0; i < m.N; i++ {
		for e := m.RowPtr[i]; e < m.RowPtr[i+1]; e++ {
			j := m.ColIdx[e]
			if _, mutual := pos[packKey(j, int32(i))]; mutual {
				rowCounts[i]++
			} else {
				rowCounts[i]++
				rowCounts[j]++
			}
		}
	}

	out := &Matrix{
		N:      m.N,
		RowPtr: make([]int, m.N+1),
	}
	for i := 0; i < m.N; i++ {
		out.RowPtr[i+1] = out.RowPtr[i] + rowCounts[i]
	}
	out.ColIdx = make([]int32, out.RowPtr[m.N])
	out.Val = make([]float32, out.RowPtr[m.N])

	// Fill pass. Mutual pairs are written once, from the row with the
	// smaller index, into both rows at once; one-directional edges are
	// mirrored unchanged.
	offset := make([]int, m.N)
	for i := 0; i < m.N; i++ {
		for e := m.RowPtr[i]; e < m.RowPtr[i+1]; e++ {
			j := m.ColIdx[e]

			r, mutual := pos[packKey(j, int32(i))]
			if mutual {
				if int32(i) > j {
					continue // already written from row j
				}

				v := m.Val[e] + m.Val[r]
				out.ColIdx[out.RowPtr[i]+offset[i]] = j
				out.Val[out.RowPtr[i]+offset[i]] = v
				out.ColIdx[out.RowPtr[j]+offset[j]] = int32(i)
				out.Val[out.RowPtr[j]+offset[j]] = v
			} else {
				out.ColIdx[out.RowPtr[i]+offset[i]] = j
				out.Val[out.RowPtr[i]+offset[i]] = m.Val[e]
				out.ColIdx[out.RowPtr[j]+offset[j]] = int32(i)
				out.Val[out.RowPtr[j]+offset[j]] = m.Val[e]
			}

			offset[i]++
			if j != int32(i) {
				offset[j]++
			}
		}
	}

	for i := range out.Val {
		out.Val[i] /= 2
	}

	return out
}

func packKey(i, j int32) uint64 {
	return uint64(uint32(i))<<32 | uint64(uint32(j))
}
