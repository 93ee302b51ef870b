// Package sptree implements the space-partitioning tree that approximates
// the repulsive forces between embedding points.
//
// The tree recursively halves the bounding cell of the embedding into 2^dims
// children and tracks the centroid and point count of every cell. A force
// query walks the tree and, whenever a cell is small relative to its distance
// from the query point, substitutes the whole cell by its centroid weighted
// with its point count. The accuracy/speed trade-off is controlled by the
// summarization threshold theta: 0 degenerates to the exact pairwise sum.
package sptree

import "math"

// Tree is an immutable space-partitioning tree over a flat row-major
// embedding matrix. The tree holds a reference to the caller's matrix and
// never mutates it. After construction it is safe for concurrent force
// queries as long as each caller accumulates into its own negF row.
type Tree struct {
	points []float32
	dims   int
	root   *node
}

// node is a cell of the partition. Geometry is kept in float64 so deeply
// subdivided cells keep containing their points. A node with nil children is
// a leaf holding at most one distinct point; coincident points are absorbed
// into the occupant's leaf and only grow its count.
type node struct {
	center    []float64
	halfWidth []float64
	maxWidth  float64

	centroid []float64
	count    int
	occupant int32

	children []*node
}

// New builds a tree over a flat row-major n x dims embedding. The bounding
// cell is centered on the per-dimension mean and padded slightly so every
// point is strictly inside it. Construction is sequential and deterministic
// for a given input.
func New(y []float32, n, dims int) *Tree {
	t := &Tree{points: y, dims: dims}
	if n <= 0 {
		return t
	}

	mean := make([]float64, dims)
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for d := 0; d < dims; d++ {
		v := float64(y[d])
		lo[d], hi[d] = v, v
	}
	for i := 0; i < n; i++ {
		for d := 0; d < dims; d++ {
			v := float64(y[i*dims+d])
			mean[d] += v
			if v < lo[d] {
				lo[d] = v
			}
			if v > hi[d] {
				hi[d] = v
			}
		}
	}

	center := make([]float64, dims)
	half := make([]float64, dims)
	for d := 0; d < dims; d++ {
		c := mean[d] / float64(n)
		center[d] = c
		half[d] = math.Max(hi[d]-c, c-lo[d]) + 1e-5
	}

	t.root = t.newNode(center, half)
	for i := 0; i < n; i++ {
		t.insert(t.root, int32(i))
	}

	return t
}

// ComputeNonEdgeForces accumulates the Barnes-Hut approximation of the
// repulsive force acting on the given point into negF, which must have one
// slot per output dimension, and returns the point's contribution to the
// normalization term sum(1 / (1 + d^2)) over all other points.
//
// theta is the summarization threshold: a cell is used as a summary when its
// widest extent divided by the distance to its centroid is below theta.
func (t *Tree) ComputeNonEdgeForces(point int, theta float64, negF []float32) float64 {
	if t.root == nil {
		return 0
	}

	buff := make([]float64, t.dims)

	return t.accumulate(t.root, point, theta, negF, buff)
}

func (t *Tree) newNode(center, half []float64) *node {
	maxw := 0.0
	for _, w := range half {
		if w > maxw {
			maxw = w
		}
	}

	return &node{
		center:    center,
		halfWidth: half,
		maxWidth:  maxw,
		centroid:  make([]float64, t.dims),
		occupant:  -1,
	}
}

func (t *Tree) row(i int32) []float32 {
	return t.points[int(i)*t.dims : (int(i)+1)*t.dims]
}

// insert routes point i into the subtree under nd, updating count and
// centroid of every cell on the way down. It reports whether the point was
// placed, so subdivision can scan children until one accepts it.
func (t *Tree) insert(nd *node, i int32) bool {
	p := t.row(i)
	if !nd.contains(p) {
		return false
	}

	nd.count++
	inv := 1.0 / float64(nd.count)
	for d := 0; d < t.dims; d++ {
		nd.centroid[d] += (float64(p[d]) - nd.centroid[d]) * inv
	}

	if nd.children == nil {
		if nd.occupant < 0 {
			nd.occupant = i
			return true
		}

		// A coincident point can never be separated by subdividing, so it
		// is absorbed: the occupant stands in for it with a higher count.
		if equalRows(t.row(nd.occupant), p) {
			return true
		}

		t.subdivide(nd)
	}

	for _, c := range nd.children {
		if t.insert(c, i) {
			return true
		}
	}

	return false // unreachable: the children tile the cell exactly
}

// subdivide splits a full leaf into 2^dims children and reroutes its
// occupant. Child c lies on the negative side of dimension d when bit d of c
// is set. The parent keeps its count and centroid.
func (t *Tree) subdivide(nd *node) {
	children := make([]*node, 1<<uint(t.dims))
	for c := range children {
		center := make([]float64, t.dims)
		half := make([]float64, t.dims)
		for d := 0; d < t.dims; d++ {
			half[d] = nd.halfWidth[d] / 2
			if (c>>uint(d))&1 == 1 {
				center[d] = nd.center[d] - half[d]
			} else {
				center[d] = nd.center[d] + half[d]
			}
		}
		children[c] = t.newNode(center, half)
	}

	occ := nd.occupant
	nd.occupant = -1
	nd.children = children

	for _, c := range children {
		if t.insert(c, occ) {
			return
		}
	}
}

func (t *Tree) accumulate(nd *node, point int, theta float64, negF []float32, buff []float64) float64 {
	// Empty cells contribute nothing; the leaf occupied by the query point
	// is skipped so the point exerts no force on itself. Duplicates that
	// were absorbed into that leaf are skipped with it: they sit at zero
	// distance and could only contribute a forceless normalization term.
	if nd.count == 0 || (nd.children == nil && nd.occupant == int32(point)) {
		return 0
	}

	d2 := 0.0
	row := t.row(int32(point))
	for d, v := range row {
		buff[d] = float64(v) - nd.centroid[d]
		d2 += buff[d] * buff[d]
	}

	// A zero distance to the centroid yields +Inf here, which correctly
	// forces a descent into the children.
	if nd.children == nil || nd.maxWidth/math.Sqrt(d2) < theta {
		q := 1.0 / (1.0 + d2)
		mult := float64(nd.count) * q
		sumQ := mult
		mult *= q
		for d := range buff {
			negF[d] += float32(mult * buff[d])
		}

		return sumQ
	}

	var sumQ float64
	for _, c := range nd.children {
		sumQ += t.accumulate(c, point, theta, negF, buff)
	}

	return sumQ
}

func (nd *node) contains(p []float32) bool {
	for d, c := range nd.center {
		v := float64(p[d])
		if v < c-nd.halfWidth[d] || v > c+nd.halfWidth[d] {
			return false
		}
	}

	return true
}

func equalRows(a, b []float32) bool {
	for d := range a {
		if a[d] != b[d] {
			return false
		}
	}

	return true
}
