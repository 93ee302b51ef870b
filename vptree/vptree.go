// Package vptree implements an exact k-nearest-neighbor index using a
// vantage-point tree.
//
// The tree partitions points by distance to randomly chosen vantage points:
// each node splits its segment at the median distance to the vantage point,
// so a search can discard whole subtrees with the triangle inequality.
// Results stay exact for either reporting metric because pruning is always
// performed with true Euclidean distances internally.
package vptree

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hupe1980/tsnego/internal/vecmath"
)

// ErrKExceedsSize is returned when a search requests more neighbors than the
// tree contains.
var ErrKExceedsSize = errors.New("vptree: k exceeds index size")

// Metric represents the distance reported for search results.
type Metric int

// Constants representing the supported reporting metrics.
const (
	MetricSquaredL2 Metric = iota
	MetricL2
)

// String returns a string representation of the Metric.
func (m Metric) String() string {
	switch m {
	case MetricSquaredL2:
		return "SquaredL2"
	case MetricL2:
		return "L2"
	default:
		return "Unknown"
	}
}

// Options represents the options for configuring the tree.
type Options struct {
	// Metric selects the distance reported for search results.
	Metric Metric

	// RandomSeed drives vantage-point selection. Nil means seeded from the
	// clock; identical seeds over identical input produce identical trees.
	RandomSeed *int64
}

// DefaultOptions contains the default configuration options for the tree.
var DefaultOptions = Options{
	Metric: MetricSquaredL2,
}

// Tree is an immutable vantage-point tree over a flat row-major point
// matrix. The tree holds a reference to the caller's matrix and never
// mutates it. It is safe for concurrent searches after construction.
type Tree struct {
	points []float32
	n      int
	dim    int
	root   *node
	opts   Options
}

// node is a tree node. threshold holds the true (non-squared) distance from
// the vantage point to the median point of its segment, so search pruning
// can rely on the triangle inequality.
type node struct {
	index     int32
	threshold float32
	closer    *node // subtree with distance <= threshold
	farther   *node // subtree with distance >= threshold
}

// New builds a tree over a flat row-major n x dim point matrix.
// Construction is a sequential one-shot pass; the tree is immutable
// afterwards.
func New(points []float32, n, dim int, optFns ...func(o *Options)) (*Tree, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if n <= 0 {
		return nil, fmt.Errorf("vptree: point count must be positive, got %d", n)
	}

	if dim <= 0 {
		return nil, fmt.Errorf("vptree: dimension must be positive, got %d", dim)
	}

	if len(points) != n*dim {
		return nil, fmt.Errorf("vptree: expected %d values (%d x %d), got %d", n*dim, n, dim, len(points))
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	t := &Tree{
		points: points,
		n:      n,
		dim:    dim,
		opts:   opts,
	}

	items := make([]int32, n)
	for i := range items {
		items[i] = int32(i)
	}

	b := &builder{
		tree:  t,
		items: items,
		dists: make([]float32, n),
		rng:   rng,
	}
	t.root = b.build(0, n)

	return t, nil
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return t.n }

// Dimension returns the dimensionality of the indexed points.
func (t *Tree) Dimension() int { return t.dim }

// Search returns the ids of the k nearest neighbors of query ordered by
// ascending distance, together with their distances in the configured
// metric. Searching the coordinates of an indexed point returns that point
// itself at distance zero as the first result; callers that want k true
// neighbors of an indexed point should ask for k+1 and skip it.
func (t *Tree) Search(query []float32, k int) ([]int32, []float32, error) {
	if len(query) != t.dim {
		return nil, nil, fmt.Errorf("vptree: query dimension mismatch: expected %d, got %d", t.dim, len(query))
	}

	if k <= 0 {
		return nil, nil, fmt.Errorf("vptree: k must be positive, got %d", k)
	}

	if k > t.n {
		return nil, nil, ErrKExceedsSize
	}

	s := &searcher{
		tree:  t,
		query: query,
		k:     k,
		tau:   math.MaxFloat32,
	}
	s.candidates.items = make([]neighbor, 0, k)
	s.visit(t.root)

	// Drain the max-heap farthest first, filling results back to front.
	ids := make([]int32, s.candidates.Len())
	dists := make([]float32, s.candidates.Len())
	for i := s.candidates.Len() - 1; i >= 0; i-- {
		nb, _ := heap.Pop(&s.candidates).(neighbor)
		ids[i] = nb.index
		dists[i] = t.reportDistance(nb.dist)
	}

	return ids, dists, nil
}

func (t *Tree) point(i int32) []float32 {
	return t.points[int(i)*t.dim : (int(i)+1)*t.dim]
}

func (t *Tree) reportDistance(d2 float32) float32 {
	if t.opts.Metric == MetricL2 {
		return float32(math.Sqrt(float64(d2)))
	}

	return d2
}

// builder holds the shared construction state. items is permuted in place;
// dists is a position-aligned scratch buffer for segment distances.
type builder struct {
	tree  *Tree
	items []int32
	dists []float32
	rng   *rand.Rand
}

// build constructs the subtree over items[lower:upper).
func (b *builder) build(lower, upper int) *node {
	if upper == lower {
		return nil
	}

	nd := &node{index: b.items[lower]}

	if upper-lower > 1 {
		// Move a random vantage point to the segment front.
		i := lower + b.rng.Intn(upper-lower)
		b.items[lower], b.items[i] = b.items[i], b.items[lower]

		vantage := b.tree.point(b.items[lower])
		for pos := lower + 1; pos < upper; pos++ {
			b.dists[pos] = vecmath.SquaredL2(vantage, b.tree.point(b.items[pos]))
		}

		median := (upper + lower) / 2
		b.selectNth(lower+1, upper, median)

		nd.threshold = float32(math.Sqrt(float64(b.dists[median])))
		nd.closer = b.build(lower+1, median)
		nd.farther = b.build(median, upper)
	}

	return nd
}

// selectNth partially orders items[lo:hi) by distance so that position m
// holds the element a full sort would place there, with smaller distances
// before it and larger ones after. Hoare-partition quickselect; dists moves
// in lockstep with items.
func (b *builder) selectNth(lo, hi, m int) {
	hi--

	for lo < hi {
		pivot := b.dists[(lo+hi)/2]

		i, j := lo, hi
		for i <= j {
			for b.dists[i] < pivot {
				i++
			}
			for b.dists[j] > pivot {
				j--
			}
			if i <= j {
				b.dists[i], b.dists[j] = b.dists[j], b.dists[i]
				b.items[i], b.items[j] = b.items[j], b.items[i]
				i++
				j--
			}
		}

		switch {
		case m <= j:
			hi = j
		case m >= i:
			lo = i
		default:
			return
		}
	}
}

// searcher holds the per-query state. tau is the true-distance radius of the
// current candidate set; it tightens as candidates accumulate.
type searcher struct {
	tree       *Tree
	query      []float32
	k          int
	tau        float32
	candidates neighborHeap
}

func (s *searcher) visit(nd *node) {
	if nd == nil {
		return
	}

	d2 := vecmath.SquaredL2(s.tree.point(nd.index), s.query)
	dist := float32(math.Sqrt(float64(d2)))

	if dist < s.tau {
		if s.candidates.Len() == s.k {
			heap.Pop(&s.candidates)
		}

		heap.Push(&s.candidates, neighbor{index: nd.index, dist: d2})

		if s.candidates.Len() == s.k {
			s.tau = float32(math.Sqrt(float64(s.candidates.Top().dist)))
		}
	}

	if nd.closer == nil && nd.farther == nil {
		return
	}

	// Descend into the half containing the query first; the other half can
	// only hold closer points if the query ball crosses the threshold.
	if dist < nd.threshold {
		if dist-s.tau <= nd.threshold {
			s.visit(nd.closer)
		}
		if dist+s.tau >= nd.threshold {
			s.visit(nd.farther)
		}
	} else {
		if dist+s.tau >= nd.threshold {
			s.visit(nd.farther)
		}
		if dist-s.tau <= nd.threshold {
			s.visit(nd.closer)
		}
	}
}
