package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/tsnego/internal/vecmath"
)

// SearchResult represents a ground-truth search result.
type SearchResult struct {
	ID       int32
	Distance float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformMatrix generates a flat row-major num x dim matrix with values in
// range [0, 1).
func (r *RNG) UniformMatrix(num, dim int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	for i := range data {
		data[i] = r.rand.Float32()
	}

	return data
}

// GaussianBlobs generates clusters*perCluster points in dim dimensions as a
// flat row-major matrix, plus the cluster label of each point. Cluster
// centers are spaced `separation` apart along the diagonal; points scatter
// around their center with standard deviation `spread`.
func (r *RNG) GaussianBlobs(clusters, perCluster, dim int, separation, spread float64) ([]float32, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	num := clusters * perCluster
	data := make([]float32, num*dim)
	labels := make([]int, num)

	for i := 0; i < num; i++ {
		c := i / perCluster
		labels[i] = c

		row := data[i*dim : (i+1)*dim]
		for j := range row {
			row[j] = float32(float64(c)*separation + r.rand.NormFloat64()*spread)
		}
	}

	return data, labels
}

// BruteForceSearch performs exact search over a flat row-major matrix for
// ground truth. Distances are squared L2, ascending.
func BruteForceSearch(points []float32, dim int, query []float32, k int) []SearchResult {
	n := len(points) / dim

	results := make([]SearchResult, n)
	for i := 0; i < n; i++ {
		d := vecmath.SquaredL2(query, points[i*dim:(i+1)*dim])
		results[i] = SearchResult{ID: int32(i), Distance: d}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}
