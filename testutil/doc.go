// Package testutil provides deterministic data generators shared by tests
// and benchmarks.
//
// # Random Data Generation
//
//	rng := testutil.NewRNG(seed)
//	data := rng.UniformMatrix(1000, 64)                      // flat row-major, [0, 1)
//	blobs, labels := rng.GaussianBlobs(3, 100, 8, 10, 0.5)   // labeled clusters
//
// # Exact Neighbors (Ground Truth)
//
//	results := testutil.BruteForceSearch(points, dim, query, k)
package testutil
