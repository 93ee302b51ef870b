// Package tsne embeds high-dimensional data into two or three dimensions
// with Barnes-Hut t-SNE.
//
// The pipeline follows the classic accelerated algorithm: exact k-nearest
// neighbors via a vantage-point tree, per-point Gaussian bandwidth
// calibration to a target perplexity, symmetrization into a sparse affinity
// matrix, and gradient descent where the repulsive forces are approximated
// by a space-partitioning tree. Runtime is O(n log n) per iteration instead
// of the O(n²) of exact t-SNE.
//
// # Quick Start
//
//	t, err := tsne.New(
//	    tsne.WithPerplexity(30),
//	    tsne.WithRandomSeed(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// x is a flat row-major n x d matrix.
//	res, err := t.Embed(context.Background(), x, n, d)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// res.Embedding is flat row-major n x 2.
//
// # Determinism
//
// With WithRandomSeed set, runs over the same input produce bit-identical
// embeddings regardless of the worker count: all parallel stages write to
// per-point slots and reduce in index order.
//
// # Accuracy vs. speed
//
// WithTheta controls the Barnes-Hut approximation. 0 computes exact
// repulsive forces (slow, for verification), 0.5 is a solid default, larger
// values trade accuracy for speed.
//
// # Observability
//
// Structured logging (WithLogger, slog-based), operational metrics
// (WithMetricsCollector) and a per-iteration callback (WithProgressFunc)
// hook the optimizer into the surrounding system:
//
//	metrics := &tsne.BasicMetricsCollector{}
//	t, _ := tsne.New(
//	    tsne.WithLogLevel(slog.LevelInfo),
//	    tsne.WithMetricsCollector(metrics),
//	    tsne.WithProgressFunc(func(ev tsne.ProgressEvent) {
//	        fmt.Printf("iter %d/%d phase=%s\n", ev.Iteration+1, ev.MaxIter, ev.Phase)
//	    }),
//	)
//
// # Key Features
//
//   - Barnes-Hut approximated gradients (WithTheta)
//   - Early exaggeration schedule with adaptive gains and momentum
//   - Exact kNN over a randomized vantage-point tree
//   - Deterministic, worker-count independent results under a fixed seed
//   - Context cancellation at iteration boundaries and inside parallel passes
//   - Pluggable bandwidth calibration (affinity.Calibrator)
package tsne
