package tsne

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/hupe1980/tsnego/affinity"
	"github.com/hupe1980/tsnego/internal/vecmath"
	"github.com/hupe1980/tsnego/sparse"
)

// Gradient descent momentum before and after the early exaggeration phase.
const (
	initialMomentum float32 = 0.5
	finalMomentum   float32 = 0.8
)

// Phase identifies the optimization stage a progress event belongs to.
type Phase int

const (
	// PhaseEarlyExaggeration covers the iterations that run on exaggerated
	// affinities.
	PhaseEarlyExaggeration Phase = iota

	// PhaseAnnealing covers the remaining iterations on true affinities.
	PhaseAnnealing
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseEarlyExaggeration:
		return "early_exaggeration"
	case PhaseAnnealing:
		return "annealing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ProgressEvent describes the state of the optimizer after one iteration.
type ProgressEvent struct {
	// Iteration is the zero-based iteration that just finished.
	Iteration int

	// MaxIter is the configured iteration count.
	MaxIter int

	// Phase is the optimization stage the iteration ran in.
	Phase Phase

	// Cost is the KL divergence, valid only when HasCost is set. The cost
	// is evaluated every EvalInterval iterations and on the last one.
	Cost    float64
	HasCost bool
}

// EmbedStats describes a single embedding run.
type EmbedStats struct {
	// GraphBuild holds the statistics of the affinity graph construction.
	GraphBuild affinity.BuildStats

	// Sparsity is the fraction of nonzero entries in the symmetrized
	// affinity matrix, NNZ / n².
	Sparsity float64

	// Optimization is the wall-clock duration of the gradient descent.
	Optimization time.Duration
}

// Result is a finished embedding.
type Result struct {
	// Embedding holds the flat row-major n x Dims output coordinates.
	Embedding []float32

	// N and Dims describe the shape of Embedding.
	N    int
	Dims int

	// PerplexityUsed is the effective perplexity after clamping to the
	// dataset size.
	PerplexityUsed float64

	// Iterations is the number of gradient descent iterations performed.
	Iterations int

	// FinalError is the KL divergence of the final embedding, valid only
	// when HasFinalError is set (see WithFinalError).
	FinalError    float64
	HasFinalError bool

	// Stats holds timings and graph statistics of the run.
	Stats EmbedStats
}

// TSNE embeds high-dimensional points into a low-dimensional space using
// Barnes-Hut t-SNE. A TSNE value is immutable after New and safe for
// concurrent use; each Embed call carries its own state.
type TSNE struct {
	opts options
}

// New creates a new embedder. Configuration errors are reported here, data
// dependent errors by Embed.
func New(optFns ...Option) (*TSNE, error) {
	o := applyOptions(optFns)

	if o.dims < 1 {
		return nil, &ErrInvalidDimension{Dimension: o.dims}
	}

	if o.theta < 0 {
		return nil, &ErrInvalidTheta{Theta: o.theta}
	}

	if o.perplexity <= 0 {
		return nil, &ErrInvalidPerplexity{Perplexity: o.perplexity}
	}

	if o.learningRate <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidLearningRate, o.learningRate)
	}

	if o.maxIter < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIterations, o.maxIter)
	}

	return &TSNE{opts: o}, nil
}

// Embed computes a low-dimensional embedding of x, a flat row-major n x d
// matrix of float32 coordinates. The input is not modified.
//
// Embed blocks until all iterations have run, the context is canceled, or
// validation fails. Cancellation returns the context error and no partial
// result.
func (t *TSNE) Embed(ctx context.Context, x []float32, n, d int) (*Result, error) {
	start := time.Now()

	res, err := t.embed(ctx, x, n, d)
	if err != nil {
		t.opts.metricsCollector.RecordEmbed(n, time.Since(start), err)
		t.opts.logger.LogEmbed(ctx, n, t.opts.dims, 0, time.Since(start), err)

		return nil, err
	}

	t.opts.metricsCollector.RecordEmbed(n, time.Since(start), nil)
	t.opts.logger.LogEmbed(ctx, n, t.opts.dims, res.Iterations, time.Since(start), nil)

	return res, nil
}

func (t *TSNE) embed(ctx context.Context, x []float32, n, d int) (*Result, error) {
	o := t.opts

	if n < 2 {
		return nil, fmt.Errorf("%w: got %d points, need at least 2", ErrTooFewPoints, n)
	}

	if d < 1 {
		return nil, &ErrInvalidDimension{Dimension: d}
	}

	if len(x) != n*d {
		return nil, &ErrDimensionMismatch{Expected: n * d, Actual: len(x)}
	}

	if o.initialEmbedding != nil && len(o.initialEmbedding) != n*o.dims {
		return nil, &ErrDimensionMismatch{Expected: n * o.dims, Actual: len(o.initialEmbedding)}
	}

	perplexity := o.perplexity
	if float64(n-1) < 3*perplexity {
		perplexity = float64(n-1) / 3
		o.logger.LogPerplexityClamp(ctx, o.perplexity, perplexity)
	}

	seed := time.Now().UnixNano()
	if o.randomSeed != nil {
		seed = *o.randomSeed
	}
	rng := rand.New(rand.NewSource(seed))

	// Normalize a copy of the input to unit scale so the calibration
	// bandwidths stay in a well conditioned range.
	xn := make([]float32, len(x))
	copy(xn, x)
	vecmath.ZeroMean(xn, n, d)
	if max := vecmath.Max(xn); max > 0 {
		vecmath.ScaleInPlace(xn, 1/max)
	}

	graphStart := time.Now()
	vpSeed := rng.Int63()

	p, buildStats, err := affinity.BuildGraph(ctx, xn, n, d, perplexity, func(ao *affinity.Options) {
		ao.Workers = o.workers
		ao.RandomSeed = &vpSeed
		ao.Calibrator = o.calibrator
		ao.TrackUnconvergedRows = o.trackUnconverged
	})

	o.metricsCollector.RecordGraphBuild(time.Since(graphStart), buildStats.Unconverged, err)
	o.logger.LogGraphBuild(ctx, n, buildStats.K, buildStats.Unconverged, time.Since(graphStart), err)

	if err != nil {
		return nil, translateError(err)
	}

	sym := sparse.Symmetrize(p)
	sym.Scale(float32(1 / sym.Sum()))
	sparsity := float64(sym.NNZ()) / (float64(n) * float64(n))

	// Lie about the affinities during the early iterations.
	sym.Scale(float32(o.earlyExaggeration))

	stopLyingIter := o.earlyExagIter
	momSwitchIter := o.earlyExagIter

	y := make([]float32, n*o.dims)
	if o.initialEmbedding != nil {
		copy(y, o.initialEmbedding)

		// A provided solution is close to a good one already, so stop
		// lying after the first iteration. The momentum switch stays put.
		stopLyingIter = 0
	} else {
		g := gaussianSource{rng: rng}
		for i := range y {
			y[i] = g.Norm()
		}
	}

	ws := newWorkspace(n, o.dims)
	momentum := initialMomentum
	eta := float32(o.learningRate)

	optStart := time.Now()

	for iter := 0; iter < o.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		iterStart := time.Now()

		evalCost := o.evalInterval > 0 &&
			((iter > 0 && iter%o.evalInterval == 0) || iter == o.maxIter-1)

		cost, err := computeGradient(ctx, sym, y, n, o.dims, o.theta, o.workers, ws, evalCost)
		if err != nil {
			return nil, err
		}

		for i := range y {
			if signDiffers(ws.dY[i], ws.uY[i]) {
				ws.gains[i] += 0.2
			} else {
				ws.gains[i] = ws.gains[i]*0.8 + 0.01
			}

			ws.uY[i] = momentum*ws.uY[i] - eta*ws.gains[i]*ws.dY[i]
			y[i] += ws.uY[i]
		}

		vecmath.ZeroMean(y, n, o.dims)

		if iter == stopLyingIter {
			sym.Scale(float32(1 / o.earlyExaggeration))
		}
		if iter == momSwitchIter {
			momentum = finalMomentum
		}

		o.metricsCollector.RecordIteration(time.Since(iterStart))

		if evalCost {
			o.metricsCollector.RecordCostEvaluation(iter, cost)
			o.logger.LogIteration(ctx, iter, o.maxIter, cost)
		}

		if o.onProgress != nil {
			phase := PhaseAnnealing
			if iter <= stopLyingIter {
				phase = PhaseEarlyExaggeration
			}

			o.onProgress(ProgressEvent{
				Iteration: iter,
				MaxIter:   o.maxIter,
				Phase:     phase,
				Cost:      cost,
				HasCost:   evalCost,
			})
		}
	}

	res := &Result{
		Embedding:      y,
		N:              n,
		Dims:           o.dims,
		PerplexityUsed: perplexity,
		Iterations:     o.maxIter,
		Stats: EmbedStats{
			GraphBuild:   buildStats,
			Sparsity:     sparsity,
			Optimization: time.Since(optStart),
		},
	}

	if o.finalError {
		fe, err := evaluateError(ctx, sym, y, n, o.dims, o.theta, o.workers, ws)
		if err != nil {
			return nil, err
		}

		res.FinalError = fe
		res.HasFinalError = true
	}

	return res, nil
}

// signDiffers reports whether a and b fall into different sign classes,
// with zero as its own class.
func signDiffers(a, b float32) bool {
	return (a > 0) != (b > 0) || (a < 0) != (b < 0)
}
