package tsne

import (
	"log/slog"

	"github.com/hupe1980/tsnego/affinity"
)

// Default configuration values, matching the common t-SNE presets.
const (
	DefaultOutputDims        = 2
	DefaultPerplexity        = 30.0
	DefaultTheta             = 0.5
	DefaultMaxIterations     = 1000
	DefaultEarlyExagIter     = 250
	DefaultEarlyExaggeration = 12.0
	DefaultLearningRate      = 200.0
	DefaultEvalInterval      = 100
)

type options struct {
	dims              int
	perplexity        float64
	theta             float64
	maxIter           int
	earlyExagIter     int
	earlyExaggeration float64
	learningRate      float64
	workers           int
	randomSeed        *int64
	initialEmbedding  []float32
	evalInterval      int
	finalError        bool
	calibrator        affinity.Calibrator
	trackUnconverged  bool
	metricsCollector  MetricsCollector
	logger            *Logger
	onProgress        func(ProgressEvent)
}

// Option configures the embedder.
type Option func(*options)

// WithOutputDims configures the dimensionality of the embedding,
// typically 2 or 3.
func WithOutputDims(dims int) Option {
	return func(o *options) {
		o.dims = dims
	}
}

// WithPerplexity configures the target perplexity: the effective number of
// neighbors each point balances its attention over. Typical values lie
// between 5 and 50. When the dataset is too small for the configured value
// it is clamped to (n-1)/3.
func WithPerplexity(perplexity float64) Option {
	return func(o *options) {
		o.perplexity = perplexity
	}
}

// WithTheta configures the Barnes-Hut summarization threshold that trades
// accuracy for speed. 0 computes exact repulsive forces; 0.5 is a common
// default; larger values are coarser and faster.
func WithTheta(theta float64) Option {
	return func(o *options) {
		o.theta = theta
	}
}

// WithMaxIterations configures the number of gradient descent iterations.
func WithMaxIterations(maxIter int) Option {
	return func(o *options) {
		o.maxIter = maxIter
	}
}

// WithEarlyExaggeration configures the factor the affinities are multiplied
// with during the early iterations. Exaggeration pulls emerging clusters
// apart before fine structure is optimized.
func WithEarlyExaggeration(factor float64) Option {
	return func(o *options) {
		o.earlyExaggeration = factor
	}
}

// WithEarlyExaggerationIterations configures how many iterations run on
// exaggerated affinities before the factor is divided back out. The momentum
// switches from its initial to its final value at the same boundary.
func WithEarlyExaggerationIterations(iters int) Option {
	return func(o *options) {
		o.earlyExagIter = iters
	}
}

// WithLearningRate configures the gradient descent step size (eta).
func WithLearningRate(eta float64) Option {
	return func(o *options) {
		o.learningRate = eta
	}
}

// WithWorkers bounds the goroutines used by the data-parallel stages
// (neighbor search, bandwidth calibration, force computation). Zero means
// one worker per logical CPU. The result does not depend on the worker
// count.
func WithWorkers(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithRandomSeed fixes the seed of all pseudo-random choices (vantage-point
// selection and embedding initialization). Runs with the same seed over the
// same input produce bit-identical embeddings. Without a seed the clock is
// used.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.randomSeed = &seed
	}
}

// WithInitialEmbedding supplies a starting embedding (flat row-major
// n x OutputDims) instead of a random one. A provided solution is assumed
// to be close to a good one, so early exaggeration ends after the first
// iteration. The slice is copied.
func WithInitialEmbedding(y []float32) Option {
	return func(o *options) {
		o.initialEmbedding = append([]float32(nil), y...)
	}
}

// WithEvalInterval configures how often the KL divergence is evaluated
// during optimization (every n-th iteration, plus the final one). 0
// disables periodic evaluation. Evaluation reuses the distances of the
// gradient pass and is cheap.
func WithEvalInterval(interval int) Option {
	return func(o *options) {
		o.evalInterval = interval
	}
}

// WithFinalError requests a dedicated KL divergence evaluation of the final
// embedding, reported in Result.FinalError.
func WithFinalError(enabled bool) Option {
	return func(o *options) {
		o.finalError = enabled
	}
}

// WithCalibrator replaces the built-in bandwidth binary search, e.g. with
// an accelerator-backed implementation. Pass nil to keep the default.
func WithCalibrator(c affinity.Calibrator) Option {
	return func(o *options) {
		o.calibrator = c
	}
}

// WithUnconvergedRowTracking records which calibration rows hit the search
// round cap, not just how many, at the cost of one extra slice. The rows
// are reported in Result.Stats.
func WithUnconvergedRowTracking(enabled bool) Option {
	return func(o *options) {
		o.trackUnconverged = enabled
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tsne.BasicMetricsCollector{}
//	t, _ := tsne.New(tsne.WithMetricsCollector(metrics))
//	// ... run t.Embed ...
//	stats := metrics.GetStats()
//	fmt.Printf("Iterations: %d, Avg: %dns\n", stats.IterationCount, stats.IterationAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tsne.NewJSONLogger(slog.LevelInfo)
//	t, _ := tsne.New(tsne.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithProgressFunc registers a callback invoked after every iteration with
// the current optimization state. The callback runs on the optimizing
// goroutine and should return quickly.
func WithProgressFunc(fn func(ProgressEvent)) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		dims:              DefaultOutputDims,
		perplexity:        DefaultPerplexity,
		theta:             DefaultTheta,
		maxIter:           DefaultMaxIterations,
		earlyExagIter:     DefaultEarlyExagIter,
		earlyExaggeration: DefaultEarlyExaggeration,
		learningRate:      DefaultLearningRate,
		evalInterval:      DefaultEvalInterval,
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	return o
}
