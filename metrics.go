package tsne

import (
	"math"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    embedCounter       prometheus.Counter
//	    iterationHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordEmbed(n int, duration time.Duration, err error) {
//	    p.embedCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordGraphBuild is called after the similarity graph has been built.
	// unconverged is the number of calibration rows that hit the round cap,
	// err is nil if successful.
	RecordGraphBuild(duration time.Duration, unconverged int, err error)

	// RecordIteration is called after each gradient descent iteration.
	RecordIteration(duration time.Duration)

	// RecordCostEvaluation is called whenever the KL divergence has been
	// evaluated, with the zero-based iteration it belongs to.
	RecordCostEvaluation(iter int, cost float64)

	// RecordEmbed is called after each embedding run.
	// n is the number of input points, duration the total time taken,
	// err is nil if successful.
	RecordEmbed(n int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGraphBuild(time.Duration, int, error) {}
func (NoopMetricsCollector) RecordIteration(time.Duration)              {}
func (NoopMetricsCollector) RecordCostEvaluation(int, float64)          {}
func (NoopMetricsCollector) RecordEmbed(int, time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GraphBuildCount      atomic.Int64
	GraphBuildErrors     atomic.Int64
	GraphBuildTotalNanos atomic.Int64
	UnconvergedRows      atomic.Int64
	IterationCount       atomic.Int64
	IterationTotalNanos  atomic.Int64
	CostEvaluations      atomic.Int64
	lastCostBits         atomic.Uint64
	EmbedCount           atomic.Int64
	EmbedErrors          atomic.Int64
	EmbedPoints          atomic.Int64
	EmbedTotalNanos      atomic.Int64
}

// RecordGraphBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGraphBuild(duration time.Duration, unconverged int, err error) {
	b.GraphBuildCount.Add(1)
	b.GraphBuildTotalNanos.Add(duration.Nanoseconds())
	b.UnconvergedRows.Add(int64(unconverged))
	if err != nil {
		b.GraphBuildErrors.Add(1)
	}
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(duration time.Duration) {
	b.IterationCount.Add(1)
	b.IterationTotalNanos.Add(duration.Nanoseconds())
}

// RecordCostEvaluation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCostEvaluation(iter int, cost float64) {
	b.CostEvaluations.Add(1)
	b.lastCostBits.Store(math.Float64bits(cost))
}

// RecordEmbed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEmbed(n int, duration time.Duration, err error) {
	b.EmbedCount.Add(1)
	b.EmbedPoints.Add(int64(n))
	b.EmbedTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EmbedErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GraphBuildCount:    b.GraphBuildCount.Load(),
		GraphBuildErrors:   b.GraphBuildErrors.Load(),
		GraphBuildAvgNanos: b.getAvgGraphBuildNanos(),
		UnconvergedRows:    b.UnconvergedRows.Load(),
		IterationCount:     b.IterationCount.Load(),
		IterationAvgNanos:  b.getAvgIterationNanos(),
		CostEvaluations:    b.CostEvaluations.Load(),
		LastCost:           math.Float64frombits(b.lastCostBits.Load()),
		EmbedCount:         b.EmbedCount.Load(),
		EmbedErrors:        b.EmbedErrors.Load(),
		EmbedPoints:        b.EmbedPoints.Load(),
		EmbedAvgNanos:      b.getAvgEmbedNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgGraphBuildNanos() int64 {
	count := b.GraphBuildCount.Load()
	if count == 0 {
		return 0
	}
	return b.GraphBuildTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgIterationNanos() int64 {
	count := b.IterationCount.Load()
	if count == 0 {
		return 0
	}
	return b.IterationTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgEmbedNanos() int64 {
	count := b.EmbedCount.Load()
	if count == 0 {
		return 0
	}
	return b.EmbedTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GraphBuildCount    int64
	GraphBuildErrors   int64
	GraphBuildAvgNanos int64
	UnconvergedRows    int64
	IterationCount     int64
	IterationAvgNanos  int64
	CostEvaluations    int64
	LastCost           float64
	EmbedCount         int64
	EmbedErrors        int64
	EmbedPoints        int64
	EmbedAvgNanos      int64
}
