package tsne

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with tsne-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogPerplexityClamp logs that the configured perplexity was too large for
// the number of points and had to be lowered.
func (l *Logger) LogPerplexityClamp(ctx context.Context, requested, used float64) {
	l.WarnContext(ctx, "perplexity too large for the number of points, adjusting",
		"requested", requested,
		"used", used,
	)
}

// LogGraphBuild logs a similarity graph build.
func (l *Logger) LogGraphBuild(ctx context.Context, n, k, unconverged int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "similarity graph build failed",
			"points", n,
			"neighbors", k,
			"error", err,
		)
		return
	}

	if unconverged > 0 {
		l.WarnContext(ctx, "similarity graph built with unconverged rows",
			"points", n,
			"neighbors", k,
			"unconverged", unconverged,
			"duration", duration,
		)
	} else {
		l.DebugContext(ctx, "similarity graph built",
			"points", n,
			"neighbors", k,
			"duration", duration,
		)
	}
}

// LogIteration logs the cost at an evaluated iteration.
func (l *Logger) LogIteration(ctx context.Context, iter, maxIter int, cost float64) {
	l.InfoContext(ctx, "iteration completed",
		"iteration", iter+1,
		"max_iterations", maxIter,
		"cost", cost,
	)
}

// LogEmbed logs a finished embedding run.
func (l *Logger) LogEmbed(ctx context.Context, n, dims, iterations int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "embedding failed",
			"points", n,
			"output_dims", dims,
			"error", err,
		)
		return
	}

	l.InfoContext(ctx, "embedding completed",
		"points", n,
		"output_dims", dims,
		"iterations", iterations,
		"duration", duration,
	)
}
