package tsne

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tsnego/vptree"
)

var (
	// ErrTooFewPoints is returned when the input has too few points to
	// support the requested neighborhood.
	ErrTooFewPoints = errors.New("too few points")

	// ErrInvalidLearningRate is returned when the learning rate is not positive.
	ErrInvalidLearningRate = errors.New("learning rate must be positive")

	// ErrInvalidIterations is returned when the iteration count is not positive.
	ErrInvalidIterations = errors.New("iteration count must be positive")
)

// ErrDimensionMismatch indicates that a matrix length does not match its
// declared n x d shape.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d values, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid input or output dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// ErrInvalidTheta indicates a negative summarization threshold.
type ErrInvalidTheta struct {
	Theta float64
}

func (e *ErrInvalidTheta) Error() string {
	return fmt.Sprintf("invalid theta: %g (must be >= 0)", e.Theta)
}

// ErrInvalidPerplexity indicates a perplexity no neighborhood can realize.
type ErrInvalidPerplexity struct {
	Perplexity float64
	cause      error
}

func (e *ErrInvalidPerplexity) Error() string {
	return fmt.Sprintf("invalid perplexity: %g", e.Perplexity)
}

func (e *ErrInvalidPerplexity) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// A neighborhood larger than the dataset means the caller supplied too
	// few points for the configured perplexity.
	if errors.Is(err, vptree.ErrKExceedsSize) {
		return fmt.Errorf("%w: %w", ErrTooFewPoints, err)
	}

	return err
}
