package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Parameter and configuration errors
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Computation errors
	ErrDimensionMismatch = errors.New("summary dimension mismatch")

	// ErrEmptyPosterior marks a run in which no sample fell below the threshold.
	// It is returned by accessors that need at least one accepted sample, never
	// by the estimator run itself.
	ErrEmptyPosterior = errors.New("no samples accepted")

	// Lookup errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// NewParameterError reports a probability parameter outside [0,1]
func NewParameterError(name string, value float64) error {
	return fmt.Errorf("%w: %s=%g outside [0,1]", ErrInvalidParameter, name, value)
}

// NewConfigError reports an unusable configuration field
func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

// NewDimensionError reports two summary vectors of different length
func NewDimensionError(got, want int) error {
	return fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, got, want)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationError is true for errors caused by caller-supplied settings
// rather than by the computation itself.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrDimensionMismatch)
}

// CheckProbability returns a parameter error if v is not a probability.
// NaN is rejected.
func CheckProbability(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return NewParameterError(name, v)
	}
	return nil
}
