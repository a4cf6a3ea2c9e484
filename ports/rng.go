package ports

import (
	"context"
	"math/rand/v2"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error)

	// Stream creates the generator for one trial of a stage. Streams for
	// different indexes are independent, and the same (stage, index, seed)
	// always yields the same draws whatever order trials run in.
	Stream(ctx context.Context, stage string, index int, baseSeed uint64) (*rand.Rand, error)
}
