package rng

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/tpoisot/IntroScientificComputing/ports"
)

// PCGAdapter implements ports.RNGPort with one PCG stream per trial
type PCGAdapter struct{}

var _ ports.RNGPort = (*PCGAdapter)(nil)

// NewPCGAdapter returns the default RNG adapter
func NewPCGAdapter() *PCGAdapter {
	return &PCGAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (a *PCGAdapter) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewPCG(seed^hashName(name), 0)), nil
}

// Stream seeds a PCG whose 128-bit state has the seed mixed with the stage
// name as its high word and the trial index as its low word. The increment
// is fixed, so streams are distinct starting states on one PCG cycle.
func (a *PCGAdapter) Stream(ctx context.Context, stage string, index int, baseSeed uint64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("negative stream index %d", index)
	}
	return rand.New(rand.NewPCG(baseSeed^hashName(stage), uint64(index))), nil
}

func hashName(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
