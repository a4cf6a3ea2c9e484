package rng

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstDraws(t *testing.T, a *PCGAdapter, stage string, index int, seed uint64) []uint64 {
	t.Helper()
	r, err := a.Stream(context.Background(), stage, index, seed)
	require.NoError(t, err)
	out := make([]uint64, 8)
	for i := range out {
		out[i] = r.Uint64()
	}
	return out
}

func TestStream_Deterministic(t *testing.T) {
	a := NewPCGAdapter()
	assert.Equal(t, firstDraws(t, a, "trial", 3, 42), firstDraws(t, a, "trial", 3, 42))
}

func TestStream_IndependentAcrossKeys(t *testing.T) {
	a := NewPCGAdapter()
	base := firstDraws(t, a, "trial", 0, 42)

	assert.NotEqual(t, base, firstDraws(t, a, "trial", 1, 42), "index")
	assert.NotEqual(t, base, firstDraws(t, a, "trial", 0, 43), "seed")
	assert.NotEqual(t, base, firstDraws(t, a, "predict", 0, 42), "stage")
}

func TestStream_StateKeying(t *testing.T) {
	a := NewPCGAdapter()
	want := rand.New(rand.NewPCG(42^hashName("trial"), 5))
	got, err := a.Stream(context.Background(), "trial", 5, 42)
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		assert.Equal(t, want.Uint64(), got.Uint64())
	}
}

func TestStream_AdjacentIndexesDoNotOverlap(t *testing.T) {
	a := NewPCGAdapter()
	r0, err := a.Stream(context.Background(), "trial", 0, 42)
	require.NoError(t, err)
	r1, err := a.Stream(context.Background(), "trial", 1, 42)
	require.NoError(t, err)

	seen := make(map[uint64]bool, 1024)
	for i := 0; i < 1024; i++ {
		seen[r0.Uint64()] = true
	}
	for i := 0; i < 1024; i++ {
		assert.False(t, seen[r1.Uint64()], "draw %d of index 1 repeats index 0", i)
	}
}

func TestStream_Errors(t *testing.T) {
	a := NewPCGAdapter()

	_, err := a.Stream(context.Background(), "trial", -1, 1)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Stream(ctx, "trial", 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = a.SeededStream(ctx, "x", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeededStream(t *testing.T) {
	a := NewPCGAdapter()
	r1, err := a.SeededStream(context.Background(), "demo", 7)
	require.NoError(t, err)
	r2, err := a.SeededStream(context.Background(), "demo", 7)
	require.NoError(t, err)
	assert.Equal(t, r1.Float64(), r2.Float64())
}
