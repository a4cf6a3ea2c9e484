package occupancy

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// countingSource counts how many 64-bit values the simulator pulls
type countingSource struct {
	src   rand.Source
	draws int
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestSimulateTrueState_LengthAndInitialAbsence(t *testing.T) {
	rng := newRNG(1)
	grid := []float64{0, 0.1, 0.5, 0.9, 1}

	for _, e := range grid {
		for _, c := range grid {
			for _, n := range []int{1, 2, 20, DefaultSteps} {
				state, err := SimulateTrueState(rng, e, c, n)
				require.NoError(t, err)
				assert.Len(t, state, n)
				assert.False(t, state[0], "e=%g c=%g n=%d", e, c, n)
			}
		}
	}
}

func TestSimulateTrueState_NoExtinction(t *testing.T) {
	rng := newRNG(7)
	for trial := 0; trial < 50; trial++ {
		state, err := SimulateTrueState(rng, 0, 0.2, 100)
		require.NoError(t, err)

		seen := false
		for i, v := range state {
			if seen {
				assert.True(t, v, "population went extinct at step %d with e=0", i)
			}
			seen = seen || v
		}
	}
}

func TestSimulateTrueState_NoColonization(t *testing.T) {
	rng := newRNG(11)
	state, err := SimulateTrueState(rng, 0.3, 0, DefaultSteps)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Count())
}

func TestSimulateTrueState_CertainTransitions(t *testing.T) {
	// c=1, e=1 alternates absent/present deterministically
	state, err := SimulateTrueState(newRNG(3), 1, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, "010101", state.String())
}

func TestSimulateTrueState_InvalidParameters(t *testing.T) {
	rng := newRNG(1)

	cases := []struct {
		name string
		e, c float64
	}{
		{"negative e", -0.1, 0.5},
		{"e above one", 1.5, 0.5},
		{"negative c", 0.5, -0.2},
		{"c above one", 0.5, 1.01},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SimulateTrueState(rng, tc.e, tc.c, 10)
			assert.ErrorIs(t, err, core.ErrInvalidParameter)
		})
	}

	_, err := SimulateTrueState(rng, 0.1, 0.1, 0)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestSimulateMeasuredState_NoFalsePositives(t *testing.T) {
	rng := newRNG(5)
	for _, m := range []float64{0, 0.2, 0.5, 1} {
		state, err := SimulateTrueState(rng, 0.2, 0.4, DefaultSteps)
		require.NoError(t, err)

		measured, err := SimulateMeasuredState(rng, state, m)
		require.NoError(t, err)
		require.Len(t, measured, len(state))

		for i := range state {
			if !state[i] {
				assert.False(t, measured[i], "false positive at step %d with m=%g", i, m)
			}
		}
	}
}

func TestSimulateMeasuredState_PerfectDetection(t *testing.T) {
	rng := newRNG(9)
	state, err := SimulateTrueState(rng, 0.1, 0.3, DefaultSteps)
	require.NoError(t, err)

	measured, err := SimulateMeasuredState(rng, state, 0)
	require.NoError(t, err)
	assert.True(t, measured.Equal(state))
}

func TestSimulateMeasuredState_NeverDetected(t *testing.T) {
	state := Sequence{false, true, true, false, true}
	measured, err := SimulateMeasuredState(newRNG(1), state, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, measured.Count())
}

func TestSimulateMeasuredState_InvalidRate(t *testing.T) {
	_, err := SimulateMeasuredState(newRNG(1), Sequence{true}, 1.2)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestSimulate_DrawCount(t *testing.T) {
	for _, n := range []int{1, 2, 20, DefaultSteps} {
		src := &countingSource{src: rand.NewPCG(42, 1)}
		_, err := Simulate(rand.New(src), Params{Colonization: 0.3, Extinction: 0.1, MeasurementError: 0.2}, n)
		require.NoError(t, err)
		assert.Equal(t, 2*n-1, src.draws, "n=%d", n)
	}
}

func TestSimulate_DeterministicForSeed(t *testing.T) {
	p := Params{Colonization: 0.3, Extinction: 0.15, MeasurementError: 0.2}

	a, err := Simulate(newRNG(99), p, DefaultSteps)
	require.NoError(t, err)
	b, err := Simulate(newRNG(99), p, DefaultSteps)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestSimulate_InvalidParams(t *testing.T) {
	_, err := Simulate(newRNG(1), Params{Colonization: 0.3, Extinction: 0.1, MeasurementError: -1}, 10)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
	assert.Contains(t, err.Error(), "m=")
}

func TestParseSequence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		hasError bool
	}{
		{"0011", "0011", false},
		{"0,0,1,1", "0011", false},
		{"true false TRUE", "101", false},
		{"T;F;T", "101", false},
		{"1", "1", false},
		{"", "", true},
		{"0,2,1", "", true},
		{"maybe", "", true},
	}

	for _, test := range tests {
		seq, err := ParseSequence(test.input)
		if test.hasError {
			assert.Error(t, err, test.input)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
			continue
		}
		require.NoError(t, err, test.input)
		assert.Equal(t, test.expected, seq.String())
	}
}
