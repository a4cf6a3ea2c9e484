// Package occupancy simulates the presence/absence of a population at one
// site. The true state follows a two-state Markov chain driven by the
// colonization and extinction rates; the measured state is the true state
// passed through an observation process that can miss a present population
// but never reports an absent one.
package occupancy

import (
	"math/rand/v2"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// SimulateTrueState draws a true-state sequence of n steps. The first step is
// always absent; each later step consumes exactly one uniform draw.
func SimulateTrueState(rng *rand.Rand, e, c float64, n int) (Sequence, error) {
	if err := core.CheckProbability("e", e); err != nil {
		return nil, err
	}
	if err := core.CheckProbability("c", c); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, core.NewConfigError("steps", "must be at least 1")
	}

	state := make(Sequence, n)
	for t := 1; t < n; t++ {
		u := rng.Float64()
		if state[t-1] {
			state[t] = u >= e
		} else {
			state[t] = u < c
		}
	}
	return state, nil
}

// SimulateMeasuredState applies false-negative observation noise to state.
// One uniform draw is consumed per step, present or not, so the number of
// draws only depends on the length of state.
func SimulateMeasuredState(rng *rand.Rand, state Sequence, m float64) (Sequence, error) {
	if err := core.CheckProbability("m", m); err != nil {
		return nil, err
	}

	measured := make(Sequence, len(state))
	for t, present := range state {
		u := rng.Float64()
		measured[t] = present && u >= m
	}
	return measured, nil
}

// Simulate runs the true-state process and the observation process in turn
// and returns the measured sequence.
func Simulate(rng *rand.Rand, p Params, n int) (Sequence, error) {
	_, measured, err := SimulateBoth(rng, p, n)
	return measured, err
}

// SimulateBoth is Simulate but also returns the latent true state.
func SimulateBoth(rng *rand.Rand, p Params, n int) (Sequence, Sequence, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	state, err := SimulateTrueState(rng, p.Extinction, p.Colonization, n)
	if err != nil {
		return nil, nil, err
	}
	measured, err := SimulateMeasuredState(rng, state, p.MeasurementError)
	if err != nil {
		return nil, nil, err
	}
	return state, measured, nil
}
