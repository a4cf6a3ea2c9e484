package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
)

func TestDistances(t *testing.T) {
	a := summary.Vector{0, 0}
	b := summary.Vector{3, -4}

	tests := []struct {
		name     string
		fn       Func
		expected float64
	}{
		{"euclidean", Euclidean, 5},
		{"manhattan", Manhattan, 7},
		{"chebyshev", Chebyshev, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := tc.fn(a, b)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, d, 1e-12)

			back, err := tc.fn(b, a)
			require.NoError(t, err)
			assert.InDelta(t, d, back, 1e-12)

			self, err := tc.fn(b, b)
			require.NoError(t, err)
			assert.Equal(t, 0.0, self)
		})
	}
}

func TestDimensionMismatch(t *testing.T) {
	for _, fn := range []Func{Euclidean, Manhattan, Chebyshev} {
		_, err := fn(summary.Vector{1, 2}, summary.Vector{1})
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	}
}

func TestLookup(t *testing.T) {
	for input, expected := range map[string]string{
		"":          "euclidean",
		"L2":        "euclidean",
		"manhattan": "manhattan",
		"max":       "chebyshev",
	} {
		n, err := Lookup(input)
		require.NoError(t, err)
		assert.Equal(t, expected, n.Name)
	}

	_, err := Lookup("cosine")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
