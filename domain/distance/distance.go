// Package distance compares summary vectors.
package distance

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
)

// Func measures how far a simulated summary lies from the observed one.
// Implementations return core.ErrDimensionMismatch for vectors of different
// length and never a negative value.
type Func func(a, b summary.Vector) (float64, error)

// Euclidean is the L2 distance
func Euclidean(a, b summary.Vector) (float64, error) {
	return lp(a, b, 2)
}

// Manhattan is the L1 distance
func Manhattan(a, b summary.Vector) (float64, error) {
	return lp(a, b, 1)
}

// Chebyshev is the largest per-statistic difference
func Chebyshev(a, b summary.Vector) (float64, error) {
	return lp(a, b, math.Inf(1))
}

func lp(a, b summary.Vector, l float64) (float64, error) {
	if len(a) != len(b) {
		return 0, core.NewDimensionError(len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, l), nil
}

// Named pairs a distance with its configuration name
type Named struct {
	Name string
	Fn   Func
}

// DefaultName is used when no distance is configured
const DefaultName = "euclidean"

// Lookup returns a distance by name
func Lookup(name string) (Named, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "euclidean", "l2":
		return Named{Name: "euclidean", Fn: Euclidean}, nil
	case "manhattan", "l1":
		return Named{Name: "manhattan", Fn: Manhattan}, nil
	case "chebyshev", "linf", "max":
		return Named{Name: "chebyshev", Fn: Chebyshev}, nil
	}
	return Named{}, core.NewConfigError("distance", fmt.Sprintf("unknown %q", name))
}
