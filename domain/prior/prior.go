// Package prior provides the distributions parameter draws come from.
//
// Priors never clamp: a prior whose support leaves [0,1] produces draws the
// simulator rejects, which surfaces the misconfiguration instead of hiding it.
package prior

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// Distribution produces random draws from a caller-supplied source
type Distribution interface {
	Sample(rng *rand.Rand) float64
	String() string
}

// TruncatedNormal is a normal distribution restricted to [Min, Max]
type TruncatedNormal struct {
	Mu, Sigma float64
	Min, Max  float64
}

// NewTruncatedNormal validates and builds a truncated normal prior
func NewTruncatedNormal(mu, sigma, min, max float64) (TruncatedNormal, error) {
	if !(sigma > 0) {
		return TruncatedNormal{}, core.NewConfigError("tnorm", "sigma must be positive")
	}
	if !(min < max) {
		return TruncatedNormal{}, core.NewConfigError("tnorm", "min must be below max")
	}
	return TruncatedNormal{Mu: mu, Sigma: sigma, Min: min, Max: max}, nil
}

// Sample uses inverse-CDF sampling so every draw costs exactly one uniform
func (d TruncatedNormal) Sample(rng *rand.Rand) float64 {
	n := distuv.Normal{Mu: d.Mu, Sigma: d.Sigma}
	lo, hi := n.CDF(d.Min), n.CDF(d.Max)
	u := rng.Float64()
	if hi-lo < 1e-300 {
		// all mass is in a tail the CDF cannot resolve
		if d.Mu < d.Min {
			return d.Min
		}
		return d.Max
	}
	x := n.Quantile(lo + u*(hi-lo))
	return math.Min(math.Max(x, d.Min), d.Max)
}

func (d TruncatedNormal) String() string {
	return fmt.Sprintf("tnorm(%g,%g,%g,%g)", d.Mu, d.Sigma, d.Min, d.Max)
}

// Uniform draws from [Min, Max)
type Uniform struct {
	Min, Max float64
}

// NewUniform validates and builds a uniform prior
func NewUniform(min, max float64) (Uniform, error) {
	if !(min < max) {
		return Uniform{}, core.NewConfigError("uniform", "min must be below max")
	}
	return Uniform{Min: min, Max: max}, nil
}

func (d Uniform) Sample(rng *rand.Rand) float64 {
	return distuv.Uniform{Min: d.Min, Max: d.Max, Src: rng}.Rand()
}

func (d Uniform) String() string {
	return fmt.Sprintf("uniform(%g,%g)", d.Min, d.Max)
}

// Beta is the beta distribution on [0,1]
type Beta struct {
	Alpha, Beta float64
}

// NewBeta validates and builds a beta prior
func NewBeta(alpha, beta float64) (Beta, error) {
	if !(alpha > 0 && beta > 0) {
		return Beta{}, core.NewConfigError("beta", "shape parameters must be positive")
	}
	return Beta{Alpha: alpha, Beta: beta}, nil
}

func (d Beta) Sample(rng *rand.Rand) float64 {
	return distuv.Beta{Alpha: d.Alpha, Beta: d.Beta, Src: rng}.Rand()
}

func (d Beta) String() string {
	return fmt.Sprintf("beta(%g,%g)", d.Alpha, d.Beta)
}

// Fixed always returns Value and consumes no randomness
type Fixed struct {
	Value float64
}

func (d Fixed) Sample(*rand.Rand) float64 { return d.Value }

func (d Fixed) String() string {
	return fmt.Sprintf("fixed(%g)", d.Value)
}

// Parse reads a prior written as name(arg,...). Supported forms:
//
//	tnorm(mu,sigma)          truncated to [0,1]
//	tnorm(mu,sigma,min,max)
//	uniform(min,max)
//	beta(alpha,beta)
//	fixed(value)
func Parse(s string) (Distribution, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return nil, core.NewConfigError("prior", fmt.Sprintf("malformed %q", s))
	}
	name := strings.ToLower(strings.TrimSpace(s[:open]))

	var args []float64
	for _, raw := range strings.Split(s[open+1:len(s)-1], ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, core.NewConfigError("prior", fmt.Sprintf("%q: bad argument %q", s, raw))
		}
		args = append(args, v)
	}

	switch {
	case (name == "tnorm" || name == "truncnorm") && len(args) == 2:
		return NewTruncatedNormal(args[0], args[1], 0, 1)
	case (name == "tnorm" || name == "truncnorm") && len(args) == 4:
		return NewTruncatedNormal(args[0], args[1], args[2], args[3])
	case name == "uniform" && len(args) == 2:
		return NewUniform(args[0], args[1])
	case name == "beta" && len(args) == 2:
		return NewBeta(args[0], args[1])
	case name == "fixed" && len(args) == 1:
		return Fixed{Value: args[0]}, nil
	}
	return nil, core.NewConfigError("prior", fmt.Sprintf("unsupported %q", s))
}

// Set groups the priors of the three model parameters
type Set struct {
	Extinction       Distribution
	Colonization     Distribution
	MeasurementError Distribution
}

// Validate checks that every prior is present
func (s Set) Validate() error {
	if s.Extinction == nil {
		return core.NewConfigError("prior.e", "missing")
	}
	if s.Colonization == nil {
		return core.NewConfigError("prior.c", "missing")
	}
	if s.MeasurementError == nil {
		return core.NewConfigError("prior.m", "missing")
	}
	return nil
}

// Default returns the priors of the lesson's field study
func Default() Set {
	return Set{
		Extinction:       TruncatedNormal{Mu: 0.15, Sigma: 0.1, Min: 0, Max: 1},
		Colonization:     TruncatedNormal{Mu: 0.3, Sigma: 0.1, Min: 0, Max: 1},
		MeasurementError: TruncatedNormal{Mu: 0.2, Sigma: 0.1, Min: 0, Max: 1},
	}
}
