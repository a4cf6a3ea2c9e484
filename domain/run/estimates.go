package run

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

// Interval bounds reported with every estimate, in percent
const (
	LowerPercentile = 2.5
	UpperPercentile = 97.5
)

// Estimate summarises the posterior samples of one quantity
type Estimate struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	N      int     `json:"n"`
}

func (e Estimate) String() string {
	return fmt.Sprintf("%.4f ± %.4f [%.4f, %.4f] (n=%d)", e.Mean, e.StdDev, e.Lower, e.Upper, e.N)
}

// Estimates holds one Estimate per model parameter
type Estimates struct {
	Extinction       Estimate `json:"e"`
	Colonization     Estimate `json:"c"`
	MeasurementError Estimate `json:"m"`
}

// Summarize computes the estimate of a set of draws. The standard deviation is
// the population one, so a single draw reports zero spread.
func Summarize(values []float64) (Estimate, error) {
	if len(values) == 0 {
		return Estimate{}, core.ErrEmptyPosterior
	}

	data := stats.Float64Data(values)
	mean, err := stats.Mean(data)
	if err != nil {
		return Estimate{}, fmt.Errorf("mean: %w", err)
	}
	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return Estimate{}, fmt.Errorf("standard deviation: %w", err)
	}
	median, err := stats.Median(data)
	if err != nil {
		return Estimate{}, fmt.Errorf("median: %w", err)
	}
	lower, err := percentile(data, LowerPercentile)
	if err != nil {
		return Estimate{}, err
	}
	upper, err := percentile(data, UpperPercentile)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		Mean:   mean,
		StdDev: stdDev,
		Median: median,
		Lower:  lower,
		Upper:  upper,
		N:      len(values),
	}, nil
}

// percentile falls back to the extremes where the nearest-rank method has no
// rank to return, which happens for very small samples.
func percentile(data stats.Float64Data, p float64) (float64, error) {
	v, err := stats.Percentile(data, p)
	if err == nil {
		return v, nil
	}
	if p < 50 {
		return stats.Min(data)
	}
	return stats.Max(data)
}

// Prediction holds the noise-free occupancy implied by a posterior: one value
// per accepted sample, in posterior order
type Prediction struct {
	Steps     int       `json:"steps"`
	Occupancy []float64 `json:"occupancy"`
	Estimate  Estimate  `json:"estimate"`
}

// EstimatesFrom summarises each parameter over the accepted samples
func EstimatesFrom(accepted []Sample) (*Estimates, error) {
	if len(accepted) == 0 {
		return nil, core.ErrEmptyPosterior
	}

	e := make([]float64, len(accepted))
	c := make([]float64, len(accepted))
	m := make([]float64, len(accepted))
	for i, s := range accepted {
		e[i] = s.Params.Extinction
		c[i] = s.Params.Colonization
		m[i] = s.Params.MeasurementError
	}

	var out Estimates
	var err error
	if out.Extinction, err = Summarize(e); err != nil {
		return nil, fmt.Errorf("e: %w", err)
	}
	if out.Colonization, err = Summarize(c); err != nil {
		return nil, fmt.Errorf("c: %w", err)
	}
	if out.MeasurementError, err = Summarize(m); err != nil {
		return nil, fmt.Errorf("m: %w", err)
	}
	return &out, nil
}
