package profiling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
)

// normalityAlpha is the level of the Jarque-Bera test
const normalityAlpha = 0.05

// Shape describes the distribution of a set of posterior draws
type Shape struct {
	N        int     `json:"n"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // total, 3 for a normal
	JarqueP  float64 `json:"jarque_bera_p"`
	IsNormal bool    `json:"is_normal"`
	Outliers int     `json:"outliers"`
}

func (s Shape) String() string {
	return fmt.Sprintf("skew %.3f, kurtosis %.3f, IQR [%.4f, %.4f], %d outliers, JB p=%.3f",
		s.Skewness, s.Kurtosis, s.Q25, s.Q75, s.Outliers, s.JarqueP)
}

// PosteriorShape holds one Shape per model parameter
type PosteriorShape struct {
	Extinction       Shape `json:"e"`
	Colonization     Shape `json:"c"`
	MeasurementError Shape `json:"m"`
}

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeDistribution describes the shape of data. Empty data returns
// core.ErrEmptyPosterior.
func (da *DistributionAnalyzer) AnalyzeDistribution(data []float64) (Shape, error) {
	if len(data) == 0 {
		return Shape{}, core.ErrEmptyPosterior
	}
	d := stats.Float64Data(data)

	mean, err := stats.Mean(d)
	if err != nil {
		return Shape{}, err
	}
	stdDev, err := stats.StandardDeviation(d)
	if err != nil {
		return Shape{}, err
	}
	min, err := stats.Min(d)
	if err != nil {
		return Shape{}, err
	}
	max, err := stats.Max(d)
	if err != nil {
		return Shape{}, err
	}

	// Quartiles for IQR-based outlier detection
	quartiles, err := stats.Quartile(d)
	if err != nil {
		// fewer than two draws
		quartiles = stats.Quartiles{Q1: min, Q2: mean, Q3: max}
	}

	shape := Shape{
		N:        len(data),
		Min:      min,
		Max:      max,
		Q25:      quartiles.Q1,
		Q75:      quartiles.Q3,
		Kurtosis: 3,
		JarqueP:  1,
	}
	shape.Outliers = detectOutliers(data, shape.Q25, shape.Q75)

	if stdDev == 0 {
		// a degenerate posterior has no shape beyond its value
		return shape, nil
	}
	shape.Skewness = calculateSkewness(data, mean, stdDev)
	shape.Kurtosis = calculateKurtosis(data, mean, stdDev)
	shape.JarqueP = jarqueBera(len(data), shape.Skewness, shape.Kurtosis)
	shape.IsNormal = shape.JarqueP > normalityAlpha
	return shape, nil
}

// AnalyzePosterior describes the shape of each parameter's accepted draws
func (da *DistributionAnalyzer) AnalyzePosterior(accepted []run.Sample) (*PosteriorShape, error) {
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

	var out PosteriorShape
	var err error
	if out.Extinction, err = da.AnalyzeDistribution(e); err != nil {
		return nil, fmt.Errorf("e: %w", err)
	}
	if out.Colonization, err = da.AnalyzeDistribution(c); err != nil {
		return nil, fmt.Errorf("c: %w", err)
	}
	if out.MeasurementError, err = da.AnalyzeDistribution(m); err != nil {
		return nil, fmt.Errorf("m: %w", err)
	}
	return &out, nil
}

// calculateSkewness computes the moment coefficient of skewness
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		z := (x - mean) / stdDev
		sum += z * z * z
	}
	return sum / n
}

// calculateKurtosis computes the moment coefficient of kurtosis
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 {
		return 3
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		z := (x - mean) / stdDev
		sum += z * z * z * z
	}
	return sum / n
}

// jarqueBera returns the p-value of the Jarque-Bera statistic, which is
// asymptotically chi-squared with two degrees of freedom
func jarqueBera(n int, skewness, kurtosis float64) float64 {
	excess := kurtosis - 3
	jb := float64(n) / 6 * (skewness*skewness + excess*excess/4)
	chi := distuv.ChiSquared{K: 2}
	return math.Max(0, 1-chi.CDF(jb))
}

// detectOutliers counts values outside the 1.5 IQR fences
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
