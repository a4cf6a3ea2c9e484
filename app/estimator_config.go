package app

import (
	"fmt"
	"runtime"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/distance"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/prior"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
)

// ObservedRecord is the 20-year field record the lesson fits: present in
// years 4-12, 14-15 and 17-20.
const ObservedRecord = "00011111111101101111"

// Defaults of the field study
const (
	DefaultSamples   = 50000
	DefaultThreshold = 0.02
	DefaultSeed      = 42
)

// EstimatorConfig holds the resolved inputs of one estimator run
type EstimatorConfig struct {
	Priors     prior.Set
	Samples    int
	Empirical  occupancy.Sequence
	Statistics []summary.Named
	Distance   distance.Named
	Threshold  float64
	Steps      int // simulated horizon, independent of len(Empirical)
	Seed       uint64
	Workers    int
}

// DefaultEstimatorConfig returns the configuration of the field study
func DefaultEstimatorConfig() EstimatorConfig {
	stats, _ := summary.Resolve(summary.DefaultNames)
	dist, _ := distance.Lookup(distance.DefaultName)
	empirical, _ := occupancy.ParseSequence(ObservedRecord)

	return EstimatorConfig{
		Priors:     prior.Default(),
		Samples:    DefaultSamples,
		Empirical:  empirical,
		Statistics: stats,
		Distance:   dist,
		Threshold:  DefaultThreshold,
		Steps:      occupancy.DefaultSteps,
		Seed:       DefaultSeed,
		Workers:    runtime.GOMAXPROCS(0),
	}
}

// Validate checks the configuration before any trial runs. The threshold is
// not checked: any value is legal, a non-positive one simply accepts nothing.
func (c EstimatorConfig) Validate() error {
	if c.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive, got %d", core.ErrInvalidParameter, c.Samples)
	}
	if err := c.Priors.Validate(); err != nil {
		return err
	}
	if len(c.Empirical) == 0 {
		return core.NewConfigError("empirical", "observed record is empty")
	}
	if len(c.Statistics) == 0 {
		return core.NewConfigError("statistics", "at least one statistic is required")
	}
	for i, s := range c.Statistics {
		if s.Fn == nil {
			return core.NewConfigError("statistics", fmt.Sprintf("entry %d (%q) has no function", i, s.Name))
		}
	}
	if c.Distance.Fn == nil {
		return core.NewConfigError("distance", "missing")
	}
	if c.Steps < 1 {
		return core.NewConfigError("steps", "must be at least 1")
	}
	if c.Workers < 0 {
		return core.NewConfigError("workers", "must not be negative")
	}
	return nil
}

// Settings renders the configuration in its printable form
func (c EstimatorConfig) Settings() run.Settings {
	s := run.Settings{
		Samples:    c.Samples,
		Threshold:  c.Threshold,
		Steps:      c.Steps,
		Seed:       c.Seed,
		Workers:    c.Workers,
		Statistics: summary.NamesOf(c.Statistics),
		Distance:   c.Distance.Name,
		Empirical:  c.Empirical.String(),
	}
	if c.Priors.Extinction != nil {
		s.PriorE = c.Priors.Extinction.String()
	}
	if c.Priors.Colonization != nil {
		s.PriorC = c.Priors.Colonization.String()
	}
	if c.Priors.MeasurementError != nil {
		s.PriorM = c.Priors.MeasurementError.String()
	}
	return s
}

// EstimatorConfigFromSettings resolves printable settings. Empty strings fall
// back to the field-study defaults and zero workers means GOMAXPROCS. Samples,
// Steps, Threshold and Seed are taken as given, so a zero sample count or
// horizon fails validation; callers fill absent values before resolving.
func EstimatorConfigFromSettings(s run.Settings) (EstimatorConfig, error) {
	cfg := DefaultEstimatorConfig()

	cfg.Samples = s.Samples
	cfg.Threshold = s.Threshold
	cfg.Steps = s.Steps
	cfg.Seed = s.Seed
	if s.Workers != 0 {
		cfg.Workers = s.Workers
	}

	if len(s.Statistics) > 0 {
		stats, err := summary.Resolve(s.Statistics)
		if err != nil {
			return EstimatorConfig{}, err
		}
		cfg.Statistics = stats
	}
	if s.Distance != "" {
		dist, err := distance.Lookup(s.Distance)
		if err != nil {
			return EstimatorConfig{}, err
		}
		cfg.Distance = dist
	}

	priors := []struct {
		def    string
		target *prior.Distribution
	}{
		{s.PriorE, &cfg.Priors.Extinction},
		{s.PriorC, &cfg.Priors.Colonization},
		{s.PriorM, &cfg.Priors.MeasurementError},
	}
	for _, p := range priors {
		if p.def == "" {
			continue
		}
		d, err := prior.Parse(p.def)
		if err != nil {
			return EstimatorConfig{}, err
		}
		*p.target = d
	}

	if s.Empirical != "" {
		seq, err := occupancy.ParseSequence(s.Empirical)
		if err != nil {
			return EstimatorConfig{}, err
		}
		cfg.Empirical = seq
	}

	return cfg, cfg.Validate()
}
