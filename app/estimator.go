package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tpoisot/IntroScientificComputing/adapters/rng"
	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
	"github.com/tpoisot/IntroScientificComputing/internal"
	"github.com/tpoisot/IntroScientificComputing/ports"
)

// Stream names. Changing one changes the draws of every seed.
const (
	trialStage   = "abc-trial"
	predictStage = "abc-predict"
)

// Estimator runs rejection-sampling ABC on the occupancy model
type Estimator struct {
	rngPort ports.RNGPort
	logger  *internal.Logger
}

// NewEstimator creates an estimator. A nil rngPort uses the PCG adapter and a
// nil logger uses the package default.
func NewEstimator(rngPort ports.RNGPort, logger *internal.Logger) *Estimator {
	if rngPort == nil {
		rngPort = rng.NewPCGAdapter()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Estimator{
		rngPort: rngPort,
		logger:  logger.Component("Estimator"),
	}
}

// Run draws cfg.Samples parameter sets from the priors, simulates each,
// and keeps the ones whose summary lies closer than cfg.Threshold to the
// summary of the observed record.
//
// An empty posterior is not an error: the result carries
// run.OutcomeNoAcceptance. A trial that fails (typically a prior drawing
// outside [0,1]) aborts the run with that error. If ctx ends before all
// trials complete, the completed ones are returned as a partial result
// together with the context error.
func (e *Estimator) Run(ctx context.Context, cfg EstimatorConfig) (*run.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	started := core.Now()
	settings := cfg.Settings()
	result := &run.Result{
		ID:               core.NewRunID(),
		Fingerprint:      run.NewFingerprint(settings),
		Settings:         settings,
		EmpiricalSummary: summary.Summarize(cfg.Empirical, cfg.Statistics),
		StartedAt:        started,
	}

	e.logger.Info("run %s: %d samples, threshold %g, %d steps, %d workers (fingerprint %s)",
		result.ID, cfg.Samples, cfg.Threshold, cfg.Steps, workers, result.Fingerprint.Hash.Short())
	e.logger.Debug("run %s: observed summary %v over %v", result.ID, result.EmpiricalSummary, settings.Statistics)

	// Each trial writes only its own slot.
	pool := make([]run.Sample, cfg.Samples)
	done := make([]bool, cfg.Samples)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < cfg.Samples; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sample, err := e.trial(gctx, cfg, result.EmpiricalSummary, i)
			if err != nil {
				return err
			}
			pool[i] = sample
			done[i] = true
			return nil
		})
	}
	waitErr := g.Wait()

	// A trial failure outranks the cancellation it may have raced with.
	if waitErr != nil && !IsPartial(waitErr) {
		e.logger.Error("run %s failed: %v", result.ID, waitErr)
		return nil, waitErr
	}

	completed := 0
	for _, ok := range done {
		if ok {
			completed++
		}
	}
	if completed < cfg.Samples {
		stopErr := ctx.Err()
		if stopErr == nil {
			stopErr = waitErr
		}
		result.Partial = true
		e.finish(result, cfg, pool, done, started)
		e.logger.Warn("run %s stopped early after %d of %d trials: %v", result.ID, completed, cfg.Samples, stopErr)
		return result, stopErr
	}

	e.finish(result, cfg, pool, done, started)
	return result, nil
}

// trial runs one draw -> simulate -> summarize -> distance cycle on the
// trial's own random stream.
func (e *Estimator) trial(ctx context.Context, cfg EstimatorConfig, observed summary.Vector, index int) (run.Sample, error) {
	r, err := e.rngPort.Stream(ctx, trialStage, index, cfg.Seed)
	if err != nil {
		return run.Sample{}, fmt.Errorf("trial %d: %w", index, err)
	}

	params := occupancy.Params{
		Extinction:       cfg.Priors.Extinction.Sample(r),
		Colonization:     cfg.Priors.Colonization.Sample(r),
		MeasurementError: cfg.Priors.MeasurementError.Sample(r),
	}

	measured, err := occupancy.Simulate(r, params, cfg.Steps)
	if err != nil {
		return run.Sample{}, fmt.Errorf("trial %d: %w", index, err)
	}

	simulated := summary.Summarize(measured, cfg.Statistics)
	d, err := cfg.Distance.Fn(simulated, observed)
	if err != nil {
		return run.Sample{}, fmt.Errorf("trial %d: %w", index, err)
	}

	return run.Sample{
		Index:    index,
		Params:   params,
		Summary:  simulated,
		Distance: d,
	}, nil
}

// finish keeps the completed trials in draw order and applies the threshold
func (e *Estimator) finish(result *run.Result, cfg EstimatorConfig, pool []run.Sample, done []bool, started core.Timestamp) {
	completed := make([]run.Sample, 0, len(pool))
	for i := range pool {
		if done[i] {
			completed = append(completed, pool[i])
		}
	}

	result.Pool = completed
	result.Accepted = Reject(completed, cfg.Threshold)
	result.FinishedAt = core.Now()

	elapsed := result.FinishedAt.Time().Sub(started.Time()).Round(time.Millisecond)
	if len(result.Accepted) == 0 {
		result.Outcome = run.OutcomeNoAcceptance
		e.logger.Warn("run %s: no sample below threshold %g among %d (%v)", result.ID, cfg.Threshold, len(completed), elapsed)
		return
	}
	result.Outcome = run.OutcomeAccepted
	e.logger.Info("run %s: accepted %d of %d samples (%.3f%%) in %v",
		result.ID, len(result.Accepted), len(completed), 100*result.AcceptanceRate(), elapsed)
}

// Reject returns the samples whose distance is strictly below threshold,
// in pool order. The pool is not modified.
func Reject(pool []run.Sample, threshold float64) []run.Sample {
	accepted := make([]run.Sample, 0)
	for _, s := range pool {
		if s.Distance < threshold {
			accepted = append(accepted, s)
		}
	}
	return accepted
}

// PredictOccupancy re-runs the true-state process, without observation
// noise, for every accepted (e, c) pair and reports the occupancy it
// produces. Each accepted sample uses a stream keyed by its draw index, so
// predictions are reproducible for a given run.
func (e *Estimator) PredictOccupancy(ctx context.Context, result *run.Result, steps int) (*run.Prediction, error) {
	if len(result.Accepted) == 0 {
		return nil, core.ErrEmptyPosterior
	}
	if steps < 1 {
		return nil, core.NewConfigError("steps", "must be at least 1")
	}

	values := make([]float64, len(result.Accepted))
	for i, s := range result.Accepted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := e.rngPort.Stream(ctx, predictStage, s.Index, result.Settings.Seed)
		if err != nil {
			return nil, err
		}
		state, err := occupancy.SimulateTrueState(r, s.Params.Extinction, s.Params.Colonization, steps)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", s.Index, err)
		}
		values[i] = summary.Occupancy(state)
	}

	est, err := run.Summarize(values)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("run %s: noise-free occupancy %s", result.ID, est)
	return &run.Prediction{Steps: steps, Occupancy: values, Estimate: est}, nil
}

// IsPartial reports whether err came from a run that stopped early
func IsPartial(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
