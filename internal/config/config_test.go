package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpoisot/IntroScientificComputing/app"
	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ABC_SAMPLES", "ABC_THRESHOLD", "ABC_STEPS", "ABC_SEED", "ABC_WORKERS",
		"ABC_STATISTICS", "ABC_DISTANCE", "ABC_PRIOR_E", "ABC_PRIOR_C", "ABC_PRIOR_M",
		"ABC_EMPIRICAL", "PORT", "GIN_MODE", "DATABASE_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, app.DefaultSamples, cfg.Estimator.Samples)
	assert.Equal(t, app.DefaultThreshold, cfg.Estimator.Threshold)
	assert.Equal(t, uint64(app.DefaultSeed), cfg.Estimator.Seed)
	assert.Equal(t, occupancy.DefaultSteps, cfg.Estimator.Steps)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.GinMode)
	assert.False(t, cfg.Database.Enabled())

	est, err := cfg.EstimatorConfig()
	require.NoError(t, err)
	assert.Equal(t, occupancy.DefaultSteps, est.Steps)
	assert.Equal(t, "euclidean", est.Distance.Name)
	assert.Equal(t, app.ObservedRecord, est.Empirical.String())
	assert.Equal(t, []string{"occupancy", "transition_rate"}, est.Settings().Statistics)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ABC_SAMPLES", "1000")
	t.Setenv("ABC_THRESHOLD", "0.05")
	t.Setenv("ABC_STEPS", "50")
	t.Setenv("ABC_SEED", "7")
	t.Setenv("ABC_STATISTICS", "occupancy, colonizations ,extinctions")
	t.Setenv("ABC_DISTANCE", "manhattan")
	t.Setenv("ABC_PRIOR_E", "uniform(0,1)")
	t.Setenv("ABC_EMPIRICAL", "0,1,1,0,1")
	t.Setenv("DATABASE_URL", "postgres://localhost/abc?sslmode=disable")
	t.Setenv("GIN_MODE", "release")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "release", cfg.Server.GinMode)

	est, err := cfg.EstimatorConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, est.Samples)
	assert.Equal(t, 0.05, est.Threshold)
	assert.Equal(t, 50, est.Steps)
	assert.Equal(t, uint64(7), est.Seed)
	assert.Equal(t, "manhattan", est.Distance.Name)
	assert.Len(t, est.Statistics, 3)
	assert.Equal(t, "uniform(0,1)", est.Priors.Extinction.String())
	assert.Equal(t, "01101", est.Empirical.String())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric samples", "ABC_SAMPLES", "many"},
		{"negative samples", "ABC_SAMPLES", "-5"},
		{"zero samples", "ABC_SAMPLES", "0"},
		{"zero steps", "ABC_STEPS", "0"},
		{"negative steps", "ABC_STEPS", "-1"},
		{"negative seed", "ABC_SEED", "-1"},
		{"bad threshold", "ABC_THRESHOLD", "small"},
		{"unknown statistic", "ABC_STATISTICS", "occupancy,variance"},
		{"unknown distance", "ABC_DISTANCE", "cosine"},
		{"bad prior", "ABC_PRIOR_C", "gamma(1,2)"},
		{"bad empirical", "ABC_EMPIRICAL", "0,1,maybe"},
		{"bad gin mode", "GIN_MODE", "verbose"},
		{"bad log level", "LOG_LEVEL", "LOUD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_ZeroCountsKeepTheirDomainError(t *testing.T) {
	clearEnv(t)
	t.Setenv("ABC_SAMPLES", "0")
	_, err := Load()
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	clearEnv(t)
	t.Setenv("ABC_STEPS", "0")
	_, err = Load()
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestLoad_ZeroThresholdIsLegal(t *testing.T) {
	clearEnv(t)
	t.Setenv("ABC_THRESHOLD", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Estimator.Threshold)
}
