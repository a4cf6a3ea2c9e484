package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
)

func record(t *testing.T, accepted []run.Sample) *run.Record {
	t.Helper()
	settings := run.Settings{
		Samples:    1000,
		Threshold:  0.02,
		Steps:      200,
		Seed:       42,
		Statistics: []string{"occupancy", "transition_rate"},
		Distance:   "euclidean",
		PriorE:     "tnorm(0.15,0.1,0,1)",
		Empirical:  "00011111111101101111",
	}
	rec := &run.Record{
		ID:               core.NewRunID(),
		Fingerprint:      run.NewFingerprint(settings),
		Settings:         settings,
		EmpiricalSummary: summary.Vector{0.75, 5.0 / 19},
		Outcome:          run.OutcomeNoAcceptance,
		PoolSize:         1000,
		Accepted:         accepted,
		CreatedAt:        core.Now(),
	}
	if len(accepted) > 0 {
		est, err := run.EstimatesFrom(accepted)
		require.NoError(t, err)
		rec.Estimates = est
		rec.Outcome = run.OutcomeAccepted
	}
	return rec
}

func TestMarkdown_Accepted(t *testing.T) {
	rec := record(t, []run.Sample{
		{Index: 1, Params: occupancy.Params{Extinction: 0.1, Colonization: 0.3, MeasurementError: 0.2}},
		{Index: 9, Params: occupancy.Params{Extinction: 0.2, Colonization: 0.4, MeasurementError: 0.1}},
	})
	pred := &run.Prediction{Steps: 200, Estimate: run.Estimate{Mean: 0.7, StdDev: 0.05, Lower: 0.6, Upper: 0.8, N: 2}}

	md := Markdown(rec, pred)

	assert.Contains(t, md, "# ABC run "+rec.ID.String())
	assert.Contains(t, md, "Accepted 2 of 1000 samples (0.200%)")
	assert.Contains(t, md, "| extinction (e) | 0.1500 |")
	assert.Contains(t, md, "- occupancy: 0.7500")
	assert.Contains(t, md, "### Shape")
	assert.Contains(t, md, "## Noise-free occupancy")
	assert.Contains(t, md, "0.7000 ± 0.0500")
}

func TestMarkdown_NoAcceptance(t *testing.T) {
	rec := record(t, nil)

	md := Markdown(rec, nil)

	assert.Contains(t, md, "No sample out of 1000 fell below the threshold of 0.02")
	assert.NotContains(t, md, "| parameter |")
	assert.NotContains(t, md, "Noise-free")
	assert.NotContains(t, md, "### Shape")
}

func TestMarkdown_Partial(t *testing.T) {
	rec := record(t, nil)
	rec.Partial = true
	rec.PoolSize = 250

	assert.Contains(t, Markdown(rec, nil), "250 of 1000 trials completed")
}

func TestHTML(t *testing.T) {
	rec := record(t, []run.Sample{
		{Index: 1, Params: occupancy.Params{Extinction: 0.1, Colonization: 0.3, MeasurementError: 0.2}},
	})

	page := string(HTML(Markdown(rec, nil), "ABC run"))

	assert.True(t, strings.Contains(page, "<html"), "expected a complete page")
	assert.Contains(t, page, "<title>ABC run</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h1")
}
