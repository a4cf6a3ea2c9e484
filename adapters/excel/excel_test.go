package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
)

func testRecord(t *testing.T) *run.Record {
	t.Helper()
	settings := run.Settings{
		Samples:    10,
		Threshold:  0.05,
		Steps:      200,
		Seed:       1,
		Statistics: []string{"occupancy", "transition_rate"},
		Distance:   "euclidean",
		Empirical:  "00011111111101101111",
	}
	accepted := []run.Sample{
		{Index: 2, Params: occupancy.Params{Extinction: 0.25, Colonization: 0.3, MeasurementError: 0.2}, Summary: summary.Vector{0.7, 0.25}, Distance: 0.05},
		{Index: 5, Params: occupancy.Params{Extinction: 0.75, Colonization: 0.4, MeasurementError: 0.1}, Summary: summary.Vector{0.76, 0.27}, Distance: 0.01},
	}
	est, err := run.EstimatesFrom(accepted)
	require.NoError(t, err)
	return &run.Record{
		ID:               core.NewRunID(),
		Fingerprint:      run.NewFingerprint(settings),
		Settings:         settings,
		EmpiricalSummary: summary.Vector{0.75, 5.0 / 19},
		Outcome:          run.OutcomeAccepted,
		PoolSize:         10,
		Accepted:         accepted,
		Estimates:        est,
		CreatedAt:        core.Now(),
	}
}

func TestWritePosterior(t *testing.T) {
	rec := testRecord(t)
	path := filepath.Join(t.TempDir(), "run.xlsx")

	require.NoError(t, WritePosterior(path, rec))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, PosteriorSheet}, f.GetSheetList())

	rows, err := f.GetRows(PosteriorSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"index", "e", "c", "m", "distance", "occupancy", "transition_rate"}, rows[0])
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "5", rows[2][0])
	assert.Equal(t, "0.4", rows[2][2])

	id, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, rec.ID.String(), id)

	summaryRows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	var found bool
	for _, row := range summaryRows {
		if len(row) > 1 && row[0] == "e" {
			found = true
			assert.Equal(t, "0.5", row[1])
		}
	}
	assert.True(t, found, "estimates table missing")
}

func TestWritePosterior_EmptyPosterior(t *testing.T) {
	rec := testRecord(t)
	rec.Accepted = nil
	rec.Estimates = nil
	rec.Outcome = run.OutcomeNoAcceptance

	var buf bytes.Buffer
	require.NoError(t, WritePosteriorTo(&buf, rec))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(PosteriorSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadSequence_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(DefaultSheet, "A1", &[]interface{}{"year", "Present"}))
	record := "00011111111101101111"
	for i, ch := range record {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(DefaultSheet, cell, &[]interface{}{2000 + i, ch == '1'}))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	seq, err := ReadSequence(path, "", "present")
	require.NoError(t, err)
	assert.Equal(t, record, seq.String())
	assert.Equal(t, 15, seq.Count())
}

func TestReadSequence_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.csv")
	require.NoError(t, os.WriteFile(path, []byte("present\n0\n1\n1\n0\n\n"), 0o644))

	seq, err := ReadSequence(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, "0110", seq.String())
}

func TestReadSequence_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSequence(filepath.Join(dir, "missing.csv"), "", "")
	assert.Error(t, err)

	gap := filepath.Join(dir, "gap.csv")
	require.NoError(t, os.WriteFile(gap, []byte("year,present\n1,1\n2,\n3,0\n"), 0o644))
	_, err = ReadSequence(gap, "", "present")
	assert.True(t, core.IsConfigurationError(err))

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("present\n1\nmaybe\n"), 0o644))
	_, err = ReadSequence(bad, "", "")
	assert.True(t, core.IsConfigurationError(err))

	_, err = ReadSequence(bad, "", "absent")
	assert.True(t, core.IsConfigurationError(err))
}
