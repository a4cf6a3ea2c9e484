package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tpoisot/IntroScientificComputing/domain/run"
)

// Sheet names of an exported run
const (
	SummarySheet   = "summary"
	PosteriorSheet = "posterior"
)

// Workbook builds the export of a run: a summary sheet with the settings and
// estimates, and a posterior sheet with one row per accepted sample
func Workbook(rec *run.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(DefaultSheet, SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create %s sheet: %w", SummarySheet, err)
	}
	if _, err := f.NewSheet(PosteriorSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create %s sheet: %w", PosteriorSheet, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, rec, bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := writePosterior(f, rec, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WritePosterior saves the export of a run to path
func WritePosterior(path string, rec *run.Record) error {
	f, err := Workbook(rec)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WritePosteriorTo streams the export of a run to w
func WritePosteriorTo(w io.Writer, rec *run.Record) error {
	f, err := Workbook(rec)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, rec *run.Record, headerStyle int) error {
	s := rec.Settings
	rows := [][]interface{}{
		{"field", "value"},
		{"run_id", rec.ID.String()},
		{"fingerprint", rec.Fingerprint.Hash.String()},
		{"code_version", rec.Fingerprint.CodeVersion},
		{"created_at", rec.CreatedAt.String()},
		{"samples", s.Samples},
		{"threshold", s.Threshold},
		{"steps", s.Steps},
		{"seed", fmt.Sprintf("%d", s.Seed)},
		{"statistics", strings.Join(s.Statistics, ",")},
		{"distance", s.Distance},
		{"prior_e", s.PriorE},
		{"prior_c", s.PriorC},
		{"prior_m", s.PriorM},
		{"empirical", s.Empirical},
		{"outcome", string(rec.Outcome)},
		{"partial", rec.Partial},
		{"pool_size", rec.PoolSize},
		{"accepted", len(rec.Accepted)},
	}
	for i, name := range s.Statistics {
		if i < len(rec.EmpiricalSummary) {
			rows = append(rows, []interface{}{"observed_" + name, rec.EmpiricalSummary[i]})
		}
	}

	for i, row := range rows {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	if rec.Estimates != nil {
		start := len(rows) + 2
		header := []interface{}{"parameter", "mean", "std_dev", "median", "lower_2.5", "upper_97.5", "n"}
		if err := setRow(f, SummarySheet, start, header); err != nil {
			return err
		}
		estimates := []struct {
			name string
			est  run.Estimate
		}{
			{"e", rec.Estimates.Extinction},
			{"c", rec.Estimates.Colonization},
			{"m", rec.Estimates.MeasurementError},
		}
		for i, p := range estimates {
			e := p.est
			if err := setRow(f, SummarySheet, start+1+i, []interface{}{p.name, e.Mean, e.StdDev, e.Median, e.Lower, e.Upper, e.N}); err != nil {
				return err
			}
		}
		if err := styleRow(f, SummarySheet, start, len(header), headerStyle); err != nil {
			return err
		}
	}

	return styleRow(f, SummarySheet, 1, 2, headerStyle)
}

func writePosterior(f *excelize.File, rec *run.Record, headerStyle int) error {
	header := []interface{}{"index", "e", "c", "m", "distance"}
	for _, name := range rec.Settings.Statistics {
		header = append(header, name)
	}
	if err := setRow(f, PosteriorSheet, 1, header); err != nil {
		return err
	}

	for i, s := range rec.Accepted {
		row := []interface{}{s.Index, s.Params.Extinction, s.Params.Colonization, s.Params.MeasurementError, s.Distance}
		for _, v := range s.Summary {
			row = append(row, v)
		}
		if err := setRow(f, PosteriorSheet, i+2, row); err != nil {
			return err
		}
	}

	return styleRow(f, PosteriorSheet, 1, len(header), headerStyle)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, width, style int) error {
	from, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}
