package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
	"github.com/tpoisot/IntroScientificComputing/internal/migration"
	"github.com/tpoisot/IntroScientificComputing/ports"
)

// sampleBatchSize keeps a multi-row insert well under the 65535 bind
// parameter limit of the Postgres protocol
const sampleBatchSize = 1000

// RunRepositoryImpl implements ports.RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*RunRepositoryImpl)(nil)

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

// EnsureSchema creates the run tables if they do not exist
func (r *RunRepositoryImpl) EnsureSchema(ctx context.Context) error {
	return migration.NewRunner().Run(ctx, r.db)
}

type runRow struct {
	ID               string         `db:"id"`
	Fingerprint      string         `db:"fingerprint"`
	CodeVersion      string         `db:"code_version"`
	Settings         string         `db:"settings"`
	EmpiricalSummary string         `db:"empirical_summary"`
	Outcome          string         `db:"outcome"`
	Partial          bool           `db:"partial"`
	PoolSize         int            `db:"pool_size"`
	Estimates        sql.NullString `db:"estimates"`
	CreatedAt        time.Time      `db:"created_at"`
}

type sampleRow struct {
	RunID            string  `db:"run_id"`
	Index            int     `db:"sample_index"`
	Extinction       float64 `db:"extinction"`
	Colonization     float64 `db:"colonization"`
	MeasurementError float64 `db:"measurement_error"`
	Summary          string  `db:"summary"`
	Distance         float64 `db:"distance"`
}

// Save stores the run and its posterior in one transaction, replacing any
// earlier version of the same run
func (r *RunRepositoryImpl) Save(ctx context.Context, rec *run.Record) error {
	row, err := toRunRow(rec)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO abc_runs (id, fingerprint, code_version, settings, empirical_summary, outcome, partial, pool_size, estimates, created_at)
		VALUES (:id, :fingerprint, :code_version, CAST(:settings AS JSONB), CAST(:empirical_summary AS JSONB), :outcome, :partial, :pool_size, CAST(:estimates AS JSONB), :created_at)
		ON CONFLICT (id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			code_version = EXCLUDED.code_version,
			settings = EXCLUDED.settings,
			empirical_summary = EXCLUDED.empirical_summary,
			outcome = EXCLUDED.outcome,
			partial = EXCLUDED.partial,
			pool_size = EXCLUDED.pool_size,
			estimates = EXCLUDED.estimates,
			created_at = EXCLUDED.created_at
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM abc_posterior_samples WHERE run_id = $1`, row.ID); err != nil {
		return fmt.Errorf("failed to clear posterior of run %s: %w", rec.ID, err)
	}

	samples, err := toSampleRows(row.ID, rec.Accepted)
	if err != nil {
		return err
	}
	for start := 0; start < len(samples); start += sampleBatchSize {
		end := min(start+sampleBatchSize, len(samples))
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO abc_posterior_samples (run_id, sample_index, extinction, colonization, measurement_error, summary, distance)
			VALUES (:run_id, :sample_index, :extinction, :colonization, :measurement_error, CAST(:summary AS JSONB), :distance)
		`, samples[start:end])
		if err != nil {
			return fmt.Errorf("failed to save posterior of run %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a run and its posterior by ID
func (r *RunRepositoryImpl) Get(ctx context.Context, id core.RunID) (*run.Record, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, fingerprint, code_version, settings, empirical_summary, outcome, partial, pool_size, estimates, created_at
		FROM abc_runs
		WHERE id = $1
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w with id %s", core.ErrRunNotFound, id)
		}
		return nil, err
	}

	rec, err := fromRunRow(row)
	if err != nil {
		return nil, err
	}

	var samples []sampleRow
	err = r.db.SelectContext(ctx, &samples, `
		SELECT run_id, sample_index, extinction, colonization, measurement_error, summary, distance
		FROM abc_posterior_samples
		WHERE run_id = $1
		ORDER BY sample_index
	`, row.ID)
	if err != nil {
		return nil, err
	}
	if rec.Accepted, err = fromSampleRows(samples); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the most recent runs first, with their posteriors
func (r *RunRepositoryImpl) List(ctx context.Context, limit int) ([]*run.Record, error) {
	query := `
		SELECT id, fingerprint, code_version, settings, empirical_summary, outcome, partial, pool_size, estimates, created_at
		FROM abc_runs
		ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*run.Record{}, nil
	}

	records := make([]*run.Record, 0, len(rows))
	byID := make(map[string]*run.Record, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRunRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		byID[row.ID] = rec
		ids = append(ids, row.ID)
	}

	var samples []sampleRow
	err := r.db.SelectContext(ctx, &samples, `
		SELECT run_id, sample_index, extinction, colonization, measurement_error, summary, distance
		FROM abc_posterior_samples
		WHERE run_id = ANY($1::uuid[])
		ORDER BY run_id, sample_index
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]sampleRow, len(rows))
	for _, s := range samples {
		grouped[s.RunID] = append(grouped[s.RunID], s)
	}
	for id, rec := range byID {
		if rec.Accepted, err = fromSampleRows(grouped[id]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func toRunRow(rec *run.Record) (runRow, error) {
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return runRow{}, fmt.Errorf("failed to encode settings: %w", err)
	}
	empirical, err := json.Marshal(rec.EmpiricalSummary)
	if err != nil {
		return runRow{}, fmt.Errorf("failed to encode empirical summary: %w", err)
	}
	var estimates sql.NullString
	if rec.Estimates != nil {
		b, err := json.Marshal(rec.Estimates)
		if err != nil {
			return runRow{}, fmt.Errorf("failed to encode estimates: %w", err)
		}
		estimates = sql.NullString{String: string(b), Valid: true}
	}

	return runRow{
		ID:               rec.ID.String(),
		Fingerprint:      rec.Fingerprint.Hash.String(),
		CodeVersion:      rec.Fingerprint.CodeVersion,
		Settings:         string(settings),
		EmpiricalSummary: string(empirical),
		Outcome:          string(rec.Outcome),
		Partial:          rec.Partial,
		PoolSize:         rec.PoolSize,
		Estimates:        estimates,
		CreatedAt:        rec.CreatedAt.Time(),
	}, nil
}

func fromRunRow(row runRow) (*run.Record, error) {
	rec := &run.Record{
		ID:        core.RunID(row.ID),
		Outcome:   run.Outcome(row.Outcome),
		Partial:   row.Partial,
		PoolSize:  row.PoolSize,
		Accepted:  []run.Sample{},
		CreatedAt: core.Timestamp(row.CreatedAt.UTC()),
	}
	if err := json.Unmarshal([]byte(row.Settings), &rec.Settings); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode settings: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.EmpiricalSummary), &rec.EmpiricalSummary); err != nil {
		return nil, fmt.Errorf("run %s: failed to decode empirical summary: %w", row.ID, err)
	}
	if row.Estimates.Valid {
		rec.Estimates = &run.Estimates{}
		if err := json.Unmarshal([]byte(row.Estimates.String), rec.Estimates); err != nil {
			return nil, fmt.Errorf("run %s: failed to decode estimates: %w", row.ID, err)
		}
	}
	rec.Fingerprint = run.Fingerprint{
		Seed:        rec.Settings.Seed,
		CodeVersion: row.CodeVersion,
		Hash:        core.Hash(row.Fingerprint),
	}
	return rec, nil
}

func toSampleRows(runID string, samples []run.Sample) ([]sampleRow, error) {
	rows := make([]sampleRow, len(samples))
	for i, s := range samples {
		b, err := json.Marshal(s.Summary)
		if err != nil {
			return nil, fmt.Errorf("failed to encode summary of sample %d: %w", s.Index, err)
		}
		rows[i] = sampleRow{
			RunID:            runID,
			Index:            s.Index,
			Extinction:       s.Params.Extinction,
			Colonization:     s.Params.Colonization,
			MeasurementError: s.Params.MeasurementError,
			Summary:          string(b),
			Distance:         s.Distance,
		}
	}
	return rows, nil
}

func fromSampleRows(rows []sampleRow) ([]run.Sample, error) {
	samples := make([]run.Sample, len(rows))
	for i, row := range rows {
		var v summary.Vector
		if err := json.Unmarshal([]byte(row.Summary), &v); err != nil {
			return nil, fmt.Errorf("failed to decode summary of sample %d: %w", row.Index, err)
		}
		samples[i] = run.Sample{
			Index: row.Index,
			Params: occupancy.Params{
				Extinction:       row.Extinction,
				Colonization:     row.Colonization,
				MeasurementError: row.MeasurementError,
			},
			Summary:  v,
			Distance: row.Distance,
		}
	}
	return samples, nil
}
