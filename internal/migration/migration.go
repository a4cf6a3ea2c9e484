package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/tpoisot/IntroScientificComputing/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the run tables. Every step is idempotent.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create abc_runs table", err)
	}

	if err := r.createPosteriorSamplesTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create abc_posterior_samples table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS abc_runs (
			id UUID PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			code_version TEXT NOT NULL,
			settings JSONB NOT NULL,
			empirical_summary JSONB NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			partial BOOLEAN NOT NULL DEFAULT false,
			pool_size INTEGER NOT NULL,
			estimates JSONB,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createPosteriorSamplesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS abc_posterior_samples (
			run_id UUID NOT NULL REFERENCES abc_runs(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			extinction DOUBLE PRECISION NOT NULL,
			colonization DOUBLE PRECISION NOT NULL,
			measurement_error DOUBLE PRECISION NOT NULL,
			summary JSONB NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, sample_index)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_abc_runs_fingerprint ON abc_runs(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_abc_runs_created_at ON abc_runs(created_at DESC)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
