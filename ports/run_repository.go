package ports

import (
	"context"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
)

// RunRepository persists finished estimator runs
type RunRepository interface {
	// Save stores a run record, replacing any record with the same ID
	Save(ctx context.Context, rec *run.Record) error

	// Get returns a run by ID, or an error wrapping core.ErrNotFound
	Get(ctx context.Context, id core.RunID) (*run.Record, error)

	// List returns the most recent runs first, at most limit (all when limit <= 0)
	List(ctx context.Context, limit int) ([]*run.Record, error)
}
