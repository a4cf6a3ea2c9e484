package run

import (
	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/summary"
)

// Sample is one trial of a run: the drawn parameters, the summary of the
// sequence they produced, and its distance to the observed summary.
type Sample struct {
	Index    int              `json:"index"`
	Params   occupancy.Params `json:"params"`
	Summary  summary.Vector   `json:"summary"`
	Distance float64          `json:"distance"`
}

// Outcome distinguishes a run with a usable posterior from one without
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeNoAcceptance Outcome = "no_acceptance"
)

// Settings echoes the configuration a run was made with, in printable form
type Settings struct {
	Samples    int      `json:"samples"`
	Threshold  float64  `json:"threshold"`
	Steps      int      `json:"steps"`
	Seed       uint64   `json:"seed"`
	Workers    int      `json:"workers"`
	Statistics []string `json:"statistics"`
	Distance   string   `json:"distance"`
	PriorE     string   `json:"prior_e"`
	PriorC     string   `json:"prior_c"`
	PriorM     string   `json:"prior_m"`
	Empirical  string   `json:"empirical"`
}

// Result is the full output of one estimator run
type Result struct {
	ID               core.RunID     `json:"id"`
	Fingerprint      Fingerprint    `json:"fingerprint"`
	Settings         Settings       `json:"settings"`
	EmpiricalSummary summary.Vector `json:"empirical_summary"`
	Pool             []Sample       `json:"-"`
	Accepted         []Sample       `json:"accepted"`
	Outcome          Outcome        `json:"outcome"`
	// Partial is set when the run stopped early; Pool then holds only the
	// trials that completed.
	Partial    bool           `json:"partial"`
	StartedAt  core.Timestamp `json:"started_at"`
	FinishedAt core.Timestamp `json:"finished_at"`
}

// PoolSize is the number of completed trials
func (r *Result) PoolSize() int {
	return len(r.Pool)
}

// AcceptanceRate is the accepted fraction of completed trials
func (r *Result) AcceptanceRate() float64 {
	if len(r.Pool) == 0 {
		return 0
	}
	return float64(len(r.Accepted)) / float64(len(r.Pool))
}

// AcceptedIndexes returns the draw indexes of the posterior, in draw order
func (r *Result) AcceptedIndexes() []int {
	idx := make([]int, len(r.Accepted))
	for i, s := range r.Accepted {
		idx[i] = s.Index
	}
	return idx
}

// Estimates summarises the posterior, or returns core.ErrEmptyPosterior
func (r *Result) Estimates() (*Estimates, error) {
	return EstimatesFrom(r.Accepted)
}

// Record is the persisted form of a run. The full pool is not kept.
type Record struct {
	ID               core.RunID     `json:"id"`
	Fingerprint      Fingerprint    `json:"fingerprint"`
	Settings         Settings       `json:"settings"`
	EmpiricalSummary summary.Vector `json:"empirical_summary"`
	Outcome          Outcome        `json:"outcome"`
	Partial          bool           `json:"partial"`
	PoolSize         int            `json:"pool_size"`
	Accepted         []Sample       `json:"accepted"`
	Estimates        *Estimates     `json:"estimates,omitempty"`
	CreatedAt        core.Timestamp `json:"created_at"`
}

// NewRecord builds the persisted form of r
func NewRecord(r *Result) *Record {
	rec := &Record{
		ID:               r.ID,
		Fingerprint:      r.Fingerprint,
		Settings:         r.Settings,
		EmpiricalSummary: r.EmpiricalSummary,
		Outcome:          r.Outcome,
		Partial:          r.Partial,
		PoolSize:         len(r.Pool),
		Accepted:         r.Accepted,
		CreatedAt:        r.FinishedAt,
	}
	if est, err := r.Estimates(); err == nil {
		rec.Estimates = est
	}
	return rec
}

// Result rebuilds a result view from the record. The pool is not restored;
// PoolSize stays available on the record.
func (rec *Record) Result() *Result {
	return &Result{
		ID:               rec.ID,
		Fingerprint:      rec.Fingerprint,
		Settings:         rec.Settings,
		EmpiricalSummary: rec.EmpiricalSummary,
		Accepted:         rec.Accepted,
		Outcome:          rec.Outcome,
		Partial:          rec.Partial,
		FinishedAt:       rec.CreatedAt,
	}
}
