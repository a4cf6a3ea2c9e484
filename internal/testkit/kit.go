package testkit

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/tpoisot/IntroScientificComputing/adapters/rng"
	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/occupancy"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
	"github.com/tpoisot/IntroScientificComputing/ports"
)

// ObservedRecord is the 20-step field record used across tests: present at
// steps 4-12, 14-15 and 17-20 (1-indexed).
const ObservedRecord = "00011111111101101111"

// ObservedSequence returns ObservedRecord as a sequence
func ObservedSequence() occupancy.Sequence {
	seq, err := occupancy.ParseSequence(ObservedRecord)
	if err != nil {
		panic(err)
	}
	return seq
}

// TestKit provides testing utilities and fixtures
type TestKit struct {
	runs *InMemoryRunRepository
	rng  *RNGAdapter
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{
		runs: NewInMemoryRunRepository(),
		rng:  NewRNGAdapter(),
	}
}

// RunRepository returns the shared in-memory run repository
func (t *TestKit) RunRepository() *InMemoryRunRepository {
	return t.runs
}

// RNGAdapter returns the recording RNG adapter
func (t *TestKit) RNGAdapter() *RNGAdapter {
	return t.rng
}

// RNGAdapter implements ports.RNGPort on top of the PCG adapter and records
// which streams were requested
type RNGAdapter struct {
	inner ports.RNGPort

	mu      sync.Mutex
	streams map[string]int
}

var _ ports.RNGPort = (*RNGAdapter)(nil)

func NewRNGAdapter() *RNGAdapter {
	return &RNGAdapter{
		inner:   rng.NewPCGAdapter(),
		streams: make(map[string]int),
	}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *RNGAdapter) SeededStream(ctx context.Context, name string, seed uint64) (*rand.Rand, error) {
	r.record(name)
	return r.inner.SeededStream(ctx, name, seed)
}

// Stream creates the generator of one trial
func (r *RNGAdapter) Stream(ctx context.Context, stage string, index int, baseSeed uint64) (*rand.Rand, error) {
	r.record(stage)
	return r.inner.Stream(ctx, stage, index, baseSeed)
}

// Calls returns how many streams were requested for a stage
func (r *RNGAdapter) Calls(stage string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streams[stage]
}

func (r *RNGAdapter) record(stage string) {
	r.mu.Lock()
	r.streams[stage]++
	r.mu.Unlock()
}

// InMemoryRunRepository implements ports.RunRepository with in-memory storage
type InMemoryRunRepository struct {
	records map[core.RunID]*run.Record
	order   []core.RunID
	mu      sync.RWMutex
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		records: make(map[core.RunID]*run.Record),
	}
}

func (s *InMemoryRunRepository) Save(ctx context.Context, rec *run.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *InMemoryRunRepository) Get(ctx context.Context, id core.RunID) (*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[id]
	if !exists {
		return nil, core.NewNotFoundError("run", id.String())
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryRunRepository) List(ctx context.Context, limit int) ([]*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*run.Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		cp := *s.records[s.order[i]]
		results = append(results, &cp)
	}
	// insertion order breaks ties between equal timestamps
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.Time().After(results[j].CreatedAt.Time())
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
