package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
	"github.com/tpoisot/IntroScientificComputing/domain/run"
)

func TestInMemoryRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTestKit().RunRepository()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []core.RunID
	for i := 0; i < 3; i++ {
		rec := &run.Record{
			ID:        core.NewRunID(),
			Outcome:   run.OutcomeAccepted,
			PoolSize:  i,
			CreatedAt: core.Timestamp(base.Add(time.Duration(i) * time.Hour)),
		}
		require.NoError(t, repo.Save(ctx, rec))
		ids = append(ids, rec.ID)
	}

	got, err := repo.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 1, got.PoolSize)

	_, err = repo.Get(ctx, core.NewRunID())
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)

	// saving again replaces without duplicating
	got.PoolSize = 99
	require.NoError(t, repo.Save(ctx, got))
	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestObservedSequence(t *testing.T) {
	seq := ObservedSequence()
	assert.Equal(t, 20, seq.Len())
	assert.False(t, seq[2])
	assert.True(t, seq[3])
	assert.False(t, seq[12])
	assert.True(t, seq[19])
}

func TestRNGAdapter_RecordsStreams(t *testing.T) {
	r := NewRNGAdapter()
	_, err := r.Stream(context.Background(), "abc-trial", 0, 1)
	require.NoError(t, err)
	_, err = r.Stream(context.Background(), "abc-trial", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Calls("abc-trial"))
	assert.Equal(t, 0, r.Calls("abc-predict"))
}
