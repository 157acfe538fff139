package aggregator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agg "github.com/econia-labs/aggregator/internal/aggregator"
	"github.com/econia-labs/aggregator/internal/aggregator/internal/fakestore"
)

func TestLoadBatch_Empty(t *testing.T) {
	store := fakestore.New()
	batch, err := agg.LoadBatch(context.Background(), store, 0)
	require.NoError(t, err)
	assert.True(t, batch.Empty())
}

func TestLoadBatch_ExcludesAlreadyAggregated(t *testing.T) {
	store := fakestore.New()
	store.Fills = []agg.FillEvent{
		{EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 0}},
		{EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 1}},
	}
	store.Ledger[agg.EventKey{TxnVersion: 1, EventIdx: 0}] = true

	batch, err := agg.LoadBatch(context.Background(), store, 0)
	require.NoError(t, err)
	require.Len(t, batch.Fills, 1)
	assert.Equal(t, uint64(1), batch.Fills[0].EventIdx)
	assert.False(t, batch.Empty())
}

func TestLoadBatch_RespectsMaxBatchSize(t *testing.T) {
	store := fakestore.New()
	store.Fills = []agg.FillEvent{
		{EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 0}},
		{EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 1}},
		{EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 2}},
	}

	batch, err := agg.LoadBatch(context.Background(), store, 2)
	require.NoError(t, err)
	require.Len(t, batch.Fills, 2)
	assert.Equal(t, uint64(0), batch.Fills[0].EventIdx)
	assert.Equal(t, uint64(1), batch.Fills[1].EventIdx)
}
