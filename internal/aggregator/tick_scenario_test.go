package aggregator_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	agg "github.com/econia-labs/aggregator/internal/aggregator"
	"github.com/econia-labs/aggregator/internal/aggregator/internal/fakestore"
)

// runOneTickWorthOfWork exercises the same A-through-F control flow
// runTick drives, against the fake store, so the cross-component
// ordering guarantees can be asserted without a live Postgres instance.
func runOneTickWorthOfWork(t *testing.T, store *fakestore.Store, counter *fakeOrphanCounter) {
	t.Helper()
	ctx := context.Background()

	batch, err := agg.LoadBatch(ctx, store, 0)
	require.NoError(t, err)
	if batch.Empty() {
		return
	}

	require.NoError(t, agg.ApplyPlacements(ctx, store, batch))

	for _, seq := range agg.MergeFillsAndChanges(batch.Fills, batch.Changes) {
		switch {
		case seq.Fill != nil:
			require.NoError(t, agg.ApplyFill(ctx, store, *seq.Fill))
		case seq.Change != nil:
			require.NoError(t, agg.ApplyChange(ctx, store, *seq.Change))
		}
	}

	for _, c := range batch.Cancels {
		require.NoError(t, agg.ApplyCancel(ctx, store, zap.NewNop(), counter, c))
	}
}

// TestTick_PlaceFillCancelSameTransaction reproduces the scenario where a
// market order is placed, filled, and cancelled within a single tick:
// the eager market-order close from the fill must be overridden by the
// later cancel.
func TestTick_PlaceFillCancelSameTransaction(t *testing.T) {
	store := fakestore.New()
	seedOpenLimit(t, store, 1, 1, decimal.NewFromInt(100))

	store.PlaceMarkets = []agg.PlaceMarketEvent{{
		EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID: 1,
		OrderID:  2,
		Size:     decimal.NewFromInt(30),
		Time:     time.Unix(100, 0),
	}}
	store.Fills = []agg.FillEvent{{
		EventKey:     agg.EventKey{TxnVersion: 1, EventIdx: 1},
		MarketID:     1,
		MakerOrderID: 1,
		TakerOrderID: 2,
		Size:         decimal.NewFromInt(10),
		MakerAddress: agg.Address{0x01},
		EmitAddress:  agg.Address{0x01},
	}}
	store.Cancels = []agg.CancelEvent{{
		EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 2},
		MarketID: 1,
		OrderID:  2,
	}}

	runOneTickWorthOfWork(t, store, &fakeOrphanCounter{})

	order, err := store.GetUserHistory(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, agg.OrderStatusCancelled, order.OrderStatus)

	for _, k := range []agg.EventKey{
		{TxnVersion: 1, EventIdx: 0},
		{TxnVersion: 1, EventIdx: 1},
		{TxnVersion: 1, EventIdx: 2},
	} {
		assert.True(t, store.Ledger[k], "event %+v must be ledgered", k)
	}
}

// TestTick_RepeatedTickIsNoOpOnceDrained asserts the idempotence
// property: once a tick has consumed everything in the batch, a second
// tick over the same store sees an empty batch and changes nothing.
func TestTick_RepeatedTickIsNoOpOnceDrained(t *testing.T) {
	store := fakestore.New()
	store.PlaceLimits = []agg.PlaceLimitEvent{{
		EventKey:    agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID:    1,
		OrderID:     1,
		InitialSize: decimal.NewFromInt(10),
	}}

	runOneTickWorthOfWork(t, store, &fakeOrphanCounter{})
	ledgerSizeAfterFirst := len(store.Ledger)

	runOneTickWorthOfWork(t, store, &fakeOrphanCounter{})
	assert.Equal(t, ledgerSizeAfterFirst, len(store.Ledger), "second tick must see an empty batch")
}
