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

type fakeOrphanCounter struct{ n int }

func (c *fakeOrphanCounter) IncCancelOrphan() { c.n++ }

func TestApplyCancel_MarksOrderCancelled(t *testing.T) {
	store := fakestore.New()
	seedOpenLimit(t, store, 1, 100, decimal.NewFromInt(10))

	counter := &fakeOrphanCounter{}
	c := agg.CancelEvent{
		EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID: 1,
		OrderID:  100,
		Time:     time.Unix(10, 0),
	}
	require.NoError(t, agg.ApplyCancel(context.Background(), store, zap.NewNop(), counter, c))

	hist, err := store.GetUserHistory(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, agg.OrderStatusCancelled, hist.OrderStatus)
	assert.Equal(t, 0, counter.n)
}

func TestApplyCancel_OrphanIsNonFatalAndCounted(t *testing.T) {
	store := fakestore.New()
	counter := &fakeOrphanCounter{}

	c := agg.CancelEvent{
		EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID: 1,
		OrderID:  999,
	}
	require.NoError(t, agg.ApplyCancel(context.Background(), store, zap.NewNop(), counter, c))
	assert.Equal(t, 1, counter.n)
	assert.True(t, store.Ledger[agg.EventKey{TxnVersion: 1, EventIdx: 0}])
}

func TestApplyCancel_AfterFillOverridesEagerClose(t *testing.T) {
	store := fakestore.New()
	require.NoError(t, store.InsertUserHistory(context.Background(), agg.UserHistory{
		MarketID:      1,
		OrderID:       300,
		RemainingSize: decimal.NewFromInt(50),
		OrderStatus:   agg.OrderStatusOpen,
		OrderType:     agg.OrderTypeMarket,
	}))
	seedOpenLimit(t, store, 1, 100, decimal.NewFromInt(20))

	f := agg.FillEvent{
		EventKey:     agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID:     1,
		MakerOrderID: 100,
		TakerOrderID: 300,
		Size:         decimal.NewFromInt(10),
		MakerAddress: agg.Address{0x01},
		EmitAddress:  agg.Address{0x01},
	}
	require.NoError(t, agg.ApplyFill(context.Background(), store, f))

	taker, err := store.GetUserHistory(context.Background(), 1, 300)
	require.NoError(t, err)
	require.Equal(t, agg.OrderStatusClosed, taker.OrderStatus)

	c := agg.CancelEvent{
		EventKey: agg.EventKey{TxnVersion: 1, EventIdx: 1},
		MarketID: 1,
		OrderID:  300,
	}
	require.NoError(t, agg.ApplyCancel(context.Background(), store, zap.NewNop(), &fakeOrphanCounter{}, c))

	taker, err = store.GetUserHistory(context.Background(), 1, 300)
	require.NoError(t, err)
	assert.Equal(t, agg.OrderStatusCancelled, taker.OrderStatus, "same-transaction cancel must win over eager close")
}
