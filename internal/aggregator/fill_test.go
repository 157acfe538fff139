package aggregator_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agg "github.com/econia-labs/aggregator/internal/aggregator"
	"github.com/econia-labs/aggregator/internal/aggregator/internal/fakestore"
)

func seedOpenLimit(t *testing.T, store *fakestore.Store, marketID, orderID uint64, size decimal.Decimal) {
	t.Helper()
	require.NoError(t, store.InsertUserHistory(context.Background(), agg.UserHistory{
		MarketID:      marketID,
		OrderID:       orderID,
		CreatedAt:     time.Unix(1, 0),
		TotalFilled:   decimal.Zero,
		RemainingSize: size,
		OrderStatus:   agg.OrderStatusOpen,
		OrderType:     agg.OrderTypeLimit,
	}))
}

func TestApplyFill_PartialFillStaysOpen(t *testing.T) {
	store := fakestore.New()
	seedOpenLimit(t, store, 1, 100, decimal.NewFromInt(20))
	seedOpenLimit(t, store, 1, 200, decimal.NewFromInt(20))

	f := agg.FillEvent{
		EventKey:     agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID:     1,
		MakerOrderID: 100,
		TakerOrderID: 200,
		Size:         decimal.NewFromInt(5),
		MakerAddress: agg.Address{0x01},
		EmitAddress:  agg.Address{0x01},
		Time:         time.Unix(2, 0),
	}
	require.NoError(t, agg.ApplyFill(context.Background(), store, f))

	maker, err := store.GetUserHistory(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, agg.OrderStatusOpen, maker.OrderStatus)
	assert.True(t, maker.RemainingSize.Equal(decimal.NewFromInt(15)))
	assert.True(t, maker.TotalFilled.Equal(decimal.NewFromInt(5)))

	taker, err := store.GetUserHistory(context.Background(), 1, 200)
	require.NoError(t, err)
	assert.True(t, taker.RemainingSize.Equal(decimal.NewFromInt(15)))
}

func TestApplyFill_LimitClosesAtZeroRemaining(t *testing.T) {
	store := fakestore.New()
	seedOpenLimit(t, store, 1, 100, decimal.NewFromInt(5))
	seedOpenLimit(t, store, 1, 200, decimal.NewFromInt(5))

	f := agg.FillEvent{
		EventKey:     agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID:     1,
		MakerOrderID: 100,
		TakerOrderID: 200,
		Size:         decimal.NewFromInt(5),
		MakerAddress: agg.Address{0x01},
		EmitAddress:  agg.Address{0x01},
	}
	require.NoError(t, agg.ApplyFill(context.Background(), store, f))

	maker, err := store.GetUserHistory(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, agg.OrderStatusClosed, maker.OrderStatus)
}

func TestApplyFill_MarketOrderClosesEagerlyEvenWithRemainingSize(t *testing.T) {
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
	assert.Equal(t, agg.OrderStatusClosed, taker.OrderStatus)
}

func TestApplyFill_DuplicateEmitIsAcknowledgedWithoutDoubleApplying(t *testing.T) {
	store := fakestore.New()
	seedOpenLimit(t, store, 1, 100, decimal.NewFromInt(20))
	seedOpenLimit(t, store, 1, 200, decimal.NewFromInt(20))

	base := agg.FillEvent{
		MarketID:     1,
		MakerOrderID: 100,
		TakerOrderID: 200,
		Size:         decimal.NewFromInt(5),
		MakerAddress: agg.Address{0x01},
	}

	makerCopy := base
	makerCopy.EventKey = agg.EventKey{TxnVersion: 1, EventIdx: 0}
	makerCopy.EmitAddress = agg.Address{0x01}
	require.NoError(t, agg.ApplyFill(context.Background(), store, makerCopy))

	takerCopy := base
	takerCopy.EventKey = agg.EventKey{TxnVersion: 1, EventIdx: 1}
	takerCopy.EmitAddress = agg.Address{0x02}
	require.NoError(t, agg.ApplyFill(context.Background(), store, takerCopy))

	maker, err := store.GetUserHistory(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.True(t, maker.TotalFilled.Equal(decimal.NewFromInt(5)), "fill must not apply twice")

	assert.True(t, store.Ledger[agg.EventKey{TxnVersion: 1, EventIdx: 0}])
	assert.True(t, store.Ledger[agg.EventKey{TxnVersion: 1, EventIdx: 1}])
}

func TestApplyFill_UnknownOrderIsIntegrityError(t *testing.T) {
	store := fakestore.New()
	f := agg.FillEvent{
		EventKey:     agg.EventKey{TxnVersion: 1, EventIdx: 0},
		MarketID:     1,
		MakerOrderID: 999,
		TakerOrderID: 998,
		Size:         decimal.NewFromInt(1),
		MakerAddress: agg.Address{0x01},
		EmitAddress:  agg.Address{0x01},
	}
	err := agg.ApplyFill(context.Background(), store, f)
	require.Error(t, err)
}
