package aggregator

import (
	"context"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// Batch holds one tick's worth of unaggregated events, loaded from all
// six input tables inside the tick's transaction.
type Batch struct {
	PlaceLimits  []PlaceLimitEvent
	PlaceMarkets []PlaceMarketEvent
	PlaceSwaps   []PlaceSwapEvent
	Fills        []FillEvent
	Changes      []ChangeSizeEvent
	Cancels      []CancelEvent
}

// Empty reports whether the batch contains no events at all, in which
// case a tick has nothing to do beyond confirming readiness.
func (b *Batch) Empty() bool {
	return len(b.PlaceLimits) == 0 &&
		len(b.PlaceMarkets) == 0 &&
		len(b.PlaceSwaps) == 0 &&
		len(b.Fills) == 0 &&
		len(b.Changes) == 0 &&
		len(b.Cancels) == 0
}

// LoadBatch reads all unaggregated rows of each event table under the
// given store's bound transaction. The six reads have no ordering
// dependency on each other; under serializable isolation they are all
// consistent with the same snapshot regardless of issue order.
//
// maxBatchSize caps how many rows each of the six queries returns; zero
// means unbounded. A cap that truncates a table means that table alone
// drains over several ticks instead of one, which is safe under the
// idempotence ledger but means Batch.Empty can be false on every tick
// until the backlog clears.
func LoadBatch(ctx context.Context, store HistoryStore, maxBatchSize int) (*Batch, error) {
	limits, err := store.LoadUnaggregatedPlaceLimits(ctx, maxBatchSize)
	if err != nil {
		return nil, aggerr.Transient(err, "load place_limit_order_events")
	}
	markets, err := store.LoadUnaggregatedPlaceMarkets(ctx, maxBatchSize)
	if err != nil {
		return nil, aggerr.Transient(err, "load place_market_order_events")
	}
	swaps, err := store.LoadUnaggregatedPlaceSwaps(ctx, maxBatchSize)
	if err != nil {
		return nil, aggerr.Transient(err, "load place_swap_order_events")
	}
	fills, err := store.LoadUnaggregatedFills(ctx, maxBatchSize)
	if err != nil {
		return nil, aggerr.Transient(err, "load fill_events")
	}
	changes, err := store.LoadUnaggregatedChanges(ctx, maxBatchSize)
	if err != nil {
		return nil, aggerr.Transient(err, "load change_order_size_events")
	}
	cancels, err := store.LoadUnaggregatedCancels(ctx, maxBatchSize)
	if err != nil {
		return nil, aggerr.Transient(err, "load cancel_order_events")
	}
	return &Batch{
		PlaceLimits:  limits,
		PlaceMarkets: markets,
		PlaceSwaps:   swaps,
		Fills:        fills,
		Changes:      changes,
		Cancels:      cancels,
	}, nil
}
