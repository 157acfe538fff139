package aggregator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// ApplyFill applies one fill event to both sides of the match.
//
// Fills may be emitted twice — once to the maker's event handle, once to
// the taker's — because the chain attributes the same logical fill to
// both participants. Only the copy where MakerAddress == EmitAddress is
// applied; the other copy is acknowledged in the ledger without
// mutating state, guaranteeing at-most-once application per logical
// fill.
//
// Market and swap orders cannot remain resting past the transaction
// that fills them, so they are closed eagerly the instant any fill
// lands on them. If the same transaction also cancels one of them, the
// cancel applier — which always runs after this merge — rewrites the
// status to cancelled. That ordering is load-bearing: reversing it would
// let a same-transaction cancel be clobbered back to closed.
func ApplyFill(ctx context.Context, store HistoryStore, f FillEvent) error {
	if f.MakerAddress.Equal(f.EmitAddress) {
		if err := applyFillToOrder(ctx, store, f.MarketID, f.MakerOrderID, f.Size, f.Time); err != nil {
			return err
		}
		if err := applyFillToOrder(ctx, store, f.MarketID, f.TakerOrderID, f.Size, f.Time); err != nil {
			return err
		}
	}
	return markAggregated(ctx, store, f.EventKey)
}

func applyFillToOrder(ctx context.Context, store HistoryStore, marketID, orderID uint64, size decimal.Decimal, at time.Time) error {
	hist, err := store.GetUserHistory(ctx, marketID, orderID)
	if err != nil {
		return aggerr.Transient(err, "load user_history for fill")
	}
	if hist == nil {
		return aggerr.Integrity(nil, "fill references unknown order")
	}

	newRemaining := hist.RemainingSize.Sub(size)
	newTotalFilled := hist.TotalFilled.Add(size)

	newStatus := hist.OrderStatus
	if hist.OrderType != OrderTypeLimit {
		newStatus = OrderStatusClosed
	} else if newRemaining.IsZero() {
		newStatus = OrderStatusClosed
	}

	return store.UpdateUserHistoryFill(ctx, marketID, orderID, newRemaining, newTotalFilled, newStatus, at)
}
