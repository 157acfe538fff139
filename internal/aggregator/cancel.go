package aggregator

import (
	"context"

	"go.uber.org/zap"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// CancelOrphanCounter is the narrow interface ApplyCancel uses to report
// a cancel that matched no row. Implemented by the metrics package so
// aggerr-free packages don't need a Prometheus import.
type CancelOrphanCounter interface {
	IncCancelOrphan()
}

// ApplyCancel marks the affected order cancelled. Cancels run strictly
// after the fill/change merge so that a market or swap order fill-closed
// earlier in the same transaction can still be rewritten to cancelled
// (see ApplyFill).
//
// If no matching UserHistory row exists yet — the placement event has
// not been ingested, or it belongs to an order indexed before this
// aggregator started — the update affects zero rows. The source this
// engine is modeled on accepts that silently, and whether it signals an
// upstream ordering bug or a benign pre-indexer-start cancel isn't
// determined by the behavior itself, so this implementation does not
// fail the tick over it; it logs a warning and increments counter so the
// ambiguity stays observable.
func ApplyCancel(ctx context.Context, store HistoryStore, logger *zap.Logger, counter CancelOrphanCounter, c CancelEvent) error {
	rows, err := store.UpdateUserHistoryCancel(ctx, c.MarketID, c.OrderID, c.Time)
	if err != nil {
		return aggerr.Transient(err, "update user_history for cancel")
	}
	if rows == 0 {
		logger.Warn("cancel matched no user_history row",
			zap.Uint64("market_id", c.MarketID),
			zap.Uint64("order_id", c.OrderID),
			zap.Uint64("txn_version", c.TxnVersion),
			zap.Uint64("event_idx", c.EventIdx),
		)
		if counter != nil {
			counter.IncCancelOrphan()
		}
	}
	return markAggregated(ctx, store, c.EventKey)
}
