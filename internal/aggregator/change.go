package aggregator

import (
	"context"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// ApplyChange applies one size-change event. A size increase on a limit
// order loses the order its place in price-time priority, so its
// priority stamp is bumped to the event's own (txn_version, event_idx);
// an equal or smaller new size leaves the stamp untouched, and
// non-limit orders have no priority stamp to bump at all.
//
// A size decrease is a pure external resize: it updates remaining_size
// without crediting total_filled. total_filled + remaining_size is
// therefore not invariant across a limit order's lifetime once a
// decrease has been applied — this is intentional per the source
// behavior, not a bug to paper over.
func ApplyChange(ctx context.Context, store HistoryStore, c ChangeSizeEvent) error {
	hist, err := store.GetUserHistory(ctx, c.MarketID, c.OrderID)
	if err != nil {
		return aggerr.Transient(err, "load user_history for change")
	}
	if hist == nil {
		return aggerr.Integrity(nil, "change references unknown order")
	}

	if hist.OrderType == OrderTypeLimit && c.NewSize.GreaterThan(hist.RemainingSize) {
		if err := store.UpdateUserHistoryLimitStamp(ctx, c.MarketID, c.OrderID, StampOf(c.EventKey)); err != nil {
			return aggerr.Transient(err, "bump user_history_limit.last_increase_stamp")
		}
	}

	if err := store.UpdateUserHistoryChange(ctx, c.MarketID, c.OrderID, c.NewSize, c.Time); err != nil {
		return aggerr.Transient(err, "update user_history.remaining_size")
	}

	return markAggregated(ctx, store, c.EventKey)
}
