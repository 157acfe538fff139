package aggregator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryStore is the narrow persistence seam the aggregation engine
// depends on. One instance is bound to exactly one tick's transaction
// (see tick.go): all reads and writes it performs share that
// transaction's snapshot, and nothing it does is visible outside the
// transaction until the caller commits it.
//
// Business rules (when an order closes, when a limit order loses
// priority, whether a fill is a dedupe-only echo) live in the aggregator
// package itself, not behind this interface — HistoryStore only ever
// gets/sets already-decided values, the same division of responsibility
// a typical repository layer keeps between services and repositories.
type HistoryStore interface {
	// Loader queries. Each returns rows not yet present in the ledger,
	// ordered by (txn_version, event_idx) ascending. limit caps the
	// number of rows returned; zero means unbounded.
	LoadUnaggregatedPlaceLimits(ctx context.Context, limit int) ([]PlaceLimitEvent, error)
	LoadUnaggregatedPlaceMarkets(ctx context.Context, limit int) ([]PlaceMarketEvent, error)
	LoadUnaggregatedPlaceSwaps(ctx context.Context, limit int) ([]PlaceSwapEvent, error)
	LoadUnaggregatedFills(ctx context.Context, limit int) ([]FillEvent, error)
	LoadUnaggregatedChanges(ctx context.Context, limit int) ([]ChangeSizeEvent, error)
	LoadUnaggregatedCancels(ctx context.Context, limit int) ([]CancelEvent, error)

	// GetMarketRegistration looks up static market reference data.
	// Returns (nil, nil) if the market is not registered.
	GetMarketRegistration(ctx context.Context, marketID uint64) (*MarketRegistration, error)

	// Placement recorder writes.
	InsertUserHistory(ctx context.Context, row UserHistory) error
	InsertUserHistoryLimit(ctx context.Context, row UserHistoryLimit) error
	InsertUserHistoryMarket(ctx context.Context, row UserHistoryMarket) error
	InsertUserHistorySwap(ctx context.Context, row UserHistorySwap) error

	// GetUserHistory returns (nil, nil) if no row matches.
	GetUserHistory(ctx context.Context, marketID, orderID uint64) (*UserHistory, error)
	GetUserHistoryLimit(ctx context.Context, marketID, orderID uint64) (*UserHistoryLimit, error)

	// UpdateUserHistoryFill applies a decided post-fill state to the base
	// row. The caller has already computed newRemaining/newTotalFilled/
	// newStatus.
	UpdateUserHistoryFill(ctx context.Context, marketID, orderID uint64, newRemaining, newTotalFilled decimal.Decimal, newStatus OrderStatus, updatedAt time.Time) error

	// UpdateUserHistoryChange sets remaining_size/last_updated_at for a
	// change-size event.
	UpdateUserHistoryChange(ctx context.Context, marketID, orderID uint64, newRemaining decimal.Decimal, updatedAt time.Time) error

	// UpdateUserHistoryLimitStamp bumps a limit order's priority stamp.
	UpdateUserHistoryLimitStamp(ctx context.Context, marketID, orderID uint64, stamp decimal.Decimal) error

	// UpdateUserHistoryCancel marks an order cancelled. Returns the
	// number of rows affected (0 if no matching order exists yet).
	UpdateUserHistoryCancel(ctx context.Context, marketID, orderID uint64, updatedAt time.Time) (int64, error)

	// MarkAggregated appends key to the idempotence ledger. A duplicate
	// key is reported as a DataIntegrity error (aggerr), never silently
	// ignored.
	MarkAggregated(ctx context.Context, key EventKey) error

	// CountAggregatedEvents reports the ledger's total row count, sampled
	// once per successful tick for the ledger-size gauge.
	CountAggregatedEvents(ctx context.Context) (int64, error)
}
