// Package fakestore is an in-memory HistoryStore used by the aggregator
// package's own tests. It has no transaction semantics of its own — the
// tests that need to exercise rollback behavior do so by asserting on
// returned errors rather than by actually discarding writes.
package fakestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/econia-labs/aggregator/internal/aggregator"
)

type orderKey struct {
	MarketID uint64
	OrderID  uint64
}

// Store is a fake aggregator.HistoryStore backed by plain Go maps and
// slices. Seed its exported fields directly before calling into the
// aggregator package, then inspect them afterward.
type Store struct {
	PlaceLimits  []aggregator.PlaceLimitEvent
	PlaceMarkets []aggregator.PlaceMarketEvent
	PlaceSwaps   []aggregator.PlaceSwapEvent
	Fills        []aggregator.FillEvent
	Changes      []aggregator.ChangeSizeEvent
	Cancels      []aggregator.CancelEvent

	Markets map[uint64]aggregator.MarketRegistration

	histories map[orderKey]aggregator.UserHistory
	limits    map[orderKey]aggregator.UserHistoryLimit
	markets   map[orderKey]aggregator.UserHistoryMarket
	swaps     map[orderKey]aggregator.UserHistorySwap

	Ledger map[aggregator.EventKey]bool
}

// New returns an empty fake store ready to be seeded.
func New() *Store {
	return &Store{
		Markets:   map[uint64]aggregator.MarketRegistration{},
		histories: map[orderKey]aggregator.UserHistory{},
		limits:    map[orderKey]aggregator.UserHistoryLimit{},
		markets:   map[orderKey]aggregator.UserHistoryMarket{},
		swaps:     map[orderKey]aggregator.UserHistorySwap{},
		Ledger:    map[aggregator.EventKey]bool{},
	}
}

func unaggregated[T any](events []T, keyOf func(T) aggregator.EventKey, ledger map[aggregator.EventKey]bool, limit int) []T {
	out := make([]T, 0, len(events))
	for _, e := range events {
		if limit > 0 && len(out) >= limit {
			break
		}
		if !ledger[keyOf(e)] {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) LoadUnaggregatedPlaceLimits(ctx context.Context, limit int) ([]aggregator.PlaceLimitEvent, error) {
	return unaggregated(s.PlaceLimits, func(e aggregator.PlaceLimitEvent) aggregator.EventKey { return e.EventKey }, s.Ledger, limit), nil
}

func (s *Store) LoadUnaggregatedPlaceMarkets(ctx context.Context, limit int) ([]aggregator.PlaceMarketEvent, error) {
	return unaggregated(s.PlaceMarkets, func(e aggregator.PlaceMarketEvent) aggregator.EventKey { return e.EventKey }, s.Ledger, limit), nil
}

func (s *Store) LoadUnaggregatedPlaceSwaps(ctx context.Context, limit int) ([]aggregator.PlaceSwapEvent, error) {
	return unaggregated(s.PlaceSwaps, func(e aggregator.PlaceSwapEvent) aggregator.EventKey { return e.EventKey }, s.Ledger, limit), nil
}

func (s *Store) LoadUnaggregatedFills(ctx context.Context, limit int) ([]aggregator.FillEvent, error) {
	return unaggregated(s.Fills, func(e aggregator.FillEvent) aggregator.EventKey { return e.EventKey }, s.Ledger, limit), nil
}

func (s *Store) LoadUnaggregatedChanges(ctx context.Context, limit int) ([]aggregator.ChangeSizeEvent, error) {
	return unaggregated(s.Changes, func(e aggregator.ChangeSizeEvent) aggregator.EventKey { return e.EventKey }, s.Ledger, limit), nil
}

func (s *Store) LoadUnaggregatedCancels(ctx context.Context, limit int) ([]aggregator.CancelEvent, error) {
	return unaggregated(s.Cancels, func(e aggregator.CancelEvent) aggregator.EventKey { return e.EventKey }, s.Ledger, limit), nil
}

func (s *Store) GetMarketRegistration(ctx context.Context, marketID uint64) (*aggregator.MarketRegistration, error) {
	m, ok := s.Markets[marketID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) InsertUserHistory(ctx context.Context, row aggregator.UserHistory) error {
	k := orderKey{row.MarketID, row.OrderID}
	if _, exists := s.histories[k]; exists {
		return fmt.Errorf("duplicate user_history row for %+v", k)
	}
	s.histories[k] = row
	return nil
}

func (s *Store) InsertUserHistoryLimit(ctx context.Context, row aggregator.UserHistoryLimit) error {
	s.limits[orderKey{row.MarketID, row.OrderID}] = row
	return nil
}

func (s *Store) InsertUserHistoryMarket(ctx context.Context, row aggregator.UserHistoryMarket) error {
	s.markets[orderKey{row.MarketID, row.OrderID}] = row
	return nil
}

func (s *Store) InsertUserHistorySwap(ctx context.Context, row aggregator.UserHistorySwap) error {
	s.swaps[orderKey{row.MarketID, row.OrderID}] = row
	return nil
}

func (s *Store) GetUserHistory(ctx context.Context, marketID, orderID uint64) (*aggregator.UserHistory, error) {
	row, ok := s.histories[orderKey{marketID, orderID}]
	if !ok {
		return nil, nil
	}
	cp := row
	return &cp, nil
}

func (s *Store) GetUserHistoryLimit(ctx context.Context, marketID, orderID uint64) (*aggregator.UserHistoryLimit, error) {
	row, ok := s.limits[orderKey{marketID, orderID}]
	if !ok {
		return nil, nil
	}
	cp := row
	return &cp, nil
}

func (s *Store) UpdateUserHistoryFill(ctx context.Context, marketID, orderID uint64, newRemaining, newTotalFilled decimal.Decimal, newStatus aggregator.OrderStatus, updatedAt time.Time) error {
	k := orderKey{marketID, orderID}
	row, ok := s.histories[k]
	if !ok {
		return fmt.Errorf("no user_history row for %+v", k)
	}
	row.RemainingSize = newRemaining
	row.TotalFilled = newTotalFilled
	row.OrderStatus = newStatus
	t := updatedAt
	row.LastUpdatedAt = &t
	s.histories[k] = row
	return nil
}

func (s *Store) UpdateUserHistoryChange(ctx context.Context, marketID, orderID uint64, newRemaining decimal.Decimal, updatedAt time.Time) error {
	k := orderKey{marketID, orderID}
	row, ok := s.histories[k]
	if !ok {
		return fmt.Errorf("no user_history row for %+v", k)
	}
	row.RemainingSize = newRemaining
	t := updatedAt
	row.LastUpdatedAt = &t
	s.histories[k] = row
	return nil
}

func (s *Store) UpdateUserHistoryLimitStamp(ctx context.Context, marketID, orderID uint64, stamp decimal.Decimal) error {
	k := orderKey{marketID, orderID}
	row, ok := s.limits[k]
	if !ok {
		return fmt.Errorf("no user_history_limit row for %+v", k)
	}
	row.LastIncreaseStamp = stamp
	s.limits[k] = row
	return nil
}

func (s *Store) UpdateUserHistoryCancel(ctx context.Context, marketID, orderID uint64, updatedAt time.Time) (int64, error) {
	k := orderKey{marketID, orderID}
	row, ok := s.histories[k]
	if !ok {
		return 0, nil
	}
	row.OrderStatus = aggregator.OrderStatusCancelled
	t := updatedAt
	row.LastUpdatedAt = &t
	s.histories[k] = row
	return 1, nil
}

func (s *Store) MarkAggregated(ctx context.Context, key aggregator.EventKey) error {
	if s.Ledger[key] {
		return &pgconn.PgError{Code: "23505", Message: fmt.Sprintf("duplicate ledger key %+v", key)}
	}
	s.Ledger[key] = true
	return nil
}

func (s *Store) CountAggregatedEvents(ctx context.Context) (int64, error) {
	return int64(len(s.Ledger)), nil
}

var _ aggregator.HistoryStore = (*Store)(nil)
