package aggregator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// ApplyPlacements processes every new limit, market, and swap placement
// in the batch, in arrival order. Each placement inserts its
// type-specific extension row and a base UserHistory row, then ledgers
// the event. Placements run strictly before the fill/change merge and
// strictly before cancels (see tick.go).
func ApplyPlacements(ctx context.Context, store HistoryStore, batch *Batch) error {
	for _, p := range batch.PlaceLimits {
		if err := applyPlaceLimit(ctx, store, p); err != nil {
			return err
		}
	}
	for _, p := range batch.PlaceMarkets {
		if err := applyPlaceMarket(ctx, store, p); err != nil {
			return err
		}
	}
	for _, p := range batch.PlaceSwaps {
		if err := applyPlaceSwap(ctx, store, p); err != nil {
			return err
		}
	}
	return nil
}

func applyPlaceLimit(ctx context.Context, store HistoryStore, p PlaceLimitEvent) error {
	stamp := StampOf(p.EventKey)
	if err := store.InsertUserHistoryLimit(ctx, UserHistoryLimit{
		MarketID:          p.MarketID,
		OrderID:           p.OrderID,
		User:              p.User,
		CustodianID:       p.CustodianID,
		Side:              p.Side,
		SelfMatchBehavior: p.SelfMatchBehavior,
		Restriction:       p.Restriction,
		Price:             p.Price,
		LastIncreaseStamp: stamp,
	}); err != nil {
		return aggerr.Integrity(err, "insert user_history_limit")
	}
	if err := store.InsertUserHistory(ctx, UserHistory{
		MarketID:      p.MarketID,
		OrderID:       p.OrderID,
		CreatedAt:     p.Time,
		LastUpdatedAt: nil,
		Integrator:    p.Integrator,
		TotalFilled:   decimal.Zero,
		RemainingSize: p.InitialSize,
		OrderStatus:   OrderStatusOpen,
		OrderType:     OrderTypeLimit,
	}); err != nil {
		return aggerr.Integrity(err, "insert user_history (limit)")
	}
	return markAggregated(ctx, store, p.EventKey)
}

func applyPlaceMarket(ctx context.Context, store HistoryStore, p PlaceMarketEvent) error {
	if err := store.InsertUserHistoryMarket(ctx, UserHistoryMarket{
		MarketID:          p.MarketID,
		OrderID:           p.OrderID,
		User:              p.User,
		CustodianID:       p.CustodianID,
		Direction:         p.Direction,
		SelfMatchBehavior: p.SelfMatchBehavior,
	}); err != nil {
		return aggerr.Integrity(err, "insert user_history_market")
	}
	if err := store.InsertUserHistory(ctx, UserHistory{
		MarketID:      p.MarketID,
		OrderID:       p.OrderID,
		CreatedAt:     p.Time,
		LastUpdatedAt: nil,
		Integrator:    p.Integrator,
		TotalFilled:   decimal.Zero,
		RemainingSize: p.Size,
		OrderStatus:   OrderStatusOpen,
		OrderType:     OrderTypeMarket,
	}); err != nil {
		return aggerr.Integrity(err, "insert user_history (market)")
	}
	return markAggregated(ctx, store, p.EventKey)
}

func applyPlaceSwap(ctx context.Context, store HistoryStore, p PlaceSwapEvent) error {
	if err := store.InsertUserHistorySwap(ctx, UserHistorySwap{
		MarketID:       p.MarketID,
		OrderID:        p.OrderID,
		Direction:      p.Direction,
		LimitPrice:     p.LimitPrice,
		SigningAccount: p.SigningAccount,
		MinBase:        p.MinBase,
		MaxBase:        p.MaxBase,
		MinQuote:       p.MinQuote,
		MaxQuote:       p.MaxQuote,
	}); err != nil {
		return aggerr.Integrity(err, "insert user_history_swap")
	}

	market, err := store.GetMarketRegistration(ctx, p.MarketID)
	if err != nil {
		return aggerr.Transient(err, "lookup market_registration_events")
	}
	if market == nil {
		return aggerr.Integrity(nil, "missing market_registration_events for swap placement")
	}
	if market.LotSize.IsZero() {
		return aggerr.Integrity(nil, "market_registration_events.lot_size is zero")
	}
	remaining := p.MaxBase.Div(market.LotSize)

	if err := store.InsertUserHistory(ctx, UserHistory{
		MarketID:      p.MarketID,
		OrderID:       p.OrderID,
		CreatedAt:     p.Time,
		LastUpdatedAt: nil,
		Integrator:    p.Integrator,
		TotalFilled:   decimal.Zero,
		RemainingSize: remaining,
		OrderStatus:   OrderStatusOpen,
		OrderType:     OrderTypeSwap,
	}); err != nil {
		return aggerr.Integrity(err, "insert user_history (swap)")
	}
	return markAggregated(ctx, store, p.EventKey)
}
