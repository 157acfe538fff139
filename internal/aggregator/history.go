package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an aggregated order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderType identifies which extension table owns an order's
// type-specific attributes.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
	OrderTypeSwap   OrderType = "swap"
)

// UserHistory is the base per-order row every order type shares.
type UserHistory struct {
	MarketID      uint64
	OrderID       uint64
	CreatedAt     time.Time
	LastUpdatedAt *time.Time
	Integrator    Address
	TotalFilled   decimal.Decimal
	RemainingSize decimal.Decimal
	OrderStatus   OrderStatus
	OrderType     OrderType
}

// UserHistoryLimit extends UserHistory for limit orders.
type UserHistoryLimit struct {
	MarketID          uint64
	OrderID           uint64
	User              Address
	CustodianID       uint64
	Side              Side
	SelfMatchBehavior string
	Restriction       string
	Price             decimal.Decimal
	LastIncreaseStamp decimal.Decimal
}

// UserHistoryMarket extends UserHistory for market orders.
type UserHistoryMarket struct {
	MarketID          uint64
	OrderID           uint64
	User              Address
	CustodianID       uint64
	Direction         Direction
	SelfMatchBehavior string
}

// UserHistorySwap extends UserHistory for swap orders.
type UserHistorySwap struct {
	MarketID       uint64
	OrderID        uint64
	Direction      Direction
	LimitPrice     decimal.Decimal
	SigningAccount Address
	MinBase        decimal.Decimal
	MaxBase        decimal.Decimal
	MinQuote       decimal.Decimal
	MaxQuote       decimal.Decimal
}
