package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKey is the compound primary key the chain imposes on every event:
// a strict total order over (txn_version, event_idx).
type EventKey struct {
	TxnVersion uint64 `db:"txn_version"`
	EventIdx   uint64 `db:"event_idx"`
}

// Less reports whether k sorts strictly before other under (txn_version,
// event_idx) ascending order.
func (k EventKey) Less(other EventKey) bool {
	if k.TxnVersion != other.TxnVersion {
		return k.TxnVersion < other.TxnVersion
	}
	return k.EventIdx < other.EventIdx
}

// Side is a limit order's resting direction.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Direction is a market or swap order's taking direction.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// PlaceLimitEvent records a new resting limit order.
type PlaceLimitEvent struct {
	EventKey
	MarketID          uint64
	OrderID           uint64
	User              Address
	CustodianID       uint64
	Side              Side
	SelfMatchBehavior string
	Restriction       string
	Price             decimal.Decimal
	InitialSize       decimal.Decimal
	Integrator        Address
	Time              time.Time
}

// PlaceMarketEvent records a new market order.
type PlaceMarketEvent struct {
	EventKey
	MarketID          uint64
	OrderID           uint64
	User              Address
	CustodianID       uint64
	Direction         Direction
	SelfMatchBehavior string
	Integrator        Address
	Size              decimal.Decimal
	Time              time.Time
}

// PlaceSwapEvent records a new swap order.
type PlaceSwapEvent struct {
	EventKey
	MarketID       uint64
	OrderID        uint64
	Direction      Direction
	LimitPrice     decimal.Decimal
	SigningAccount Address
	MinBase        decimal.Decimal
	MaxBase        decimal.Decimal
	MinQuote       decimal.Decimal
	MaxQuote       decimal.Decimal
	Integrator     Address
	Time           time.Time
}

// FillEvent records a maker/taker match. Fills are emitted once per
// event handle they are attributed to, so the same logical fill may
// appear twice with different EmitAddress values; see ApplyFill's
// dedupe rule.
type FillEvent struct {
	EventKey
	MarketID     uint64
	MakerOrderID uint64
	TakerOrderID uint64
	Size         decimal.Decimal
	MakerAddress Address
	EmitAddress  Address
	Time         time.Time
}

// ChangeSizeEvent records an external resize of a resting order.
type ChangeSizeEvent struct {
	EventKey
	MarketID uint64
	OrderID  uint64
	NewSize  decimal.Decimal
	Time     time.Time
}

// CancelEvent records a cancellation of a resting order.
type CancelEvent struct {
	EventKey
	MarketID uint64
	OrderID  uint64
	Time     time.Time
}

// MarketRegistration is static reference data looked up when a swap
// placement needs to convert a base-asset quantity into lots.
type MarketRegistration struct {
	MarketID uint64
	LotSize  decimal.Decimal
}
