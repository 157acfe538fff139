package aggregator

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// shiftTxnVersion is the number of bits event_idx is guaranteed to fit
// in. txn_version may grow arbitrarily past it, which is why the stamp
// is carried as an arbitrary-precision Dec rather than a fixed-width
// integer: if the chain ever needs more than 64 bits of event_idx, this
// constant (and every place-and-resize path that calls Stamp) must grow
// together.
const shiftTxnVersion = 64

// Stamp encodes (txnVersion, eventIdx) as the single orderable scalar
// priority_stamp = (txn_version << 64) | event_idx, used wherever
// price-time priority must be expressed as one comparable value.
func Stamp(txnVersion, eventIdx uint64) decimal.Decimal {
	shifted := new(big.Int).Lsh(new(big.Int).SetUint64(txnVersion), shiftTxnVersion)
	combined := new(big.Int).Or(shifted, new(big.Int).SetUint64(eventIdx))
	return decimal.NewFromBigInt(combined, 0)
}

// StampOf is a convenience wrapper over an event's embedded EventKey.
func StampOf(k EventKey) decimal.Decimal {
	return Stamp(k.TxnVersion, k.EventIdx)
}
