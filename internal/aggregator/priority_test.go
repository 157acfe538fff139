package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStamp_OrdersByTxnVersionFirst(t *testing.T) {
	low := Stamp(1, 999999)
	high := Stamp(2, 0)
	assert.True(t, low.LessThan(high))
}

func TestStamp_OrdersByEventIdxWithinSameTxn(t *testing.T) {
	a := Stamp(5, 3)
	b := Stamp(5, 4)
	assert.True(t, a.LessThan(b))
}

func TestStamp_Deterministic(t *testing.T) {
	assert.True(t, Stamp(7, 42).Equal(Stamp(7, 42)))
}

func TestEventKey_Less(t *testing.T) {
	a := EventKey{TxnVersion: 1, EventIdx: 5}
	b := EventKey{TxnVersion: 1, EventIdx: 6}
	c := EventKey{TxnVersion: 2, EventIdx: 0}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}
