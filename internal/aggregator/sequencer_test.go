package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFillsAndChanges_Interleaves(t *testing.T) {
	fills := []FillEvent{
		{EventKey: EventKey{TxnVersion: 1, EventIdx: 0}},
		{EventKey: EventKey{TxnVersion: 1, EventIdx: 3}},
		{EventKey: EventKey{TxnVersion: 2, EventIdx: 1}},
	}
	changes := []ChangeSizeEvent{
		{EventKey: EventKey{TxnVersion: 1, EventIdx: 1}},
		{EventKey: EventKey{TxnVersion: 1, EventIdx: 2}},
	}

	merged := MergeFillsAndChanges(fills, changes)
	require.Len(t, merged, 5)

	want := []EventKey{
		{TxnVersion: 1, EventIdx: 0},
		{TxnVersion: 1, EventIdx: 1},
		{TxnVersion: 1, EventIdx: 2},
		{TxnVersion: 1, EventIdx: 3},
		{TxnVersion: 2, EventIdx: 1},
	}
	for i, w := range want {
		var got EventKey
		switch {
		case merged[i].Fill != nil:
			got = merged[i].Fill.EventKey
		case merged[i].Change != nil:
			got = merged[i].Change.EventKey
		default:
			t.Fatalf("merged[%d] has neither fill nor change", i)
		}
		assert.Equal(t, w, got, "position %d", i)
	}

	assert.NotNil(t, merged[0].Fill)
	assert.NotNil(t, merged[1].Change)
	assert.NotNil(t, merged[2].Change)
	assert.NotNil(t, merged[3].Fill)
	assert.NotNil(t, merged[4].Fill)
}

func TestMergeFillsAndChanges_EmptySides(t *testing.T) {
	changes := []ChangeSizeEvent{{EventKey: EventKey{TxnVersion: 1, EventIdx: 0}}}
	merged := MergeFillsAndChanges(nil, changes)
	require.Len(t, merged, 1)
	assert.NotNil(t, merged[0].Change)

	merged = MergeFillsAndChanges(nil, nil)
	assert.Empty(t, merged)
}
