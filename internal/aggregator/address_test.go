package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddress_String(t *testing.T) {
	addr := Address{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, "0xdeadbeef", addr.String())
	assert.Equal(t, "", Address(nil).String())
}

func TestAddress_MarshalJSON(t *testing.T) {
	addr := Address{0x01, 0x02}
	out, err := addr.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"0x0102"`, string(out))
}

func TestAddress_Equal(t *testing.T) {
	a := Address{0x01, 0x02}
	b := Address{0x01, 0x02}
	c := Address{0x01, 0x03}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Address{0x01}))
}
