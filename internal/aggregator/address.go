package aggregator

import (
	"encoding/hex"
	"strconv"
)

// Address is an opaque fixed-width account identifier. The chain's
// address width is not fixed by this package; callers scan whatever
// byte width the store reports.
type Address []byte

// String renders the address as a 0x-prefixed hex string.
func (a Address) String() string {
	if len(a) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(a)
}

// MarshalJSON renders the address the same way String does, so any
// derived-state JSON encoding (logs, a future read API) sees the
// familiar 0x-prefixed hex form rather than a base64 byte dump.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// Equal reports whether two addresses hold the same bytes.
func (a Address) Equal(other Address) bool {
	if len(a) != len(other) {
		return false
	}
	for i := range a {
		if a[i] != other[i] {
			return false
		}
	}
	return true
}
