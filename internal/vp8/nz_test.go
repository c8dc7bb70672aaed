package vp8

import "testing"

// TestNzPackRoundTrip checks that unpacking a context nibble and
// repacking the low bits is the identity, which the non-zero
// bookkeeping in parseResiduals relies on.
func TestNzPackRoundTrip(t *testing.T) {
	for n := 0; n < 16; n++ {
		b := kUnpackTab[n]
		if got := pack4(&b); got != uint32(n) {
			t.Errorf("pack4(unpack(%#x)) = %#x", n, got)
		}
	}
}
