package frame

import (
	"testing"

	"github.com/danmuck/ubxctl/internal/testutil/testlog"
)

func TestChecksumKnownVector(t *testing.T) {
	testlog.Start(t)
	got := Checksum([]byte{0x01, 0x01, 0x06, 0x00, 0x0A, 0x21, 0x64, 0x00, 0xC8, 0x00})
	if got != [2]byte{0x5F, 0x44} {
		t.Fatalf("expected 5f 44, got % x", got)
	}
	if Checksum(nil) != [2]byte{0, 0} {
		t.Fatalf("empty input must checksum to zero")
	}
}

func TestChecksumDetectsSingleBitFlip(t *testing.T) {
	testlog.Start(t)
	for v := 0; v <= 0xFF; v++ {
		b := []byte{0x01, 0x02, 0x01, 0x00, byte(v)}
		ck := Checksum(b)
		if !Verify(b, ck) {
			t.Fatalf("verify failed for own checksum of % x", b)
		}
		for i := range b {
			for bit := 0; bit < 8; bit++ {
				flipped := append([]byte(nil), b...)
				flipped[i] ^= 1 << bit
				if Verify(flipped, ck) {
					t.Fatalf("flip byte %d bit %d of % x went undetected", i, bit, b)
				}
			}
		}
	}
}
