package layout

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/danmuck/ubxctl/internal/testutil/testlog"
)

func TestLookupKnownCodes(t *testing.T) {
	testlog.Start(t)
	widths := map[string]int{
		"U1": 1, "I1": 1, "X1": 1,
		"U2": 2, "I2": 2, "X2": 2,
		"U4": 4, "I4": 4, "X4": 4,
		"R4": 4, "R8": 8, "C": 1,
	}
	for code, want := range widths {
		p, err := Lookup(code)
		if err != nil {
			t.Fatalf("lookup %s: %v", code, err)
		}
		if p.Width != want {
			t.Fatalf("%s width: expected %d, got %d", code, want, p.Width)
		}
	}
	if got := len(Codes()); got != len(widths) {
		t.Fatalf("expected %d codes, got %d", len(widths), got)
	}
}

func TestLookupRejectsUnsupported(t *testing.T) {
	testlog.Start(t)
	for _, code := range []string{"U8", "X8", "u1", "", "R2"} {
		if _, err := Lookup(code); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("lookup %q: expected ErrUnsupportedType, got %v", code, err)
		}
	}
}

func TestPrimitiveDecodeLittleEndian(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		code string
		in   []byte
		want any
	}{
		{"U1", []byte{0x0F}, uint8(15)},
		{"I1", []byte{0xFF}, int8(-1)},
		{"X1", []byte{0x0F}, uint8(15)},
		{"U2", []byte{0x0F, 0x00}, uint16(15)},
		{"I2", []byte{0xFE, 0xFF}, int16(-2)},
		{"X2", []byte{0x34, 0x12}, uint16(0x1234)},
		{"U4", []byte{0x0F, 0, 0, 0}, uint32(15)},
		{"I4", []byte{0xFF, 0xFF, 0xFF, 0xFF}, int32(-1)},
		{"X4", []byte{0x78, 0x56, 0x34, 0x12}, uint32(0x12345678)},
		{"R4", []byte{0x00, 0x00, 0x70, 0x41}, float32(15)},
		{"R8", []byte{0, 0, 0, 0, 0, 0, 0x2E, 0x40}, float64(15)},
		{"C", []byte{'A'}, "A"},
		{"C", []byte{0}, ""},
	}
	for _, tc := range cases {
		p, _ := Lookup(tc.code)
		if got := p.Decode(tc.in); got != tc.want {
			t.Fatalf("%s decode: expected %#v, got %#v", tc.code, tc.want, got)
		}
		enc, err := p.Encode(tc.want)
		if err != nil {
			t.Fatalf("%s encode: %v", tc.code, err)
		}
		if !bytes.Equal(enc, tc.in) {
			t.Fatalf("%s encode: expected % x, got % x", tc.code, tc.in, enc)
		}
	}
}

func TestPrimitiveEncodeCoercesNumbers(t *testing.T) {
	testlog.Start(t)
	u2, _ := Lookup("U2")
	for _, v := range []any{300, int64(300), uint32(300), float64(300)} {
		b, err := u2.Encode(v)
		if err != nil {
			t.Fatalf("encode %T: %v", v, err)
		}
		if !bytes.Equal(b, []byte{0x2C, 0x01}) {
			t.Fatalf("encode %T: got % x", v, b)
		}
	}
	r4, _ := Lookup("R4")
	if _, err := r4.Encode(3); err != nil {
		t.Fatalf("R4 from int: %v", err)
	}
}

func TestPrimitiveEncodeRange(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		code string
		v    any
		ok   bool
	}{
		{"U1", 255, true},
		{"U1", 256, false},
		{"U1", -1, false},
		{"I1", -128, true},
		{"I1", 128, false},
		{"U2", 65535, true},
		{"U2", 65536, false},
		{"I2", -32769, false},
		{"U4", uint64(math.MaxUint32), true},
		{"U4", uint64(math.MaxUint32) + 1, false},
		{"I4", int64(math.MinInt32), true},
		{"I4", int64(math.MaxInt32) + 1, false},
		{"U1", 1.5, false},
		{"U1", "1", false},
		{"C", "AB", false},
		{"C", "", true},
		{"R8", "x", false},
	}
	for _, tc := range cases {
		p, _ := Lookup(tc.code)
		_, err := p.Encode(tc.v)
		if tc.ok && err != nil {
			t.Fatalf("%s(%v): unexpected error %v", tc.code, tc.v, err)
		}
		if !tc.ok && !errors.Is(err, ErrValueMismatch) {
			t.Fatalf("%s(%v): expected ErrValueMismatch, got %v", tc.code, tc.v, err)
		}
	}
}

func TestCursorBounds(t *testing.T) {
	testlog.Start(t)
	c := NewCursor([]byte{1, 2, 3})
	if b, err := c.Next(2); err != nil || !bytes.Equal(b, []byte{1, 2}) {
		t.Fatalf("next 2: %v % x", err, b)
	}
	if c.Offset() != 2 || c.Remaining() != 1 {
		t.Fatalf("unexpected cursor state offset=%d remaining=%d", c.Offset(), c.Remaining())
	}
	if _, err := c.Next(2); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
