package layout

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Kind classifies how a primitive's bytes are interpreted.
type Kind uint8

const (
	KindUnsigned Kind = iota + 1
	KindSigned
	KindFloat
	KindChar
	KindPad
)

func (k Kind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindPad:
		return "pad"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// PrimitiveType is one fixed-width little-endian wire value.
type PrimitiveType struct {
	Code  string
	Width int
	Kind  Kind
}

func (p PrimitiveType) String() string {
	return p.Code
}

var padByte = PrimitiveType{Code: "x", Width: 1, Kind: KindPad}

var primitives = map[string]PrimitiveType{
	"U1": {Code: "U1", Width: 1, Kind: KindUnsigned},
	"I1": {Code: "I1", Width: 1, Kind: KindSigned},
	"X1": {Code: "X1", Width: 1, Kind: KindUnsigned},
	"U2": {Code: "U2", Width: 2, Kind: KindUnsigned},
	"I2": {Code: "I2", Width: 2, Kind: KindSigned},
	"X2": {Code: "X2", Width: 2, Kind: KindUnsigned},
	"U4": {Code: "U4", Width: 4, Kind: KindUnsigned},
	"I4": {Code: "I4", Width: 4, Kind: KindSigned},
	"X4": {Code: "X4", Width: 4, Kind: KindUnsigned},
	"R4": {Code: "R4", Width: 4, Kind: KindFloat},
	"R8": {Code: "R8", Width: 8, Kind: KindFloat},
	"C":  {Code: "C", Width: 1, Kind: KindChar},
}

// Lookup resolves a type code. Codes are case-sensitive; U8 and X8 are not supported.
func Lookup(code string) (PrimitiveType, error) {
	p, ok := primitives[code]
	if !ok {
		return PrimitiveType{}, fmt.Errorf("%w: %q", ErrUnsupportedType, code)
	}
	return p, nil
}

// Codes lists every supported type code in sorted order.
func Codes() []string {
	out := make([]string, 0, len(primitives))
	for code := range primitives {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Decode interprets exactly p.Width bytes.
// Values are uint8/16/32, int8/16/32, float32/64 or a one-character string;
// a NUL char decodes to "", its zero value.
func (p PrimitiveType) Decode(b []byte) any {
	switch p.Kind {
	case KindUnsigned:
		switch p.Width {
		case 1:
			return b[0]
		case 2:
			return binary.LittleEndian.Uint16(b)
		default:
			return binary.LittleEndian.Uint32(b)
		}
	case KindSigned:
		switch p.Width {
		case 1:
			return int8(b[0])
		case 2:
			return int16(binary.LittleEndian.Uint16(b))
		default:
			return int32(binary.LittleEndian.Uint32(b))
		}
	case KindFloat:
		if p.Width == 4 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case KindChar:
		if b[0] == 0 {
			return ""
		}
		return string(b[:1])
	default:
		return nil
	}
}

// Encode packs v into p.Width bytes, rejecting values outside the type's range.
func (p PrimitiveType) Encode(v any) ([]byte, error) {
	out := make([]byte, p.Width)
	switch p.Kind {
	case KindUnsigned:
		u, ok := toUint64(v)
		if !ok {
			return nil, mismatch("%s expects an unsigned integer, got %T(%v)", p.Code, v, v)
		}
		if p.Width < 8 && u > uint64(1)<<(8*p.Width)-1 {
			return nil, mismatch("%s value %d out of range", p.Code, u)
		}
		putUint(out, u)
	case KindSigned:
		i, ok := toInt64(v)
		if !ok {
			return nil, mismatch("%s expects an integer, got %T(%v)", p.Code, v, v)
		}
		limit := int64(1) << (8*p.Width - 1)
		if i < -limit || i >= limit {
			return nil, mismatch("%s value %d out of range", p.Code, i)
		}
		putUint(out, uint64(i))
	case KindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, mismatch("%s expects a number, got %T(%v)", p.Code, v, v)
		}
		if p.Width == 4 {
			binary.LittleEndian.PutUint32(out, math.Float32bits(float32(f)))
		} else {
			binary.LittleEndian.PutUint64(out, math.Float64bits(f))
		}
	case KindChar:
		c, ok := toChar(v)
		if !ok {
			return nil, mismatch("%s expects a single character, got %T(%v)", p.Code, v, v)
		}
		out[0] = c
	}
	return out, nil
}

// Zero is the default value for the type.
func (p PrimitiveType) Zero() any {
	switch p.Kind {
	case KindChar:
		return ""
	case KindPad:
		return nil
	default:
		return p.Decode(make([]byte, p.Width))
	}
}

func putUint(out []byte, u uint64) {
	for i := range out {
		out[i] = byte(u >> (8 * i))
	}
}
