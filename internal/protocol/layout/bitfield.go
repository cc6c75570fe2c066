package layout

import "fmt"

// Flag is a named bit range [Start, Stop) inside a bit-field carrier.
type Flag struct {
	name  string
	start int
	stop  int
}

// NewFlag requires 0 <= start <= stop <= 32. An empty range always extracts 0.
func NewFlag(name string, start, stop int) (Flag, error) {
	name, err := fieldName(name)
	if err != nil {
		return Flag{}, err
	}
	if start < 0 || stop < start || stop > 32 {
		return Flag{}, fmt.Errorf("%w: flag %s [%d, %d)", ErrInvalidRange, name, start, stop)
	}
	return Flag{name: name, start: start, stop: stop}, nil
}

func (f Flag) Name() string { return f.name }
func (f Flag) Start() int   { return f.start }
func (f Flag) Stop() int    { return f.stop }

func (f Flag) mask() uint64 {
	return uint64(1)<<(f.stop-f.start) - 1
}

// Extract returns (v >> start) & (2^(stop-start) - 1).
func (f Flag) Extract(v uint32) uint32 {
	return uint32((uint64(v) >> f.start) & f.mask())
}

func (f Flag) place(v any) (uint64, error) {
	u, ok := toUint64(v)
	if !ok {
		return 0, mismatch("flag expects an unsigned integer, got %T(%v)", v, v)
	}
	if u > f.mask() {
		return 0, mismatch("value %d does not fit in %d bits", u, f.stop-f.start)
	}
	return u << f.start, nil
}

// BitField is an unsigned carrier split into named flags. It decodes to a
// Record of uint32 flag values.
type BitField struct {
	name  string
	typ   PrimitiveType
	flags []Flag
}

// NewBitField accepts X1, X2, X4 or U1, U2, U4 carriers. Every flag must fit
// inside the carrier's bit width.
func NewBitField(name, code string, flags ...Flag) (*BitField, error) {
	name, err := fieldName(name)
	if err != nil {
		return nil, err
	}
	typ, err := Lookup(code)
	if err != nil {
		return nil, wrapField(err, name)
	}
	if typ.Kind != KindUnsigned {
		return nil, wrapField(fmt.Errorf("%w: %s cannot carry flags", ErrUnsupportedType, typ.Code), name)
	}
	seen := nameSet{}
	for _, f := range flags {
		if f.stop > typ.Width*8 {
			return nil, wrapField(fmt.Errorf("%w: flag %s [%d, %d) exceeds %d bits of %s",
				ErrInvalidRange, f.name, f.start, f.stop, typ.Width*8, typ.Code), name)
		}
		if err := seen.add(f.name); err != nil {
			return nil, wrapField(err, name)
		}
	}
	return &BitField{name: name, typ: typ, flags: append([]Flag(nil), flags...)}, nil
}

func (b *BitField) FieldName() string       { return b.name }
func (b *BitField) Type() PrimitiveType     { return b.typ }
func (b *BitField) Width() int              { return b.typ.Width }
func (b *BitField) Format() []PrimitiveType { return []PrimitiveType{b.typ} }

func (b *BitField) Flags() []Flag {
	return append([]Flag(nil), b.flags...)
}

// Names lists flag names in declaration order.
func (b *BitField) Names() []string {
	out := make([]string, len(b.flags))
	for i, f := range b.flags {
		out[i] = f.name
	}
	return out
}

func (b *BitField) Decode(c *Cursor) (any, error) {
	raw, err := c.Next(b.typ.Width)
	if err != nil {
		return nil, err
	}
	u, _ := toUint64(b.typ.Decode(raw))
	return b.Split(uint32(u)), nil
}

// Split extracts every flag from a raw carrier value.
func (b *BitField) Split(v uint32) Record {
	out := make(Record, len(b.flags))
	for _, f := range b.flags {
		out[f.name] = f.Extract(v)
	}
	return out
}

// Encode ORs each flag value into place. Overlapping ranges are not checked.
func (b *BitField) Encode(v any) ([]byte, error) {
	rec, ok := asRecord(v)
	if !ok {
		return nil, mismatch("bit-field expects a record, got %T", v)
	}
	var raw uint64
	for _, f := range b.flags {
		fv, ok := rec[f.name]
		if !ok {
			return nil, &MissingFieldError{Field: f.name}
		}
		placed, err := f.place(fv)
		if err != nil {
			return nil, wrapField(err, f.name)
		}
		raw |= placed
	}
	return b.typ.Encode(raw)
}

func (b *BitField) Zero() any {
	return b.Split(0)
}
