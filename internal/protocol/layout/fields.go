package layout

import (
	"fmt"
	"strings"
)

// Field is one entry in a message or repeated-block layout.
type Field interface {
	// FieldName is the record key, or "" for padding.
	FieldName() string
	// Width is the wire width in bytes (one occurrence for repeated blocks).
	Width() int
	// Format lists the primitive tokens in wire order.
	Format() []PrimitiveType
	Decode(c *Cursor) (any, error)
	Encode(v any) ([]byte, error)
	// Zero is the default value used by prepared messages.
	Zero() any
}

// Scalar is a named primitive, optionally repeated as a fixed-size array.
type Scalar struct {
	name   string
	typ    PrimitiveType
	repeat int
}

// NewScalar builds a single-valued field.
func NewScalar(name, code string) (*Scalar, error) {
	return NewArray(name, code, 1)
}

// NewArray builds a field of n consecutive values of one type; it decodes to []any when n > 1.
func NewArray(name, code string, n int) (*Scalar, error) {
	name, err := fieldName(name)
	if err != nil {
		return nil, err
	}
	typ, err := Lookup(code)
	if err != nil {
		return nil, wrapField(err, name)
	}
	if n < 1 {
		return nil, wrapField(fmt.Errorf("%w: %d", ErrInvalidRepeat, n), name)
	}
	return &Scalar{name: name, typ: typ, repeat: n}, nil
}

func (s *Scalar) FieldName() string   { return s.name }
func (s *Scalar) Type() PrimitiveType { return s.typ }
func (s *Scalar) Repeat() int         { return s.repeat }
func (s *Scalar) Width() int          { return s.typ.Width * s.repeat }

func (s *Scalar) Format() []PrimitiveType {
	out := make([]PrimitiveType, s.repeat)
	for i := range out {
		out[i] = s.typ
	}
	return out
}

func (s *Scalar) Decode(c *Cursor) (any, error) {
	if s.repeat == 1 {
		b, err := c.Next(s.typ.Width)
		if err != nil {
			return nil, err
		}
		return s.typ.Decode(b), nil
	}
	out := make([]any, s.repeat)
	for i := range out {
		b, err := c.Next(s.typ.Width)
		if err != nil {
			return nil, err
		}
		out[i] = s.typ.Decode(b)
	}
	return out, nil
}

func (s *Scalar) Encode(v any) ([]byte, error) {
	if s.repeat == 1 {
		if _, isSeq := v.([]any); isSeq {
			return nil, mismatch("%s expects a single value, got a sequence", s.typ.Code)
		}
		return s.typ.Encode(v)
	}
	values, ok := s.values(v)
	if !ok {
		return nil, mismatch("expected %d values of %s, got %T", s.repeat, s.typ.Code, v)
	}
	if len(values) != s.repeat {
		return nil, mismatch("expected %d values of %s, got %d", s.repeat, s.typ.Code, len(values))
	}
	out := make([]byte, 0, s.Width())
	for i, item := range values {
		b, err := s.typ.Encode(item)
		if err != nil {
			return nil, wrapField(err, fmt.Sprintf("[%d]", i))
		}
		out = append(out, b...)
	}
	return out, nil
}

func (s *Scalar) values(v any) ([]any, bool) {
	// Character arrays also accept a string, zero-filled to length.
	if str, ok := v.(string); ok && s.typ.Kind == KindChar && len(str) <= s.repeat {
		out := make([]any, s.repeat)
		for i := range out {
			out[i] = ""
			if i < len(str) {
				out[i] = str[i : i+1]
			}
		}
		return out, true
	}
	return sequence(v)
}

func (s *Scalar) Zero() any {
	if s.repeat == 1 {
		return s.typ.Zero()
	}
	out := make([]any, s.repeat)
	for i := range out {
		out[i] = s.typ.Zero()
	}
	return out
}

// Pad is a run of reserved bytes. It decodes to nothing and encodes zeros.
type Pad struct {
	n int
}

func NewPad(n int) (*Pad, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: padding of %d bytes", ErrInvalidRepeat, n)
	}
	return &Pad{n: n}, nil
}

func (p *Pad) FieldName() string { return "" }
func (p *Pad) Width() int        { return p.n }
func (p *Pad) Zero() any         { return nil }

func (p *Pad) Format() []PrimitiveType {
	out := make([]PrimitiveType, p.n)
	for i := range out {
		out[i] = padByte
	}
	return out
}

func (p *Pad) Decode(c *Cursor) (any, error) {
	_, err := c.Next(p.n)
	return nil, err
}

func (p *Pad) Encode(any) ([]byte, error) {
	return make([]byte, p.n), nil
}

func fieldName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	return name, nil
}

type nameSet map[string]struct{}

func (s nameSet) add(name string) error {
	if name == "" {
		return nil
	}
	if _, dup := s[name]; dup {
		return fmt.Errorf("%w: duplicate %q", ErrInvalidName, name)
	}
	s[name] = struct{}{}
	return nil
}
