package layout

import "fmt"

// RepeatedBlock is a group of fields that repeats a payload-derived number
// of times. It decodes to []Record.
type RepeatedBlock struct {
	name   string
	fields []Field
	width  int
}

func NewRepeatedBlock(name string, fields ...Field) (*RepeatedBlock, error) {
	name, err := fieldName(name)
	if err != nil {
		return nil, err
	}
	seen := nameSet{}
	width := 0
	for _, f := range fields {
		if _, nested := f.(*RepeatedBlock); nested {
			return nil, wrapField(fmt.Errorf("%w: %s", ErrNestedBlock, f.FieldName()), name)
		}
		if err := seen.add(f.FieldName()); err != nil {
			return nil, wrapField(err, name)
		}
		width += f.Width()
	}
	if width == 0 {
		return nil, wrapField(ErrEmptyLayout, name)
	}
	return &RepeatedBlock{name: name, fields: append([]Field(nil), fields...), width: width}, nil
}

func (r *RepeatedBlock) FieldName() string { return r.name }

// Width is the size of one item.
func (r *RepeatedBlock) Width() int { return r.width }

func (r *RepeatedBlock) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Format lists the tokens of one item.
func (r *RepeatedBlock) Format() []PrimitiveType {
	return r.FormatN(1)
}

// FormatN lists the tokens of n consecutive items.
func (r *RepeatedBlock) FormatN(n int) []PrimitiveType {
	var item []PrimitiveType
	for _, f := range r.fields {
		item = append(item, f.Format()...)
	}
	out := make([]PrimitiveType, 0, len(item)*n)
	for range n {
		out = append(out, item...)
	}
	return out
}

// Decode consumes whole items until the cursor is exhausted.
func (r *RepeatedBlock) Decode(c *Cursor) (any, error) {
	if c.Remaining()%r.width != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes do not divide into %d-byte items", ErrMalformedPayload, c.Remaining(), r.width)
	}
	return r.DecodeN(c, c.Remaining()/r.width)
}

// DecodeN decodes exactly n items.
func (r *RepeatedBlock) DecodeN(c *Cursor, n int) ([]Record, error) {
	out := make([]Record, n)
	for i := range out {
		item := make(Record, len(r.fields))
		for _, f := range r.fields {
			v, err := f.Decode(c)
			if err != nil {
				return nil, wrapField(wrapField(err, f.FieldName()), fmt.Sprintf("[%d]", i))
			}
			if name := f.FieldName(); name != "" {
				item[name] = v
			}
		}
		out[i] = item
	}
	return out, nil
}

// Encode packs a non-empty sequence of records, one item each.
func (r *RepeatedBlock) Encode(v any) ([]byte, error) {
	items, ok := records(v)
	if !ok {
		return nil, mismatch("repeated block expects a sequence of records, got %T", v)
	}
	if len(items) == 0 {
		return nil, ErrEmptyRepeatedBlock
	}
	out := make([]byte, 0, len(items)*r.width)
	for i, item := range items {
		for _, f := range r.fields {
			b, err := encodeField(f, item)
			if err != nil {
				return nil, wrapField(err, fmt.Sprintf("[%d]", i))
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// Zero is a single default item.
func (r *RepeatedBlock) Zero() any {
	item := make(Record, len(r.fields))
	for _, f := range r.fields {
		if name := f.FieldName(); name != "" {
			item[name] = f.Zero()
		}
	}
	return []Record{item}
}

func encodeField(f Field, rec Record) ([]byte, error) {
	name := f.FieldName()
	if name == "" {
		return f.Encode(nil)
	}
	v, ok := rec[name]
	if !ok {
		return nil, &MissingFieldError{Field: name}
	}
	b, err := f.Encode(v)
	return b, wrapField(err, name)
}
