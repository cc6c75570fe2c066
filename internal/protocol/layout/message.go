package layout

import (
	"fmt"
	"strings"
)

// Message is the payload layout for one message id within a class.
type Message struct {
	id     uint8
	name   string
	fields []Field
	block  *RepeatedBlock
	fixed  int
}

// NewMessage validates the id (0..255), uppercases the name and allows at
// most one repeated block among the fields.
func NewMessage(id int, name string, fields ...Field) (*Message, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: message name required", ErrInvalidName)
	}
	if id < 0 || id > 0xFF {
		return nil, fmt.Errorf("%w: message %s id %d", ErrInvalidID, name, id)
	}
	m := &Message{id: uint8(id), name: name, fields: append([]Field(nil), fields...)}
	seen := nameSet{}
	for _, f := range fields {
		if err := seen.add(f.FieldName()); err != nil {
			return nil, fmt.Errorf("message %s: %w", name, err)
		}
		if b, ok := f.(*RepeatedBlock); ok {
			if m.block != nil {
				return nil, fmt.Errorf("%w: message %s has %s and %s", ErrMultipleBlocks, name, m.block.name, b.name)
			}
			m.block = b
			continue
		}
		m.fixed += f.Width()
	}
	return m, nil
}

func (m *Message) ID() uint8      { return m.id }
func (m *Message) Name() string   { return m.name }
func (m *Message) FixedSize() int { return m.fixed }

// Block returns the repeated block, or nil when the layout is fixed-size.
func (m *Message) Block() *RepeatedBlock { return m.block }

func (m *Message) Fields() []Field {
	return append([]Field(nil), m.fields...)
}

// Names lists record keys in declaration order; padding is skipped.
func (m *Message) Names() []string {
	out := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		if name := f.FieldName(); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// WireFormat lists every primitive token in wire order with the block
// expanded repeat times.
func (m *Message) WireFormat(repeat int) []PrimitiveType {
	var out []PrimitiveType
	for _, f := range m.fields {
		if b, ok := f.(*RepeatedBlock); ok {
			out = append(out, b.FormatN(repeat)...)
			continue
		}
		out = append(out, f.Format()...)
	}
	return out
}

// WireSize is the payload length for the given block repeat count.
func (m *Message) WireSize(repeat int) int {
	if m.block == nil {
		return m.fixed
	}
	return m.fixed + repeat*m.block.width
}

// RepeatCount derives the block repeat count from a payload length.
func (m *Message) RepeatCount(n int) (int, error) {
	if m.block == nil {
		if n != m.fixed {
			return 0, fmt.Errorf("%w: %s payload is %d bytes, layout needs %d", ErrMalformedPayload, m.name, n, m.fixed)
		}
		return 0, nil
	}
	rest := n - m.fixed
	if rest < 0 || rest%m.block.width != 0 {
		return 0, fmt.Errorf("%w: %s payload is %d bytes, layout needs %d + k*%d",
			ErrMalformedPayload, m.name, n, m.fixed, m.block.width)
	}
	return rest / m.block.width, nil
}

// Decode unpacks a payload into a record and returns it with the message name.
func (m *Message) Decode(payload []byte) (string, Record, error) {
	repeat, err := m.RepeatCount(len(payload))
	if err != nil {
		return "", nil, err
	}
	c := NewCursor(payload)
	rec := make(Record, len(m.fields))
	for _, f := range m.fields {
		var v any
		if b, ok := f.(*RepeatedBlock); ok {
			v, err = b.DecodeN(c, repeat)
		} else {
			v, err = f.Decode(c)
		}
		if err != nil {
			return "", nil, wrapField(err, f.FieldName())
		}
		if name := f.FieldName(); name != "" {
			rec[name] = v
		}
	}
	if c.Remaining() != 0 {
		return "", nil, fmt.Errorf("%w: %d unread bytes", ErrMalformedPayload, c.Remaining())
	}
	return m.name, rec, nil
}

// Encode packs a record into payload bytes. The block repeat count is the
// length of the supplied sequence.
func (m *Message) Encode(rec Record) ([]byte, error) {
	out := make([]byte, 0, m.fixed)
	for _, f := range m.fields {
		b, err := encodeField(f, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Default is a fully populated record of zero values with one block item.
func (m *Message) Default() Record {
	rec := make(Record, len(m.fields))
	for _, f := range m.fields {
		if name := f.FieldName(); name != "" {
			rec[name] = f.Zero()
		}
	}
	return rec
}
