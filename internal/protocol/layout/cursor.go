package layout

import "fmt"

// Cursor walks a payload front to back.
type Cursor struct {
	buf []byte
	pos int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Next returns the next n bytes and advances past them.
func (c *Cursor) Next(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformedPayload, n, c.pos, c.Remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *Cursor) Offset() int {
	return c.pos
}

func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}
