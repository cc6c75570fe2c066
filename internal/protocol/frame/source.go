package frame

import (
	"bufio"
	"bytes"
	"io"
)

// Source is the byte input a Parser consumes.
type Source interface {
	// ReadUntil reads up to and including terminator. It may return early
	// without the terminator; a nil error then means "keep scanning".
	ReadUntil(terminator []byte) ([]byte, error)
	// ReadN reads up to n bytes; fewer bytes means the source ended.
	ReadN(n int) ([]byte, error)
}

// DefaultScanLimit bounds the bytes one ReadUntil call accumulates.
const DefaultScanLimit = 4096

// StreamSource adapts an io.Reader into a Source.
type StreamSource struct {
	r     *bufio.Reader
	limit int
}

type SourceOption func(*StreamSource)

// WithScanLimit caps a single ReadUntil call at n bytes. n <= 0 removes the cap.
func WithScanLimit(n int) SourceOption {
	return func(s *StreamSource) {
		s.limit = n
	}
}

func NewStreamSource(r io.Reader, opts ...SourceOption) *StreamSource {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	s := &StreamSource{r: br, limit: DefaultScanLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StreamSource) ReadUntil(terminator []byte) ([]byte, error) {
	if len(terminator) == 0 {
		return nil, nil
	}
	var out []byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return out, err
		}
		out = append(out, b)
		if bytes.HasSuffix(out, terminator) {
			return out, nil
		}
		// Never cut between the bytes of a partially matched terminator.
		if s.limit > 0 && len(out) >= s.limit && !endsWithPartial(out, terminator) {
			return out, nil
		}
	}
}

func (s *StreamSource) ReadN(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(s.r, buf)
	return buf[:got], err
}

func endsWithPartial(b, terminator []byte) bool {
	for k := min(len(terminator)-1, len(b)); k > 0; k-- {
		if bytes.HasSuffix(b, terminator[:k]) {
			return true
		}
	}
	return false
}
