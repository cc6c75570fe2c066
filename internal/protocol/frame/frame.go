package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	Sync1 byte = 0xB5
	Sync2 byte = 0x62

	HeaderLen     = 4
	ChecksumLen   = 2
	MaxPayloadLen = 0xFFFF
)

// Prefix is the two-byte synchronisation marker that opens every frame.
var Prefix = [2]byte{Sync1, Sync2}

// Header is the fixed wire header following the prefix.
type Header struct {
	Class  uint8
	ID     uint8
	Length uint16
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, &ReadError{Stage: StageHeader, Want: HeaderLen, Got: len(b)}
	}
	return Header{
		Class:  b[0],
		ID:     b[1],
		Length: binary.LittleEndian.Uint16(b[2:4]),
	}, nil
}

func (h Header) Encode() []byte {
	out := make([]byte, HeaderLen)
	out[0] = h.Class
	out[1] = h.ID
	binary.LittleEndian.PutUint16(out[2:4], h.Length)
	return out
}

// Encode builds a complete frame: prefix, header, payload and checksum.
func Encode(class, id uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	out := make([]byte, 0, len(Prefix)+HeaderLen+len(payload)+ChecksumLen)
	out = append(out, Prefix[:]...)
	out = append(out, Header{Class: class, ID: id, Length: uint16(len(payload))}.Encode()...)
	out = append(out, payload...)
	ck := Checksum(out[len(Prefix):])
	return append(out, ck[0], ck[1]), nil
}

// WriteFrame encodes and writes one frame in a single Write call.
func WriteFrame(w io.Writer, class, id uint8, payload []byte) error {
	b, err := Encode(class, id, payload)
	if err != nil {
		return err
	}
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}
