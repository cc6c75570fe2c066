package frame

import (
	"errors"
	"fmt"
)

var (
	ErrShortRead       = errors.New("frame: short read")
	ErrUnknownClass    = errors.New("frame: unsupported message class")
	ErrUnknownMessage  = errors.New("frame: unsupported message id")
	ErrChecksum        = errors.New("frame: checksum mismatch")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrNotRegistered   = errors.New("frame: definition not registered")
	ErrDuplicateName   = errors.New("frame: duplicate class name")
)

// Stage names the receive step that was reading when an I/O error occurred.
type Stage string

const (
	StageScan     Stage = "scan"
	StageHeader   Stage = "header"
	StagePayload  Stage = "payload"
	StageChecksum Stage = "checksum"
	StageDrain    Stage = "drain"
)

// ReadError reports a source that ended or failed before a stage completed.
type ReadError struct {
	Stage Stage
	Want  int
	Got   int
	Err   error
}

func (e *ReadError) Error() string {
	msg := fmt.Sprintf("frame: %s: read returned %d bytes, expected %d", e.Stage, e.Got, e.Want)
	if e.Stage == StageScan {
		msg = fmt.Sprintf("frame: scan: no frame prefix in %d bytes", e.Got)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrShortRead}
	}
	return []error{ErrShortRead, e.Err}
}

// ProtocolError reports a header naming a class or message that is not registered.
type ProtocolError struct {
	Class          uint8
	Message        uint8
	UnknownMessage bool
}

func (e *ProtocolError) Error() string {
	if e.UnknownMessage {
		return fmt.Sprintf("frame: unsupported message id 0x%02x in class 0x%02x", e.Message, e.Class)
	}
	return fmt.Sprintf("frame: unsupported message class 0x%02x", e.Class)
}

func (e *ProtocolError) Unwrap() error {
	if e.UnknownMessage {
		return ErrUnknownMessage
	}
	return ErrUnknownClass
}

// ChecksumError reports a frame whose trailing checksum does not match its contents.
type ChecksumError struct {
	Computed [2]byte
	Received [2]byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame: checksum mismatch: calculated %02x %02x, received %02x %02x",
		e.Computed[0], e.Computed[1], e.Received[0], e.Received[1])
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksum
}
