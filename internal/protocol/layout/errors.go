package layout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedType    = errors.New("layout: unsupported type")
	ErrInvalidRange       = errors.New("layout: invalid bit range")
	ErrInvalidRepeat      = errors.New("layout: invalid repeat count")
	ErrInvalidID          = errors.New("layout: id out of range")
	ErrInvalidName        = errors.New("layout: invalid field name")
	ErrMultipleBlocks     = errors.New("layout: multiple repeated blocks")
	ErrNestedBlock        = errors.New("layout: repeated block nested in repeated block")
	ErrEmptyLayout        = errors.New("layout: repeated block has no wire width")
	ErrEmptyRepeatedBlock = errors.New("layout: repeated block cannot be empty")
	ErrMalformedPayload   = errors.New("layout: malformed payload")
	ErrMissingField       = errors.New("layout: missing field")
	ErrValueMismatch      = errors.New("layout: value mismatch")
	ErrNotRegistered      = errors.New("layout: message not registered")
	ErrDuplicateName      = errors.New("layout: duplicate message name")
)

// MissingFieldError indicates a value tree lacks an entry the layout needs.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("layout: missing field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// FieldError attaches the field path (e.g. RB[1].RF1) to an encode or decode error.
type FieldError struct {
	Path []string
	Err  error
}

func (e *FieldError) Error() string {
	if len(e.Path) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("layout: field %s: %v", joinPath(e.Path), e.Err)
}

// joinPath renders ["RB", "[1]", "RF1"] as RB[1].RF1.
func joinPath(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func wrapField(err error, name string) error {
	if err == nil || name == "" {
		return err
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			Path: append([]string{name}, fe.Path...),
			Err:  fe.Err,
		}
	}
	return &FieldError{Path: []string{name}, Err: err}
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValueMismatch, fmt.Sprintf(format, args...))
}
