package arf

import (
	"errors"
	"fmt"
)

// ErrBounds reports a count, offset or sample span the stream cannot hold.
var ErrBounds = errors.New("value out of bounds")

// FormatError is returned for malformed or truncated input. Offset is the
// byte position at which decoding failed.
type FormatError struct {
	Offset int64
	Field  string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("arf: %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(off int64, field string, err error) error {
	return &FormatError{Offset: off, Field: field, Err: err}
}
