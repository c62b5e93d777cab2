package ndef

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ParseError.
var (
	ErrShortHeader       = errors.New("ndef: message header truncated")
	ErrTruncated         = errors.New("ndef: record runs past declared length")
	ErrLengthMismatch    = errors.New("ndef: message end before declared length")
	ErrEmptyPayload      = errors.New("ndef: payload missing prefix byte")
	ErrUnterminatedChunk = errors.New("ndef: chunked record not terminated")
	ErrTypeTooLong       = errors.New("ndef: record type longer than 8 bytes")
)

// ParseError reports malformed NDEF data and the offset at which decoding
// stopped.
type ParseError struct {
	Offset int
	Field  string // field being read when decoding failed
	Err    error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v (offset %d)", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v: %s (offset %d)", e.Err, e.Field, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
