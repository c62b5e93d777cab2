//go:build !libnfc

package reader

import (
	"context"
	"errors"
)

var ErrNotSupported = errors.New("nfc reader not compiled in, build with -tags libnfc")

// LibNFC is a stub when libnfc support is not compiled in.
type LibNFC struct{}

// NewLibNFC returns ErrNotSupported.
func NewLibNFC(cfg Config) (*LibNFC, error) {
	return nil, ErrNotSupported
}

func (*LibNFC) Poll(context.Context) (*Tag, error) { return nil, ErrNotSupported }

func (*LibNFC) ReadBlock(context.Context, *Tag) ([]byte, error) { return nil, ErrNotSupported }

func (*LibNFC) Close() error { return nil }

// Freefare is a stub when libfreefare support is not compiled in.
type Freefare struct{}

// NewFreefare returns ErrNotSupported.
func NewFreefare(cfg Config) (*Freefare, error) {
	return nil, ErrNotSupported
}

func (*Freefare) Poll(context.Context) (*Tag, error) { return nil, ErrNotSupported }

func (*Freefare) ReadBlock(context.Context, *Tag) ([]byte, error) { return nil, ErrNotSupported }

func (*Freefare) Close() error { return nil }
