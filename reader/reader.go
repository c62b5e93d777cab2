package reader

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedTag is returned by ReadBlock for a tag whose memory the
// source cannot read page by page.
var ErrUnsupportedTag = errors.New("unsupported tag type")

// Tag is a card found by Poll. It is only valid until the next Poll.
type Tag struct {
	UID    string
	handle any
}

// TagSource is the interface for all tag reader implementations. A source
// is owned by a single goroutine.
type TagSource interface {
	// Poll checks for a tag in the field without blocking.
	// A return of (nil, nil) indicates no tag is present.
	Poll(ctx context.Context) (*Tag, error)

	// ReadBlock reads the NDEF area of tag as concatenated 16 byte pages,
	// stopping once the declared message length is covered.
	ReadBlock(ctx context.Context, tag *Tag) ([]byte, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Config holds common configuration for reader implementations.
type Config struct {
	Type      string `yaml:"type"`       // "libnfc", "freefare", "pipe", "none"
	Device    string `yaml:"device"`     // libnfc connection string, empty for the first device
	Path      string `yaml:"path"`       // named pipe for the "pipe" reader
	StartPage int    `yaml:"start_page"` // first page read, default 4
	Stride    int    `yaml:"stride"`     // pages per read, default 4
	MaxPage   int    `yaml:"max_page"`   // last page read, default 48
	TimeoutMS int    `yaml:"timeout_ms"` // per read, 0 for the driver default
}

func (c Config) geometry() Geometry {
	g := Geometry{Start: 4, Stride: 4, Max: 48}
	if c.StartPage > 0 {
		g.Start = c.StartPage
	}
	if c.Stride > 0 {
		g.Stride = c.Stride
	}
	if c.MaxPage > 0 {
		g.Max = c.MaxPage
	}
	return g
}

// New creates a TagSource based on the provided configuration.
func New(cfg Config) (TagSource, error) {
	switch cfg.Type {
	case "libnfc", "pn532", "":
		return NewLibNFC(cfg)
	case "freefare", "ultralight":
		return NewFreefare(cfg)
	case "pipe":
		return NewPipe(cfg)
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}

// Noop never sees a tag.
type Noop struct{}

func (Noop) Poll(context.Context) (*Tag, error) { return nil, nil }

func (Noop) ReadBlock(context.Context, *Tag) ([]byte, error) { return nil, ErrUnsupportedTag }

func (Noop) Close() error { return nil }
