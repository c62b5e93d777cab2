package reader

import (
	"context"
	"fmt"
)

// PageRead is the size of one READ response: four 4-byte pages.
const PageRead = 16

// Geometry describes where the NDEF area lives in tag memory.
type Geometry struct {
	Start  int // first page
	Stride int // pages advanced per read
	Max    int // last page that may be read
}

// NeededLength returns how many bytes from the start of the NDEF area hold
// the TLV header and the declared message. ok is false until enough of the
// header has been seen.
func NeededLength(buf []byte) (n int, ok bool) {
	if len(buf) < 2 {
		return 0, false
	}
	if buf[1] <= 0xFE {
		return 2 + int(buf[1]), true
	}
	if len(buf) < 4 {
		return 0, false
	}
	return 4 + (int(buf[2])<<8 | int(buf[3])), true
}

// CollectBlock calls read for each page of g in order until the message
// is covered or the last page is reached. A short block is returned as is
// and left for the decoder to reject.
func CollectBlock(ctx context.Context, g Geometry, read func(page byte) ([]byte, error)) ([]byte, error) {
	var buf []byte
	for page := g.Start; page <= g.Max; page += g.Stride {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := read(byte(page))
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", page, err)
		}
		if len(data) < PageRead {
			return nil, fmt.Errorf("read page %d: short response of %d bytes", page, len(data))
		}
		buf = append(buf, data[:PageRead]...)

		if n, ok := NeededLength(buf); ok && len(buf) >= n {
			break
		}
	}
	return buf, nil
}
