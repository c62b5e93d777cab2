//go:build libnfc

package reader

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
)

// Freefare reads Ultralight passports through libfreefare's page API.
type Freefare struct {
	dev nfc.Device
	geo Geometry
}

// NewFreefare opens the reader for use with libfreefare.
func NewFreefare(cfg Config) (*Freefare, error) {
	dev, err := nfc.Open(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open nfc device %q: %w", cfg.Device, err)
	}
	if err := dev.InitiatorInit(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("initiator init: %w", err)
	}
	if err := dev.SetPropertyBool(nfc.InfiniteSelect, false); err != nil {
		dev.Close()
		return nil, fmt.Errorf("disable infinite select: %w", err)
	}

	log.Printf("Freefare reader opened: %s", dev)
	return &Freefare{dev: dev, geo: cfg.geometry()}, nil
}

// Poll reports the first tag in the field. Tags other than Ultralight are
// still reported so the holder sees a read error.
func (r *Freefare) Poll(ctx context.Context) (*Tag, error) {
	tags, err := freefare.GetTags(r.dev)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	if len(tags) == 0 {
		return nil, nil
	}

	t := tags[0]
	tag := &Tag{UID: strings.ToUpper(t.UID())}
	if ul, ok := t.(freefare.UltralightTag); ok {
		tag.handle = ul
	} else {
		log.Printf("Tag %s is not an Ultralight (%T)", tag.UID, t)
	}
	return tag, nil
}

func (r *Freefare) ReadBlock(ctx context.Context, tag *Tag) ([]byte, error) {
	ul, ok := tag.handle.(freefare.UltralightTag)
	if !ok {
		return nil, ErrUnsupportedTag
	}

	if err := ul.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", tag.UID, err)
	}
	defer ul.Disconnect()

	return CollectBlock(ctx, r.geo, func(page byte) ([]byte, error) {
		data := make([]byte, 0, PageRead)
		for i := byte(0); i < PageRead/4; i++ {
			p, err := ul.ReadPage(page + i)
			if err != nil {
				return nil, err
			}
			data = append(data, p[:]...)
		}
		return data, nil
	})
}

func (r *Freefare) Close() error {
	return r.dev.Close()
}
