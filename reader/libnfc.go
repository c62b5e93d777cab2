//go:build libnfc

package reader

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/clausecker/nfc/v2"
)

var iso14443a = nfc.Modulation{Type: nfc.ISO14443a, BaudRate: nfc.Nbr106}

// pollPeriod bounds a single Poll; libnfc rounds it to 150 ms units.
const pollPeriod = 150 * time.Millisecond

// LibNFC reads NTAG/Ultralight passports with raw READ commands through
// libnfc.
type LibNFC struct {
	dev     nfc.Device
	geo     Geometry
	timeout int
}

// NewLibNFC opens and initializes the reader. Selection is made
// non-blocking so Poll returns at once when the field is empty.
func NewLibNFC(cfg Config) (*LibNFC, error) {
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
	if err := dev.SetPropertyBool(nfc.AutoISO14443_4, true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("enable auto ISO14443-4: %w", err)
	}

	timeout := -1
	if cfg.TimeoutMS > 0 {
		timeout = cfg.TimeoutMS
	}

	log.Printf("NFC reader opened: %s", dev)
	return &LibNFC{dev: dev, geo: cfg.geometry(), timeout: timeout}, nil
}

func (r *LibNFC) Poll(ctx context.Context) (*Tag, error) {
	n, target, err := r.dev.InitiatorPollTarget([]nfc.Modulation{iso14443a}, 1, pollPeriod)
	if err != nil {
		var nerr nfc.Error
		if errors.As(err, &nerr) && nerr == nfc.ETIMEOUT {
			return nil, nil
		}
		return nil, fmt.Errorf("poll target: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return tagFromTarget(target), nil
}

// tagFromTarget returns nil for anything but an ISO14443A target with a
// usable UID.
func tagFromTarget(t nfc.Target) *Tag {
	a, ok := t.(*nfc.ISO14443aTarget)
	if !ok || a.UIDLen <= 0 || int(a.UIDLen) > len(a.UID) {
		return nil
	}
	uid := append([]byte(nil), a.UID[:a.UIDLen]...)
	return &Tag{UID: strings.ToUpper(hex.EncodeToString(uid)), handle: uid}
}

func (r *LibNFC) ReadBlock(ctx context.Context, tag *Tag) ([]byte, error) {
	uid, ok := tag.handle.([]byte)
	if !ok {
		return nil, ErrUnsupportedTag
	}

	if _, err := r.dev.InitiatorSelectPassiveTarget(iso14443a, uid); err != nil {
		return nil, fmt.Errorf("select %s: %w", tag.UID, err)
	}
	defer r.dev.InitiatorDeselectTarget()

	if err := r.dev.SetPropertyBool(nfc.EasyFraming, true); err != nil {
		return nil, fmt.Errorf("easy framing: %w", err)
	}

	return CollectBlock(ctx, r.geo, func(page byte) ([]byte, error) {
		var rx [PageRead]byte
		n, err := r.dev.InitiatorTransceiveBytes([]byte{0x30, page}, rx[:], r.timeout)
		if err != nil {
			return nil, err
		}
		return rx[:n], nil
	})
}

func (r *LibNFC) Close() error {
	return r.dev.Close()
}
