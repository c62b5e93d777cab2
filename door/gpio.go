package door

import (
	"github.com/hjkoskel/govattu"
)

// GPIO drives a strike or relay from a single memory-mapped pin.
type GPIO struct {
	hw       govattu.Vattu
	pin      uint8
	openHigh bool // true = set pin high to open, false = set pin low to open
}

// NewGPIO claims pin as an output and leaves it in the locked level.
func NewGPIO(hw govattu.Vattu, pin uint8, openHigh bool) (*GPIO, error) {
	hw.PinMode(pin, govattu.ALToutput)

	g := &GPIO{
		hw:       hw,
		pin:      pin,
		openHigh: openHigh,
	}
	g.Close()
	return g, nil
}

func (g *GPIO) Open() error {
	g.level(g.openHigh)
	return nil
}

func (g *GPIO) Close() error {
	g.level(!g.openHigh)
	return nil
}

func (g *GPIO) Release() error {
	g.Close()
	return g.hw.Close()
}

func (g *GPIO) level(high bool) {
	if high {
		g.hw.PinSet(g.pin)
	} else {
		g.hw.PinClear(g.pin)
	}
}
