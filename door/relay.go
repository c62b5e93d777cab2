package door

import (
	"github.com/warthog618/go-gpiocdev"
)

// Relay drives a door strike relay through the GPIO character device.
type Relay struct {
	line *gpiocdev.Line
}

// NewRelay requests offset on chip as an output, initially de-energized.
func NewRelay(chip string, offset int, activeLow bool) (*Relay, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("dooropener"),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, &HardwareError{Backend: "relay", Op: "request line", Err: err}
	}
	return &Relay{line: line}, nil
}

func (r *Relay) Open() error {
	if err := r.line.SetValue(1); err != nil {
		return &HardwareError{Backend: "relay", Op: "energize", Err: err}
	}
	return nil
}

func (r *Relay) Close() error {
	if err := r.line.SetValue(0); err != nil {
		return &HardwareError{Backend: "relay", Op: "release", Err: err}
	}
	return nil
}

func (r *Relay) Release() error {
	r.line.SetValue(0)
	return r.line.Close()
}
