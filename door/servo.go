package door

import (
	"time"

	"github.com/hjkoskel/govattu"
)

// Servo presses the door button with a hobby servo on the PWM0 pin.
type Servo struct {
	hw       govattu.Vattu
	pin      uint8
	openPos  int
	closePos int
}

// NewServo configures PWM0 for a 50Hz servo signal and parks the horn in
// the closed position.
func NewServo(hw govattu.Vattu, pin uint8, openPos, closePos int) (*Servo, error) {
	hw.PinMode(pin, govattu.ALT5) // ALT5 for PWM0
	hw.PwmSetMode(true, true, false, false)
	hw.PwmSetClock(19)
	hw.Pwm0SetRange(20000)

	s := &Servo{
		hw:       hw,
		pin:      pin,
		openPos:  openPos,
		closePos: closePos,
	}
	s.hw.Pwm0Set(uint32(closePos))
	return s, nil
}

func (s *Servo) Open() error {
	sweep(s.closePos, s.openPos, s.set)
	return nil
}

func (s *Servo) Close() error {
	sweep(s.openPos, s.closePos, s.set)
	return nil
}

func (s *Servo) Release() error {
	return s.hw.Close()
}

func (s *Servo) set(pos int) {
	s.hw.Pwm0Set(uint32(pos))
	time.Sleep(2 * time.Millisecond)
}

// sweep steps from one position to another one unit at a time, ending on to.
func sweep(from, to int, set func(int)) {
	inc := 1
	if to < from {
		inc = -1
	}
	for i := from; i != to; i += inc {
		set(i)
	}
	set(to)
}
