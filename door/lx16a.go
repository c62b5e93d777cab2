package door

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// LX-16A bus servo commands.
const (
	lx16aMoveTimeWrite = 1
	lx16aMaxPosition   = 1000
	lx16aMaxTime       = 30000
)

// LX16A presses the door button with a LewanSoul LX-16A bus servo on a
// half-duplex serial line.
type LX16A struct {
	port     io.WriteCloser
	id       byte
	pressed  uint16
	released uint16
	moveMS   uint16
}

// NewLX16A opens the serial device at the bus rate of 115200 baud.
func NewLX16A(device string, id byte, pressed, released, moveMS uint16) (*LX16A, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        115200,
		ReadTimeout: 10 * time.Millisecond,
	})
	if err != nil {
		return nil, &HardwareError{Backend: "lx16a", Op: "open " + device, Err: err}
	}
	return newLX16A(port, id, pressed, released, moveMS), nil
}

func newLX16A(port io.WriteCloser, id byte, pressed, released, moveMS uint16) *LX16A {
	return &LX16A{port: port, id: id, pressed: pressed, released: released, moveMS: moveMS}
}

func (s *LX16A) Open() error {
	return s.move(s.pressed)
}

func (s *LX16A) Close() error {
	return s.move(s.released)
}

func (s *LX16A) Release() error {
	return s.port.Close()
}

func (s *LX16A) move(position uint16) error {
	frame := moveFrame(s.id, position, s.moveMS)
	if _, err := s.port.Write(frame); err != nil {
		return &HardwareError{Backend: "lx16a", Op: fmt.Sprintf("move to %d", position), Err: err}
	}
	return nil
}

// moveFrame builds a MOVE_TIME_WRITE frame with position and time clamped
// to the servo's accepted ranges.
func moveFrame(id byte, position, ms uint16) []byte {
	position = min(position, lx16aMaxPosition)
	ms = min(ms, lx16aMaxTime)
	return lx16aFrame(id, lx16aMoveTimeWrite,
		byte(position), byte(position>>8),
		byte(ms), byte(ms>>8))
}

// lx16aFrame encodes 0x55 0x55 id length cmd params... checksum, where
// length counts itself, cmd, params and checksum.
func lx16aFrame(id, cmd byte, params ...byte) []byte {
	length := byte(3 + len(params))
	frame := make([]byte, 0, 6+len(params))
	frame = append(frame, 0x55, 0x55, id, length, cmd)
	frame = append(frame, params...)

	sum := int(id) + int(length) + int(cmd)
	for _, p := range params {
		sum += int(p)
	}
	return append(frame, byte(255-sum%256))
}
