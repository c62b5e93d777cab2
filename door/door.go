package door

import (
	"fmt"
	"time"

	"github.com/hjkoskel/govattu"
)

// DoorOpener is the interface for all door actuator implementations.
type DoorOpener interface {
	// Open drives the actuator to its unlocking position.
	Open() error

	// Close returns the actuator to its resting position.
	Close() error

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for door actuators and the controller that
// drives them.
type Config struct {
	Type       string `yaml:"type"`        // "servo", "gpio_high", "gpio_low", "relay", "lx16a", "ble_pusher", "none"
	Pin        *int   `yaml:"pin"`         // GPIO pin (servo, gpio) or line offset (relay)
	ServoOpen  int    `yaml:"servo_open"`  // PWM value for open position
	ServoClose int    `yaml:"servo_close"` // PWM value for closed position

	Chip      string `yaml:"chip"`       // gpiochip for relay, default gpiochip0
	ActiveLow bool   `yaml:"active_low"` // relay energizes on a low line

	Device   string `yaml:"device"`            // serial port for lx16a
	ServoID  int    `yaml:"servo_id"`          // bus servo id, 254 broadcasts
	Pressed  uint16 `yaml:"pressed_position"`  // 0-1000
	Released uint16 `yaml:"released_position"` // 0-1000
	MoveMS   uint16 `yaml:"move_ms"`           // travel time per move

	BLENames    []string `yaml:"ble_names"`     // advertised name substrings, default ada-pusher and nimble
	BLEScanSecs int      `yaml:"ble_scan_secs"` // scan window per init attempt, default 10

	HoldMS        int `yaml:"hold_ms"`         // time between Open and Close, default 1000
	Attempts      int `yaml:"attempts"`        // tries per open command, default 3
	RetryDelayMS  int `yaml:"retry_delay_ms"`  // delay between tries, default 1000
	InitRetrySecs int `yaml:"init_retry_secs"` // delay between init attempts, default 5
}

// HardwareError reports an actuator that could not be built or driven.
type HardwareError struct {
	Backend string
	Op      string
	Err     error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("door %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

func (c *Config) applyDefaults() {
	if c.Chip == "" {
		c.Chip = "gpiochip0"
	}
	if c.HoldMS <= 0 {
		c.HoldMS = 1000
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryDelayMS <= 0 {
		c.RetryDelayMS = 1000
	}
	if c.InitRetrySecs <= 0 {
		c.InitRetrySecs = 5
	}
	if len(c.BLENames) == 0 {
		c.BLENames = blePusherNames
	}
	if c.BLEScanSecs <= 0 {
		c.BLEScanSecs = 10
	}
}

func (c Config) hold() time.Duration {
	return time.Duration(c.HoldMS) * time.Millisecond
}

// New creates a DoorOpener based on the provided configuration. An unknown
// type or a missing pin fails rather than leaving the door uncontrolled.
func New(cfg Config) (DoorOpener, error) {
	cfg.applyDefaults()

	switch cfg.Type {
	case "", "none":
		return &Noop{}, nil
	case "lx16a":
		if cfg.Device == "" {
			return nil, &HardwareError{Backend: cfg.Type, Op: "configure", Err: fmt.Errorf("no serial device")}
		}
		return NewLX16A(cfg.Device, byte(cfg.ServoID), cfg.Pressed, cfg.Released, cfg.MoveMS)
	case "ble_pusher":
		return NewBLEPusher(cfg.BLENames, time.Duration(cfg.BLEScanSecs)*time.Second)
	case "relay":
		if cfg.Pin == nil {
			return nil, &HardwareError{Backend: cfg.Type, Op: "configure", Err: fmt.Errorf("no line offset")}
		}
		return NewRelay(cfg.Chip, *cfg.Pin, cfg.ActiveLow)
	case "servo", "gpio_high", "openhigh", "gpio_low", "openlow":
	default:
		return nil, &HardwareError{Backend: cfg.Type, Op: "configure", Err: fmt.Errorf("unknown door type")}
	}

	if cfg.Pin == nil {
		return nil, &HardwareError{Backend: cfg.Type, Op: "configure", Err: fmt.Errorf("no pin")}
	}

	hw, err := govattu.Open()
	if err != nil {
		return nil, &HardwareError{Backend: cfg.Type, Op: "open gpio", Err: err}
	}

	switch cfg.Type {
	case "servo":
		return NewServo(hw, uint8(*cfg.Pin), cfg.ServoOpen, cfg.ServoClose)
	case "gpio_high", "openhigh":
		return NewGPIO(hw, uint8(*cfg.Pin), true)
	default:
		return NewGPIO(hw, uint8(*cfg.Pin), false)
	}
}
