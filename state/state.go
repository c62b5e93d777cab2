package state

import "fmt"

// AuthState is the status broadcast to the presentation layer.
type AuthState int

const (
	Idle AuthState = iota
	Pending
	Valid
	Invalid
	NetError
	NFCError
	HardwareNotReady
)

var names = [...]string{
	Idle:             "idle",
	Pending:          "pending",
	Valid:            "valid",
	Invalid:          "invalid",
	NetError:         "net_error",
	NFCError:         "nfc_error",
	HardwareNotReady: "hardware_not_ready",
}

func (s AuthState) String() string {
	if s < 0 || int(s) >= len(names) {
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
	return names[s]
}

// Terminal reports whether s ends an authentication cycle.
func (s AuthState) Terminal() bool {
	switch s {
	case Valid, Invalid, NetError, NFCError:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (s AuthState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(names) {
		return nil, fmt.Errorf("unknown auth state %d", int(s))
	}
	return []byte(names[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AuthState) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Parse returns the AuthState with the given name.
func Parse(name string) (AuthState, error) {
	for i, n := range names {
		if n == name {
			return AuthState(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown auth state %q", name)
}
