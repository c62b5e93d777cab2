package door

import "log"

// Noop implements DoorOpener but only logs.
// Used when no door actuator is configured.
type Noop struct{}

// Open implements DoorOpener.Open.
func (n *Noop) Open() error {
	log.Printf("Door open (no actuator configured)")
	return nil
}

// Close implements DoorOpener.Close.
func (n *Noop) Close() error {
	return nil
}

// Release implements DoorOpener.Release.
func (n *Noop) Release() error {
	return nil
}
