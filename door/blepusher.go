package door

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// blePusherCommand is the characteristic that accepts pusher commands.
const blePusherCommand = "7e783540-f3ab-431f-adff-566767b8bb31"

var (
	blePusherOpen  = []byte("open")
	blePusherNames = []string{"ada-pusher", "nimble"}

	errPusherNotFound = errors.New("no pusher advertised during scan")
	errNoCommand      = errors.New("command characteristic not found")
)

type bleWriter interface {
	WriteWithoutResponse(p []byte) (int, error)
}

type bleCharacteristic interface {
	bleWriter
	UUID() bluetooth.UUID
}

type bleLink interface {
	Disconnect() error
}

// BLEPusher presses the door button with a battery powered pusher that
// takes commands over Bluetooth LE. Close is a no-op since the pusher
// returns on its own.
type BLEPusher struct {
	cmd  bleWriter
	link bleLink
}

var (
	adapterMu      sync.Mutex
	adapterEnabled bool
)

func enableAdapter() error {
	adapterMu.Lock()
	defer adapterMu.Unlock()
	if adapterEnabled {
		return nil
	}
	if err := bluetooth.DefaultAdapter.Enable(); err != nil {
		return err
	}
	adapterEnabled = true
	return nil
}

// NewBLEPusher scans for up to scan for a device whose local name
// contains one of names, connects and looks up the command characteristic.
// Connecting takes several seconds; failures are retried by the Controller.
func NewBLEPusher(names []string, scan time.Duration) (*BLEPusher, error) {
	want, err := bluetooth.ParseUUID(blePusherCommand)
	if err != nil {
		return nil, &HardwareError{Backend: "ble_pusher", Op: "parse uuid", Err: err}
	}

	if err := enableAdapter(); err != nil {
		return nil, &HardwareError{Backend: "ble_pusher", Op: "enable adapter", Err: err}
	}
	adapter := bluetooth.DefaultAdapter

	log.Printf("Scanning %s for BLE pusher...", scan)
	found, err := scanForPusher(adapter, names, scan)
	if err != nil {
		return nil, &HardwareError{Backend: "ble_pusher", Op: "scan", Err: err}
	}
	log.Printf("BLE pusher found: %s (%s)", found.LocalName(), found.Address.String())

	dev, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, &HardwareError{Backend: "ble_pusher", Op: "connect", Err: err}
	}

	services, err := dev.DiscoverServices(nil)
	if err != nil {
		dev.Disconnect()
		return nil, &HardwareError{Backend: "ble_pusher", Op: "discover services", Err: err}
	}

	var chars []*bluetooth.DeviceCharacteristic
	for _, svc := range services {
		list, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			log.Printf("BLE pusher: service %s: %v", svc.UUID().String(), err)
			continue
		}
		for i := range list {
			chars = append(chars, &list[i])
		}
	}

	cmd, ok := selectCommand(chars, want)
	if !ok {
		dev.Disconnect()
		return nil, &HardwareError{Backend: "ble_pusher", Op: "discover characteristics", Err: errNoCommand}
	}

	log.Println("BLE pusher connected")
	return newBLEPusher(cmd, &dev), nil
}

func newBLEPusher(cmd bleWriter, link bleLink) *BLEPusher {
	return &BLEPusher{cmd: cmd, link: link}
}

func scanForPusher(adapter *bluetooth.Adapter, names []string, window time.Duration) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	timer := time.AfterFunc(window, func() { adapter.StopScan() })
	defer timer.Stop()

	err := adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if !isPusherName(r.LocalName(), names) {
			return
		}
		select {
		case found <- r:
			a.StopScan()
		default:
		}
	})
	if err != nil {
		return bluetooth.ScanResult{}, err
	}

	select {
	case r := <-found:
		return r, nil
	default:
		return bluetooth.ScanResult{}, errPusherNotFound
	}
}

func isPusherName(name string, names []string) bool {
	if name == "" {
		return false
	}
	for _, n := range names {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// selectCommand returns the first characteristic whose UUID is want.
func selectCommand[C bleCharacteristic](chars []C, want bluetooth.UUID) (C, bool) {
	for _, c := range chars {
		if c.UUID() == want {
			return c, true
		}
	}
	var zero C
	return zero, false
}

func (p *BLEPusher) Open() error {
	n, err := p.cmd.WriteWithoutResponse(blePusherOpen)
	if err != nil {
		return &HardwareError{Backend: "ble_pusher", Op: "write open", Err: err}
	}
	if n != len(blePusherOpen) {
		return &HardwareError{Backend: "ble_pusher", Op: "write open", Err: fmt.Errorf("short write %d/%d", n, len(blePusherOpen))}
	}
	return nil
}

func (p *BLEPusher) Close() error {
	return nil
}

func (p *BLEPusher) Release() error {
	return p.link.Disconnect()
}
