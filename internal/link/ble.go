package link

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/sweeney/tappie/internal/logic"
)

// DefaultAdapter is the BlueZ object path of the first controller.
const DefaultAdapter dbus.ObjectPath = "/org/bluez/hci0"

var errClosed = errors.New("link: closed")

// bluez is the part of the BlueZ stack the peripheral drives.
type bluez interface {
	RegisterApplication() error
	UnregisterApplication() error
	RegisterAdvertisement() error
	UnregisterAdvertisement() error
	DisconnectDevice(device dbus.ObjectPath) error
	// SetValue updates a characteristic value, notifying subscribed hosts.
	SetValue(ch logic.Channel, value []byte) error
	Close() error
}

// BLE is a GATT peripheral exposing one read+notify characteristic per
// notification channel. Host connections are learned from BlueZ device
// property changes.
type BLE struct {
	Signals

	bus     bluez
	adapter dbus.ObjectPath

	mu          sync.Mutex
	host        dbus.ObjectPath
	registered  bool
	advertising bool
	closed      bool
}

func newBLE(bus bluez, adapter dbus.ObjectPath) *BLE {
	return &BLE{bus: bus, adapter: adapter}
}

// NewBLE powers the adapter, registers the GATT application and starts
// advertising under name. Close releases all of it, so a later NewBLE
// starts from scratch.
func NewBLE(name string) (*BLE, error) {
	b := newBLE(nil, DefaultAdapter)
	bus, err := dialBluez(name, DefaultAdapter, b.onDeviceSignal)
	if err != nil {
		return nil, err
	}
	b.bus = bus

	if err := bus.RegisterApplication(); err != nil {
		bus.Close()
		return nil, fmt.Errorf("register gatt application: %w", err)
	}
	b.registered = true

	if err := b.Advertise(); err != nil {
		b.Close()
		return nil, err
	}

	slog.Info("ble: advertising", "name", name, "service", ServiceUUID, "adapter", DefaultAdapter)
	return b, nil
}

// onDeviceSignal handles PropertiesChanged on org.bluez.Device1. It runs
// on the D-Bus signal goroutine.
func (b *BLE) onDeviceSignal(sig *dbus.Signal) {
	path, connected, ok := deviceConnected(sig)
	if !ok || !strings.HasPrefix(string(path), string(b.adapter)+"/") {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var established, lost bool
	switch {
	case connected && b.host == "":
		b.host = path
		established = true
	case !connected && path == b.host:
		b.host = ""
		lost = true
	}
	b.mu.Unlock()

	// One host at a time; other devices are ignored.
	if established {
		slog.Debug("ble: host connected", "device", path)
		b.Established()
	}
	if lost {
		slog.Debug("ble: host disconnected", "device", path)
		b.Lost()
	}
}

// deviceConnected extracts the Connected property from a Device1
// PropertiesChanged signal.
func deviceConnected(sig *dbus.Signal) (dbus.ObjectPath, bool, bool) {
	if sig == nil || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return "", false, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != device1Iface {
		return "", false, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return "", false, false
	}
	v, ok := changed["Connected"]
	if !ok {
		return "", false, false
	}
	connected, ok := v.Value().(bool)
	if !ok {
		return "", false, false
	}
	return sig.Path, connected, true
}

// Notify writes payload to the channel's characteristic.
func (b *BLE) Notify(ch logic.Channel, payload string) error {
	if !b.Status().Connected {
		return ErrNotConnected
	}
	if ChannelUUID(ch) == "" {
		return fmt.Errorf("unknown channel %s", ch)
	}
	if err := b.bus.SetValue(ch, []byte(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", ch, err)
	}
	return nil
}

// Advertise (re)registers the connectable advertisement.
func (b *BLE) Advertise() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errClosed
	}
	if b.advertising {
		if err := b.bus.UnregisterAdvertisement(); err != nil {
			slog.Debug("ble: unregister stale advertisement", "error", err)
		}
		b.advertising = false
	}
	if err := b.bus.RegisterAdvertisement(); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	b.advertising = true
	return nil
}

// Disconnect drops the connected host.
func (b *BLE) Disconnect() error {
	b.mu.Lock()
	host := b.host
	b.host = ""
	b.mu.Unlock()

	if host == "" {
		return nil
	}
	err := b.bus.DisconnectDevice(host)
	b.Lost()
	if err != nil {
		return fmt.Errorf("disconnect host: %w", err)
	}
	return nil
}

// Close drops the host, withdraws the advertisement and the GATT
// application, and closes the bus connection.
func (b *BLE) Close() error {
	var errs []error

	if err := b.Disconnect(); err != nil {
		errs = append(errs, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	advertising, registered := b.advertising, b.registered
	b.advertising, b.registered = false, false
	b.mu.Unlock()

	if advertising {
		if err := b.bus.UnregisterAdvertisement(); err != nil {
			errs = append(errs, fmt.Errorf("stop advertising: %w", err))
		}
	}
	if registered {
		if err := b.bus.UnregisterApplication(); err != nil {
			errs = append(errs, fmt.Errorf("unregister gatt application: %w", err))
		}
	}
	if err := b.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
