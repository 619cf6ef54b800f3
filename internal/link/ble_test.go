package link

import (
	"errors"
	"reflect"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/sweeney/tappie/internal/logic"
)

// fakeBluez records the calls a BLE makes into the stack.
type fakeBluez struct {
	appRegistered  bool
	appReleased    int
	advRegistered  int
	advReleased    int
	advertising    bool
	disconnected   []dbus.ObjectPath
	values         map[logic.Channel][]string
	closed         bool
	registerAdvErr error
}

func newFakeBluez() *fakeBluez {
	return &fakeBluez{appRegistered: true, values: make(map[logic.Channel][]string)}
}

func (f *fakeBluez) RegisterApplication() error {
	f.appRegistered = true
	return nil
}

func (f *fakeBluez) UnregisterApplication() error {
	f.appRegistered = false
	f.appReleased++
	return nil
}

func (f *fakeBluez) RegisterAdvertisement() error {
	if f.registerAdvErr != nil {
		return f.registerAdvErr
	}
	if f.advertising {
		return errors.New("org.bluez.Error.AlreadyExists")
	}
	f.advertising = true
	f.advRegistered++
	return nil
}

func (f *fakeBluez) UnregisterAdvertisement() error {
	if !f.advertising {
		return errors.New("org.bluez.Error.DoesNotExist")
	}
	f.advertising = false
	f.advReleased++
	return nil
}

func (f *fakeBluez) DisconnectDevice(device dbus.ObjectPath) error {
	f.disconnected = append(f.disconnected, device)
	return nil
}

func (f *fakeBluez) SetValue(ch logic.Channel, value []byte) error {
	f.values[ch] = append(f.values[ch], string(value))
	return nil
}

func (f *fakeBluez) Close() error {
	f.closed = true
	return nil
}

const hostPath dbus.ObjectPath = DefaultAdapter + "/dev_AA_BB_CC_DD_EE_FF"

func deviceChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: path,
		Name: propertiesChanged,
		Body: []interface{}{iface, changed, []string{}},
	}
}

func connectedSignal(path dbus.ObjectPath, connected bool) *dbus.Signal {
	return deviceChanged(path, device1Iface, map[string]dbus.Variant{"Connected": dbus.MakeVariant(connected)})
}

// newTestBLE returns a BLE in the state NewBLE leaves it: application
// registered and advertising.
func newTestBLE(t *testing.T) (*BLE, *fakeBluez) {
	t.Helper()
	f := newFakeBluez()
	b := newBLE(f, DefaultAdapter)
	b.registered = true
	if err := b.Advertise(); err != nil {
		t.Fatalf("Advertise: %v", err)
	}
	return b, f
}

func TestBLEDeviceConnectedSignal(t *testing.T) {
	b, _ := newTestBLE(t)

	b.onDeviceSignal(connectedSignal(hostPath, true))
	if st := b.Status(); !st.Connected || st.Sessions != 1 {
		t.Fatalf("after connect: expected connected session 1, got %+v", st)
	}

	// Repeated property updates for the same host are not a new session.
	b.onDeviceSignal(connectedSignal(hostPath, true))
	if st := b.Status(); st.Sessions != 1 {
		t.Errorf("expected session 1 after repeated signal, got %d", st.Sessions)
	}

	b.onDeviceSignal(connectedSignal(hostPath, false))
	if st := b.Status(); st.Connected {
		t.Error("expected disconnected after Connected=false")
	}

	b.onDeviceSignal(connectedSignal(hostPath, true))
	if st := b.Status(); !st.Connected || st.Sessions != 2 {
		t.Errorf("after reconnect: expected connected session 2, got %+v", st)
	}
}

func TestBLEIgnoresUnrelatedSignals(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{"other interface", deviceChanged(hostPath, "org.bluez.MediaControl1",
			map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)})},
		{"other property", deviceChanged(hostPath, device1Iface,
			map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-40))})},
		{"wrong type", deviceChanged(hostPath, device1Iface,
			map[string]dbus.Variant{"Connected": dbus.MakeVariant("yes")})},
		{"other adapter", connectedSignal("/org/bluez/hci1/dev_11_22_33_44_55_66", true)},
		{"other signal", &dbus.Signal{Path: hostPath, Name: "org.bluez.Device1.Disconnected"}},
		{"short body", &dbus.Signal{Path: hostPath, Name: propertiesChanged, Body: []interface{}{device1Iface}}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBLE(t)
			b.onDeviceSignal(tt.sig)
			if st := b.Status(); st.Connected || st.Sessions != 0 {
				t.Errorf("expected no session, got %+v", st)
			}
		})
	}
}

func TestBLESecondHostIgnored(t *testing.T) {
	b, _ := newTestBLE(t)
	other := DefaultAdapter + "/dev_11_22_33_44_55_66"

	b.onDeviceSignal(connectedSignal(hostPath, true))
	b.onDeviceSignal(connectedSignal(other, true))
	b.onDeviceSignal(connectedSignal(other, false))

	if st := b.Status(); !st.Connected || st.Sessions != 1 {
		t.Errorf("expected first host still connected, got %+v", st)
	}
}

func TestBLENotify(t *testing.T) {
	b, f := newTestBLE(t)

	if err := b.Notify(logic.ChannelPosition, "3 80"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	b.onDeviceSignal(connectedSignal(hostPath, true))
	if err := b.Notify(logic.ChannelPosition, "3 80"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := b.Notify(logic.ChannelMediaDouble, "Chat"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if got := f.values[logic.ChannelPosition]; !reflect.DeepEqual(got, []string{"3 80"}) {
		t.Errorf("position: got %q", got)
	}
	if got := f.values[logic.ChannelMediaDouble]; !reflect.DeepEqual(got, []string{"Chat"}) {
		t.Errorf("media double: got %q", got)
	}
}

func TestBLEAdvertiseReregisters(t *testing.T) {
	b, f := newTestBLE(t)

	if err := b.Advertise(); err != nil {
		t.Fatalf("Advertise: %v", err)
	}
	if f.advRegistered != 2 || f.advReleased != 1 || !f.advertising {
		t.Errorf("expected stale advertisement replaced, got registered=%d released=%d", f.advRegistered, f.advReleased)
	}

	f.registerAdvErr = errors.New("org.bluez.Error.Failed")
	if err := b.Advertise(); err == nil {
		t.Error("expected advertise error")
	}
}

func TestBLEDisconnectDropsHost(t *testing.T) {
	b, f := newTestBLE(t)
	b.onDeviceSignal(connectedSignal(hostPath, true))

	if err := b.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !reflect.DeepEqual(f.disconnected, []dbus.ObjectPath{hostPath}) {
		t.Errorf("expected %s disconnected, got %v", hostPath, f.disconnected)
	}
	if b.Status().Connected {
		t.Error("expected disconnected status")
	}

	// No host left.
	if err := b.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if len(f.disconnected) != 1 {
		t.Errorf("expected one disconnect call, got %d", len(f.disconnected))
	}
}

func TestBLECloseReleasesStack(t *testing.T) {
	b, f := newTestBLE(t)
	b.onDeviceSignal(connectedSignal(hostPath, true))

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(f.disconnected) != 1 {
		t.Errorf("expected host disconnected, got %v", f.disconnected)
	}
	if f.advertising || f.advReleased != 1 {
		t.Error("expected advertisement withdrawn")
	}
	if f.appRegistered || f.appReleased != 1 {
		t.Error("expected gatt application unregistered")
	}
	if !f.closed {
		t.Error("expected bus closed")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.appReleased != 1 || f.advReleased != 1 {
		t.Error("expected second Close to be a no-op")
	}
	if err := b.Advertise(); err == nil {
		t.Error("expected Advertise to fail after Close")
	}

	// Late signals from the closed connection change nothing.
	b.onDeviceSignal(connectedSignal(hostPath, true))
	if b.Status().Connected {
		t.Error("expected signals ignored after Close")
	}
}

func TestBLECloseThenReopen(t *testing.T) {
	first, f1 := newTestBLE(t)
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, f2 := newTestBLE(t)
	second.onDeviceSignal(connectedSignal(hostPath, true))
	if err := second.Notify(logic.ChannelPosition, "0 80"); err != nil {
		t.Fatalf("Notify on reopened link: %v", err)
	}
	if !f1.closed || f2.closed {
		t.Errorf("expected only the first stack closed, got first=%v second=%v", f1.closed, f2.closed)
	}
	if first.Status().Connected {
		t.Error("closed link must not see the new host")
	}
}
