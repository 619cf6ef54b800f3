package link

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/sweeney/tappie/internal/logic"
)

// BlueZ D-Bus names.
const (
	bluezService         = "org.bluez"
	adapter1Iface        = "org.bluez.Adapter1"
	device1Iface         = "org.bluez.Device1"
	gattManagerIface     = "org.bluez.GattManager1"
	gattServiceIface     = "org.bluez.GattService1"
	gattCharIface        = "org.bluez.GattCharacteristic1"
	advManagerIface      = "org.bluez.LEAdvertisingManager1"
	leAdvertisementIface = "org.bluez.LEAdvertisement1"
	objectManagerIface   = "org.freedesktop.DBus.ObjectManager"
	propertiesIface      = "org.freedesktop.DBus.Properties"
	propertiesChanged    = propertiesIface + ".PropertiesChanged"
)

// Object paths exported by this process.
const (
	appPath     dbus.ObjectPath = "/org/tappie"
	servicePath dbus.ObjectPath = appPath + "/service0"
	advPath     dbus.ObjectPath = appPath + "/advertisement0"
)

func charPath(ch logic.Channel) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/char%d", servicePath, ch))
}

// systemBus talks to BlueZ over its own system bus connection. Closing
// the connection also drops every object it exported.
type systemBus struct {
	conn    *dbus.Conn
	adapter dbus.BusObject
	app     *gattApplication
	chars   map[logic.Channel]*gattCharacteristic
}

func dialBluez(name string, adapter dbus.ObjectPath, onSignal func(*dbus.Signal)) (*systemBus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	s := &systemBus{
		conn:    conn,
		adapter: conn.Object(bluezService, adapter),
		app:     &gattApplication{},
		chars:   make(map[logic.Channel]*gattCharacteristic, len(logic.Channels)),
	}
	if err := s.setup(name, onSignal); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *systemBus) setup(name string, onSignal func(*dbus.Signal)) error {
	if err := s.adapter.Call(propertiesIface+".Set", 0, adapter1Iface, "Powered", dbus.MakeVariant(true)).Err; err != nil {
		return fmt.Errorf("power adapter: %w", err)
	}
	if err := s.exportApplication(); err != nil {
		return fmt.Errorf("export gatt application: %w", err)
	}
	if err := s.exportAdvertisement(name); err != nil {
		return fmt.Errorf("export advertisement: %w", err)
	}

	// Subscribe before registering so no connection is missed.
	if err := s.conn.AddMatchSignal(
		dbus.WithMatchSender(bluezService),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, device1Iface),
	); err != nil {
		return fmt.Errorf("watch devices: %w", err)
	}
	signals := make(chan *dbus.Signal, 16)
	s.conn.Signal(signals)
	go func() {
		// Closed by the connection on Close.
		for sig := range signals {
			onSignal(sig)
		}
	}()
	return nil
}

func (s *systemBus) exportApplication() error {
	charPaths := make([]dbus.ObjectPath, 0, len(logic.Channels))
	for _, ch := range logic.Channels {
		charPaths = append(charPaths, charPath(ch))
	}

	props, err := prop.Export(s.conn, servicePath, prop.Map{
		gattServiceIface: {
			"UUID":            {Value: ServiceUUID, Emit: prop.EmitConst},
			"Primary":         {Value: true, Emit: prop.EmitConst},
			"Characteristics": {Value: charPaths, Emit: prop.EmitConst},
		},
	})
	if err != nil {
		return err
	}
	s.app.add(servicePath, gattServiceIface, props)

	for _, ch := range logic.Channels {
		path := charPath(ch)
		c := &gattCharacteristic{conn: s.conn, path: path, value: []byte(logic.ClearPayload)}
		if err := s.conn.Export(c, path, gattCharIface); err != nil {
			return err
		}
		props, err := prop.Export(s.conn, path, prop.Map{
			gattCharIface: {
				"UUID":    {Value: ChannelUUID(ch), Emit: prop.EmitConst},
				"Service": {Value: servicePath, Emit: prop.EmitConst},
				"Flags":   {Value: []string{"read", "notify"}, Emit: prop.EmitConst},
			},
		})
		if err != nil {
			return err
		}
		s.app.add(path, gattCharIface, props)
		s.chars[ch] = c
	}

	return s.conn.Export(s.app, appPath, objectManagerIface)
}

func (s *systemBus) exportAdvertisement(name string) error {
	if err := s.conn.Export(advertisement{}, advPath, leAdvertisementIface); err != nil {
		return err
	}
	_, err := prop.Export(s.conn, advPath, prop.Map{
		leAdvertisementIface: {
			// Connectable; a broadcast advertisement refuses hosts.
			"Type":         {Value: "peripheral", Emit: prop.EmitConst},
			"ServiceUUIDs": {Value: []string{ServiceUUID}, Emit: prop.EmitConst},
			"LocalName":    {Value: name, Emit: prop.EmitConst},
		},
	})
	return err
}

func (s *systemBus) RegisterApplication() error {
	return s.adapter.Call(gattManagerIface+".RegisterApplication", 0, appPath, map[string]dbus.Variant{}).Err
}

func (s *systemBus) UnregisterApplication() error {
	return s.adapter.Call(gattManagerIface+".UnregisterApplication", 0, appPath).Err
}

func (s *systemBus) RegisterAdvertisement() error {
	return s.adapter.Call(advManagerIface+".RegisterAdvertisement", 0, advPath, map[string]dbus.Variant{}).Err
}

func (s *systemBus) UnregisterAdvertisement() error {
	return s.adapter.Call(advManagerIface+".UnregisterAdvertisement", 0, advPath).Err
}

func (s *systemBus) DisconnectDevice(device dbus.ObjectPath) error {
	return s.conn.Object(bluezService, device).Call(device1Iface+".Disconnect", 0).Err
}

func (s *systemBus) SetValue(ch logic.Channel, value []byte) error {
	c, ok := s.chars[ch]
	if !ok {
		return fmt.Errorf("no characteristic for %s", ch)
	}
	return c.set(value)
}

func (s *systemBus) Close() error {
	return s.conn.Close()
}

type managedObject struct {
	path  dbus.ObjectPath
	iface string
	props *prop.Properties
}

// gattApplication is the ObjectManager root BlueZ walks on
// RegisterApplication.
type gattApplication struct {
	objects []managedObject
}

func (a *gattApplication) add(path dbus.ObjectPath, iface string, props *prop.Properties) {
	a.objects = append(a.objects, managedObject{path: path, iface: iface, props: props})
}

func (a *gattApplication) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, len(a.objects))
	for _, o := range a.objects {
		all, err := o.props.GetAll(o.iface)
		if err != nil {
			return nil, err
		}
		out[o.path] = map[string]map[string]dbus.Variant{o.iface: all}
	}
	return out, nil
}

// gattCharacteristic serves reads and emits Value changes, which BlueZ
// forwards to subscribed hosts as notifications.
type gattCharacteristic struct {
	conn *dbus.Conn
	path dbus.ObjectPath

	mu    sync.Mutex
	value []byte
}

func (c *gattCharacteristic) ReadValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...), nil
}

func (c *gattCharacteristic) StartNotify() *dbus.Error { return nil }

func (c *gattCharacteristic) StopNotify() *dbus.Error { return nil }

func (c *gattCharacteristic) set(value []byte) error {
	c.mu.Lock()
	c.value = append(c.value[:0], value...)
	c.mu.Unlock()

	return c.conn.Emit(c.path, propertiesChanged, gattCharIface,
		map[string]dbus.Variant{"Value": dbus.MakeVariant(value)}, []string{})
}

// advertisement is the LEAdvertisement1 object; its properties carry the
// payload.
type advertisement struct{}

func (advertisement) Release() *dbus.Error { return nil }
