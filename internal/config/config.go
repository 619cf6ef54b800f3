// Package config loads the daemon configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sweeney/tappie/internal/battery"
	"github.com/sweeney/tappie/internal/gpio"
	"github.com/sweeney/tappie/internal/logic"
	"github.com/sweeney/tappie/internal/power"
)

// Transports.
const (
	TransportBLE  = "ble"
	TransportMQTT = "mqtt"
)

// Config is the complete daemon configuration.
type Config struct {
	Name      string  `yaml:"name"`
	Transport string  `yaml:"transport"`
	HTTP      string  `yaml:"http"`
	MQTT      MQTT    `yaml:"mqtt"`
	GPIO      GPIO    `yaml:"gpio"`
	Timing    Timing  `yaml:"timing"`
	Sleep     Sleep   `yaml:"sleep"`
	Battery   Battery `yaml:"battery"`
	Log       Log     `yaml:"log"`
}

// MQTT configures the MQTT transport.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// GPIO configures the input lines.
type GPIO struct {
	Chip           string        `yaml:"chip"`
	Pins           gpio.Pins     `yaml:"pins"`
	StepsPerDetent int           `yaml:"steps_per_detent"`
	EdgeDebounce   time.Duration `yaml:"edge_debounce"`
}

// Timing holds every period of the poll loop and its state machines.
type Timing struct {
	Poll         time.Duration `yaml:"poll"`
	Debounce     time.Duration `yaml:"debounce"`
	ClickWindow  time.Duration `yaml:"click_window"`
	LongPress    time.Duration `yaml:"long_press"`
	Settle       time.Duration `yaml:"settle"`
	AutoReset    time.Duration `yaml:"auto_reset"`
	DockPoll     time.Duration `yaml:"dock_poll"`
	DockDebounce time.Duration `yaml:"dock_debounce"`
	Idle         time.Duration `yaml:"idle"`
	Readvertise  time.Duration `yaml:"readvertise"`
}

// Sleep configures dock sleep.
type Sleep struct {
	Mode      string `yaml:"mode"`
	StateFile string `yaml:"state_file"`
}

// Battery selects the battery source. An empty path reports Fixed.
type Battery struct {
	Path  string `yaml:"path"`
	Fixed int    `yaml:"fixed"`
}

// Log configures logging. Serial, when set, mirrors the log to a serial
// console.
type Log struct {
	Level  string `yaml:"level"`
	Serial string `yaml:"serial"`
	Baud   int    `yaml:"baud"`
}

// Default returns the configuration of the reference board.
func Default() Config {
	gestures := logic.DefaultGestureConfig()
	mapper := logic.DefaultMapperConfig()
	pwr := logic.DefaultPowerConfig()

	return Config{
		Name:      "tappie",
		Transport: TransportBLE,
		HTTP:      ":8080",
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "tappie",
		},
		GPIO: GPIO{
			Chip:           "gpiochip0",
			Pins:           gpio.DefaultPins,
			StepsPerDetent: 4,
			EdgeDebounce:   5 * time.Millisecond,
		},
		Timing: Timing{
			Poll:         10 * time.Millisecond,
			Debounce:     gestures.Debounce,
			ClickWindow:  gestures.ClickWindow,
			LongPress:    gestures.LongPress,
			Settle:       mapper.Settle,
			AutoReset:    mapper.AutoReset,
			DockPoll:     pwr.DockPoll,
			DockDebounce: pwr.DockDebounce,
			Idle:         pwr.Idle,
			Readvertise:  500 * time.Millisecond,
		},
		Sleep: Sleep{
			Mode:      power.ModeWait,
			StateFile: "/var/lib/tappie/flag.yaml",
		},
		Battery: Battery{
			Path:  battery.DefaultPath,
			Fixed: 100,
		},
		Log: Log{
			Level: "info",
			Baud:  115200,
		},
	}
}

// Load reads path over Default and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	var errs []error

	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	switch c.Transport {
	case TransportBLE:
	case TransportMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("mqtt.broker required for mqtt transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	switch c.Sleep.Mode {
	case power.ModeWait, power.ModePowerOff:
	default:
		errs = append(errs, fmt.Errorf("unknown sleep mode %q", c.Sleep.Mode))
	}
	if c.Sleep.StateFile == "" {
		errs = append(errs, errors.New("sleep.state_file must not be empty"))
	}

	periods := []struct {
		name string
		d    time.Duration
	}{
		{"poll", c.Timing.Poll},
		{"debounce", c.Timing.Debounce},
		{"click_window", c.Timing.ClickWindow},
		{"long_press", c.Timing.LongPress},
		{"settle", c.Timing.Settle},
		{"auto_reset", c.Timing.AutoReset},
		{"dock_poll", c.Timing.DockPoll},
		{"dock_debounce", c.Timing.DockDebounce},
		{"idle", c.Timing.Idle},
		{"readvertise", c.Timing.Readvertise},
	}
	for _, p := range periods {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("timing.%s must be positive, got %v", p.name, p.d))
		}
	}
	if c.Timing.ClickWindow >= c.Timing.LongPress {
		errs = append(errs, fmt.Errorf("timing.click_window (%v) must be shorter than timing.long_press (%v)",
			c.Timing.ClickWindow, c.Timing.LongPress))
	}
	if c.GPIO.EdgeDebounce < 0 {
		errs = append(errs, errors.New("gpio.edge_debounce must not be negative"))
	}

	if c.GPIO.StepsPerDetent < 1 {
		errs = append(errs, fmt.Errorf("gpio.steps_per_detent must be at least 1, got %d", c.GPIO.StepsPerDetent))
	}
	seen := make(map[int]bool)
	for _, pin := range c.GPIO.Pins.All() {
		if pin < 0 {
			errs = append(errs, fmt.Errorf("gpio pin %d must not be negative", pin))
		}
		if seen[pin] {
			errs = append(errs, fmt.Errorf("gpio pin %d assigned twice", pin))
		}
		seen[pin] = true
	}

	if c.Battery.Path == "" && (c.Battery.Fixed < 0 || c.Battery.Fixed > 100) {
		errs = append(errs, fmt.Errorf("battery.fixed must be 0..100, got %d", c.Battery.Fixed))
	}
	if c.Log.Serial != "" && c.Log.Baud <= 0 {
		errs = append(errs, errors.New("log.baud must be positive when log.serial is set"))
	}

	return errors.Join(errs...)
}

// GestureConfig returns the classifier timing.
func (c Config) GestureConfig() logic.GestureConfig {
	return logic.GestureConfig{
		Debounce:    c.Timing.Debounce,
		ClickWindow: c.Timing.ClickWindow,
		LongPress:   c.Timing.LongPress,
	}
}

// MapperConfig returns the mapper timing.
func (c Config) MapperConfig() logic.MapperConfig {
	return logic.MapperConfig{
		Settle:    c.Timing.Settle,
		AutoReset: c.Timing.AutoReset,
	}
}

// PowerConfig returns the power machine timing.
func (c Config) PowerConfig() logic.PowerConfig {
	return logic.PowerConfig{
		DockPoll:     c.Timing.DockPoll,
		DockDebounce: c.Timing.DockDebounce,
		Idle:         c.Timing.Idle,
	}
}

// ReaderConfig returns the hardware reader configuration.
func (c Config) ReaderConfig() gpio.Config {
	return gpio.Config{
		Chip:           c.GPIO.Chip,
		Pins:           c.GPIO.Pins,
		StepsPerDetent: c.GPIO.StepsPerDetent,
		Debounce:       c.GPIO.EdgeDebounce,
	}
}

// BatteryReader returns the configured battery source.
func (c Config) BatteryReader() battery.Reader {
	if c.Battery.Path == "" {
		return battery.Fixed(c.Battery.Fixed)
	}
	return battery.NewSysfs(c.Battery.Path)
}
