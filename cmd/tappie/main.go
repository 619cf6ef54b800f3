// Command tappie turns a rotary encoder, six buttons and a dock reed switch
// into a wireless volume and media controller, and powers the device down
// while it sits in its dock.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/tappie/internal/battery"
	"github.com/sweeney/tappie/internal/config"
	"github.com/sweeney/tappie/internal/gpio"
	"github.com/sweeney/tappie/internal/link"
	"github.com/sweeney/tappie/internal/power"
	"github.com/sweeney/tappie/internal/status"
	"github.com/sweeney/tappie/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (empty for defaults)")
	transport := flag.String("transport", "", `Link transport override ("ble" or "mqtt")`)
	httpAddr := flag.String("http", "", `HTTP status address override ("off" disables)`)
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	printState := flag.Bool("print-state", false, "Print current dock state and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyOverrides(&cfg, *transport, *httpAddr, *logLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	closer, err := setupLogging(cfg.Log)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	defer closer.Close()

	if err := run(cfg, *printState); err != nil {
		slog.Error("fatal", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, transport, httpAddr, logLevel string) {
	if transport != "" {
		cfg.Transport = transport
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP = ""
	default:
		cfg.HTTP = httpAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

func run(cfg config.Config, printState bool) error {
	// Print state mode
	if printState {
		reader, err := gpio.NewRealReader(cfg.ReaderConfig())
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer reader.Close()

		docked, err := reader.Docked()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("Dock: %s\n", dockString(docked))
		return nil
	}

	sleeper, err := power.NewSleeper(cfg.Sleep.Mode, cfg.GPIO.Chip, cfg.GPIO.Pins.Dock)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))

	// Start HTTP status server. It stays up across sleep cycles.
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTP)
	}

	slog.Info("started",
		"name", cfg.Name,
		"transport", cfg.Transport,
		"poll", cfg.Timing.Poll,
		"sleep_mode", cfg.Sleep.Mode)

	ticker := time.NewTicker(cfg.Timing.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := &machine{
		cfg:        cfg,
		openReader: func() (gpio.Reader, error) { return gpio.NewRealReader(cfg.ReaderConfig()) },
		openLink:   func() (link.Link, error) { return openLink(cfg) },
		battery:    cfg.BatteryReader(),
		store:      power.NewFlagStore(cfg.Sleep.StateFile),
		sleeper:    sleeper,
		tracker:    tracker,
		sleep:      time.Sleep,
		now:        time.Now,
	}
	return m.bootLoop(ctx, ticker.C, sigCh)
}

func openLink(cfg config.Config) (link.Link, error) {
	switch cfg.Transport {
	case config.TransportMQTT:
		return link.NewMQTT(link.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Name:     cfg.Name,
		})
	case config.TransportBLE:
		return link.NewBLE(link.DeviceName)
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Name:          cfg.Name,
		Transport:     cfg.Transport,
		SleepMode:     cfg.Sleep.Mode,
		HTTPPort:      cfg.HTTP,
		PollMs:        cfg.Timing.Poll.Milliseconds(),
		ClickWindowMs: cfg.Timing.ClickWindow.Milliseconds(),
		LongPressMs:   cfg.Timing.LongPress.Milliseconds(),
		SettleMs:      cfg.Timing.Settle.Milliseconds(),
		AutoResetMs:   cfg.Timing.AutoReset.Milliseconds(),
	}
}

func dockString(docked bool) string {
	if docked {
		return "DOCKED"
	}
	return "UNDOCKED"
}

// machine runs boot sessions back to back. Cold boot and wake from dock
// take the same path; only the persisted flag tells them apart.
type machine struct {
	cfg        config.Config
	openReader func() (gpio.Reader, error)
	openLink   func() (link.Link, error)
	battery    battery.Reader
	store      *power.FlagStore
	sleeper    power.Sleeper
	tracker    *status.Tracker
	sleep      func(time.Duration)
	now        func() time.Time
}

// bootLoop returns nil on a signal and an error when initialization or the
// sleeper fails.
func (m *machine) bootLoop(ctx context.Context, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		o, err := m.boot(tick, sig)
		if err != nil {
			return err
		}
		if o == outcomeShutdown {
			return nil
		}

		slog.Info("sleeping", "mode", m.cfg.Sleep.Mode)
		if err := m.sleeper.Sleep(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("shutdown while asleep")
				return nil
			}
			return fmt.Errorf("sleep: %w", err)
		}
		slog.Info("woke from dock")
	}
}

// boot initializes every component from scratch and runs one session.
// Hardware and link are released before it returns.
func (m *machine) boot(tick <-chan time.Time, sig <-chan os.Signal) (outcome, error) {
	now := m.now()

	b, err := m.store.Consume()
	if err != nil {
		slog.Warn("read persisted flag failed", "error", err)
	}
	slog.Info("boot", "reason", b.Reason, "was_connected", b.WasConnected)
	m.tracker.Booted(now, string(b.Reason), b.WasConnected)

	reader, err := m.openReader()
	if err != nil {
		return outcomeShutdown, fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	s := newSession(m.cfg, reader, m.battery, m.store, m.tracker, m.sleep, now)
	if s.guardBoot(now) {
		return s.enterSleep(), nil
	}

	lnk, err := m.openLink()
	if err != nil {
		return outcomeShutdown, fmt.Errorf("init link: %w", err)
	}
	s.link = lnk

	o := runLoop(s, m.now, tick, sig)
	if err := s.releaseLink(); err != nil {
		slog.Warn("link release failed", "error", err)
	}
	return o, nil
}
