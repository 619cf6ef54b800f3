package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sweeney/tappie/internal/battery"
	"github.com/sweeney/tappie/internal/config"
	"github.com/sweeney/tappie/internal/gpio"
	"github.com/sweeney/tappie/internal/link"
	"github.com/sweeney/tappie/internal/logic"
	"github.com/sweeney/tappie/internal/power"
	"github.com/sweeney/tappie/internal/status"
)

// outcome is how a session ended.
type outcome int

const (
	outcomeContinue outcome = iota
	outcomeSleep
	outcomeShutdown
)

func (o outcome) String() string {
	switch o {
	case outcomeContinue:
		return "continue"
	case outcomeSleep:
		return "sleep"
	case outcomeShutdown:
		return "shutdown"
	}
	return "unknown"
}

// batteryRefresh is how often the battery gauge is re-read.
const batteryRefresh = 10 * time.Second

// edgeDropper is implemented by readers that can lose button edges.
type edgeDropper interface {
	DroppedEdges() uint32
}

// session owns everything between one boot and the next sleep or shutdown.
// All methods run on the poll loop goroutine.
type session struct {
	reader  gpio.Reader
	link    link.Link
	battery battery.Reader
	store   *power.FlagStore
	tracker *status.Tracker
	// sleep performs the blocking wait before a delayed notification.
	sleep func(time.Duration)

	st          logic.DeviceState
	adapter     *logic.LinkAdapter
	mapper      *logic.Mapper
	power       *logic.PowerMachine
	classifiers map[logic.ButtonID]*logic.Classifier

	batteryPct int
	batteryAt  time.Time
	released   bool
}

func newSession(cfg config.Config, reader gpio.Reader, batt battery.Reader, store *power.FlagStore, tracker *status.Tracker, sleep func(time.Duration), now time.Time) *session {
	s := &session{
		reader:  reader,
		battery: batt,
		store:   store,
		tracker: tracker,
		sleep:   sleep,
		adapter: logic.NewLinkAdapter(cfg.Timing.Readvertise),
		mapper:  logic.NewMapper(cfg.MapperConfig()),
		power:   logic.NewPowerMachine(cfg.PowerConfig()),

		classifiers: make(map[logic.ButtonID]*logic.Classifier, len(logic.Buttons)),
	}
	for _, b := range logic.Buttons {
		s.classifiers[b] = logic.NewClassifier(cfg.GestureConfig())
	}
	// A fresh session counts as activity so auto-reset and idle start
	// from boot, not from the zero time.
	s.st.RecordActivity(now)
	return s
}

// guardBoot reads the dock sensor before the link is brought up. It
// reports whether the device booted docked and must go straight back to
// sleep.
func (s *session) guardBoot(now time.Time) bool {
	docked, err := s.reader.Docked()
	if err != nil {
		slog.Warn("dock read failed at boot", "error", err)
		return false
	}
	_, pending := s.power.ObserveDock(&s.st, now, docked)
	if pending {
		slog.Info("booted docked, returning to sleep")
	}
	return pending
}

// step runs one poll cycle. The order is fixed: link, re-advertise,
// rotation, gestures, position, dock, idle.
func (s *session) step(now time.Time) outcome {
	batt := s.batteryPercent(now)

	// 1. Link status
	for _, ev := range s.adapter.Observe(&s.st, now, s.link.Status()) {
		if ev.Connected {
			slog.Info("link established", "position", s.st.Position())
		} else {
			slog.Info("link lost")
		}
		notes := s.mapper.Apply(&s.st, ev, batt)
		if len(notes) > 0 {
			s.tracker.CountReset()
		}
		s.send(now, notes)
	}

	// 2. Re-advertise after a loss
	if s.adapter.ReadvertiseDue(now) {
		if err := s.link.Advertise(); err != nil {
			slog.Warn("re-advertise failed", "error", err)
		} else {
			slog.Debug("advertising")
		}
	}

	// 3. Rotation
	if delta := s.reader.TakeRotation(); delta != 0 {
		s.st.Rotate(delta)
		s.st.ObserveActivity(logic.RotationDelta(now, delta))
	}

	// 4. Buttons
	s.reader.DrainEdges(func(e gpio.Edge) {
		if c, ok := s.classifiers[e.Button]; ok {
			c.OnEdge(e.At, e.Pressed)
		}
	})
	for _, b := range logic.Buttons {
		g, ok := s.classifiers[b].TakeGesture(now)
		if !ok {
			continue
		}
		ev := logic.ButtonGesture(now, b, g)
		slog.Info("gesture", "button", b, "gesture", g)
		s.tracker.CountGesture()
		s.st.ObserveActivity(ev)
		s.send(now, s.mapper.Apply(&s.st, ev, batt))
	}

	// 5. Position
	s.send(now, s.mapper.Flush(&s.st, batt))
	if notes := s.mapper.AutoReset(&s.st, now, batt); len(notes) > 0 {
		slog.Info("position auto-reset")
		s.tracker.CountReset()
		s.send(now, notes)
	}

	// 6. Dock
	if s.power.Due(now) {
		docked, err := s.reader.Docked()
		if err != nil {
			slog.Warn("dock read failed", "error", err)
		} else {
			ev, pending := s.power.ObserveDock(&s.st, now, docked)
			if ev != nil {
				slog.Info("dock changed", "docked", ev.Docked)
			}
			if pending {
				return s.enterSleep()
			}
		}
	}

	// 7. Idle candidate and status
	if s.power.CheckIdle(&s.st, now) {
		if s.power.Idle() {
			slog.Debug("idle")
		} else {
			slog.Debug("active")
		}
	}
	s.updateTracker()
	return outcomeContinue
}

// send delivers notifications in order, performing each blocking delay
// first. Failures are logged and counted, never retried.
func (s *session) send(now time.Time, notes []logic.Notification) {
	at := now
	for _, n := range notes {
		if n.Delay > 0 {
			s.sleep(n.Delay)
			at = at.Add(n.Delay)
		}
		rec := status.Notification{Time: at, Channel: n.Channel, Payload: n.Payload, Delivered: true}
		if err := s.link.Notify(n.Channel, n.Payload); err != nil {
			slog.Warn("notify failed", "channel", n.Channel, "payload", n.Payload, "error", err)
			rec.Delivered = false
			rec.Error = err.Error()
		} else {
			slog.Debug("notify", "channel", n.Channel, "payload", n.Payload)
		}
		s.tracker.Record(rec)
	}
}

// enterSleep persists the flag, tears down the link and marks the machine
// asleep. The caller releases the hardware and invokes the sleeper.
func (s *session) enterSleep() outcome {
	wasConnected := s.st.ConnectionActive
	if err := s.store.Save(wasConnected); err != nil {
		slog.Error("persist flag failed", "error", err)
	}
	if err := s.releaseLink(); err != nil {
		slog.Warn("link teardown failed", "error", err)
	}
	s.power.EnterSleep()
	slog.Info("entering sleep", "was_connected", wasConnected, "boot_guard", s.power.BootGuarded())
	s.updateTracker()
	return outcomeSleep
}

// releaseLink disconnects an active host and releases the link stack. Safe
// to call more than once, and before the link is up.
func (s *session) releaseLink() error {
	if s.link == nil || s.released {
		return nil
	}
	s.released = true

	var errs []error
	if s.st.ConnectionActive {
		if err := s.link.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect: %w", err))
		}
		s.st.ConnectionActive = false
	}
	if err := s.link.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close link: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("release errors: %v", errs)
	}
	return nil
}

func (s *session) batteryPercent(now time.Time) int {
	if s.batteryAt.IsZero() || now.Sub(s.batteryAt) >= batteryRefresh {
		s.batteryPct = s.battery.Percent()
		s.batteryAt = now
	}
	return s.batteryPct
}

func (s *session) updateTracker() {
	d := status.Device{
		Position:  s.st.Position(),
		Connected: s.st.ConnectionActive,
		Docked:    s.st.Docked,
		Power:     s.power.State(),
		Idle:      s.power.Idle(),
		Battery:   s.batteryPct,
	}
	if s.link != nil {
		d.Sessions = s.link.Status().Sessions
	}
	s.tracker.Update(d)
	if r, ok := s.reader.(edgeDropper); ok {
		s.tracker.SetDroppedEdges(int(r.DroppedEdges()))
	}
}

// runLoop drives the session from tick until it sleeps or a signal
// arrives.
func runLoop(s *session, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) outcome {
	for {
		select {
		case sg := <-sig:
			slog.Info("received signal, shutting down", "signal", sg)
			return outcomeShutdown

		case <-tick:
			if o := s.step(now()); o != outcomeContinue {
				return o
			}
		}
	}
}
