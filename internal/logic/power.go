package logic

import "time"

// PowerState is the state of the power machine.
type PowerState string

const (
	PowerActive       PowerState = "ACTIVE"
	PowerPendingSleep PowerState = "PENDING_SLEEP"
	PowerAsleep       PowerState = "ASLEEP"
)

// PowerConfig holds the timing of the power machine.
type PowerConfig struct {
	// DockPoll is the slow period at which the dock sensor is read.
	DockPoll time.Duration
	// DockDebounce is how long a new dock level must hold to be accepted.
	DockDebounce time.Duration
	// Idle is the inactivity after which the device is an idle candidate.
	Idle time.Duration
}

// DefaultPowerConfig returns the default power timing.
func DefaultPowerConfig() PowerConfig {
	return PowerConfig{
		DockPoll:     500 * time.Millisecond,
		DockDebounce: 500 * time.Millisecond,
		Idle:         10 * time.Second,
	}
}

// dockChannel tracks debounce state for the dock sensor.
type dockChannel struct {
	// Current stable (debounced) level
	Stable bool
	// Pending level during debounce
	Pending bool
	// Whether a pending level is being observed
	HasPending bool
	// Time when pending level was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// PowerMachine governs Active → PendingSleep → Asleep.
type PowerMachine struct {
	cfg       PowerConfig
	state     PowerState
	dock      dockChannel
	lastCheck time.Time
	bootGuard bool
	idle      bool
}

// NewPowerMachine creates a machine in the Active state.
func NewPowerMachine(cfg PowerConfig) *PowerMachine {
	return &PowerMachine{cfg: cfg, state: PowerActive}
}

// State returns the current power state.
func (p *PowerMachine) State() PowerState {
	return p.state
}

// BootGuarded reports whether sleep was entered from the first dock sample.
func (p *PowerMachine) BootGuarded() bool {
	return p.bootGuard
}

// Due reports whether the dock sensor should be read at now.
func (p *PowerMachine) Due(now time.Time) bool {
	return !p.dock.Baselined || now.Sub(p.lastCheck) >= p.cfg.DockPoll
}

// ObserveDock feeds one dock sensor reading. It returns a dock event when
// the debounced level changed, and reports whether the machine moved to
// PendingSleep on this call.
//
// The first reading after boot is taken as the baseline without debounce;
// if it says docked the machine goes straight to PendingSleep.
func (p *PowerMachine) ObserveDock(st *DeviceState, now time.Time, docked bool) (*Event, bool) {
	p.lastCheck = now

	if !p.dock.Baselined {
		p.dock.Stable = docked
		p.dock.Baselined = true
		st.Docked = docked
		if docked && p.state == PowerActive {
			p.bootGuard = true
			p.state = PowerPendingSleep
			return nil, true
		}
		return nil, false
	}

	if docked == p.dock.Stable {
		// No change from stable level, clear any pending
		p.dock.HasPending = false
		return nil, false
	}

	if !p.dock.HasPending || p.dock.Pending != docked {
		p.dock.Pending = docked
		p.dock.HasPending = true
		p.dock.PendingSince = now
		return nil, false
	}

	if now.Sub(p.dock.PendingSince) < p.cfg.DockDebounce {
		return nil, false
	}

	p.dock.Stable = docked
	p.dock.HasPending = false
	st.Docked = docked
	ev := DockStateChanged(now, docked)

	if docked && p.state == PowerActive {
		p.state = PowerPendingSleep
		return &ev, true
	}
	return &ev, false
}

// EnterSleep marks the machine asleep. Called once link teardown and the
// persisted flag write are done.
func (p *PowerMachine) EnterSleep() {
	p.state = PowerAsleep
}

// CheckIdle updates the idle-candidate flag and reports whether it changed.
func (p *PowerMachine) CheckIdle(st *DeviceState, now time.Time) bool {
	idle := st.InactiveSince(now, p.cfg.Idle)
	if idle == p.idle {
		return false
	}
	p.idle = idle
	return true
}

// Idle reports whether the device is currently an idle candidate.
func (p *PowerMachine) Idle() bool {
	return p.idle
}
