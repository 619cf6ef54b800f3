// Package status provides a thread-safe status tracker for the tappie daemon.
// It is written by the poll loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tappie/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Name          string
	Transport     string
	SleepMode     string
	HTTPPort      string
	PollMs        int64
	ClickWindowMs int64
	LongPressMs   int64
	SettleMs      int64
	AutoResetMs   int64
}

// Device is the per-tick view of the device written by the poll loop.
type Device struct {
	Position  int32
	Connected bool
	Sessions  uint32
	Docked    bool
	Power     logic.PowerState
	Idle      bool
	Battery   int
}

// Counters are cumulative since the daemon started.
type Counters struct {
	Sent         int
	Dropped      int
	Gestures     int
	Resets       int
	DroppedEdges int
}

// Boot describes the most recent initialization.
type Boot struct {
	Reason       string
	WasConnected bool
	Count        int
	At           time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Device
	Counters  Counters
	Boot      Boot
	History   []Notification
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	history *history
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		history: newHistory(historySize),
	}
}

// Update sets the device view. Called from the poll loop on every tick.
func (t *Tracker) Update(d Device) {
	t.mu.Lock()
	t.snap.Device = d
	t.mu.Unlock()
}

// Booted records a new initialization and bumps the boot count.
func (t *Tracker) Booted(at time.Time, reason string, wasConnected bool) {
	t.mu.Lock()
	t.snap.Boot = Boot{
		Reason:       reason,
		WasConnected: wasConnected,
		Count:        t.snap.Boot.Count + 1,
		At:           at,
	}
	t.mu.Unlock()
}

// Record adds one notification attempt to the counters and history.
func (t *Tracker) Record(n Notification) {
	t.mu.Lock()
	if n.Delivered {
		t.snap.Counters.Sent++
	} else {
		t.snap.Counters.Dropped++
	}
	t.history.push(n)
	t.mu.Unlock()
}

// CountGesture counts one classified gesture.
func (t *Tracker) CountGesture() {
	t.mu.Lock()
	t.snap.Counters.Gestures++
	t.mu.Unlock()
}

// CountReset counts one position reset.
func (t *Tracker) CountReset() {
	t.mu.Lock()
	t.snap.Counters.Resets++
	t.mu.Unlock()
}

// SetDroppedEdges sets the number of button edges lost by the reader.
func (t *Tracker) SetDroppedEdges(n int) {
	t.mu.Lock()
	t.snap.Counters.DroppedEdges = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.History = t.history.items()
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
