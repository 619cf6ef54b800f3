package power

import (
	"context"
	"fmt"

	"github.com/sweeney/tappie/internal/gpio"
)

// Sleep modes.
const (
	ModeWait     = "wait"
	ModePowerOff = "poweroff"
)

// Sleeper halts the device until the dock wake source fires. A nil return
// means the device woke and the caller must reinitialize from scratch.
type Sleeper interface {
	Sleep(ctx context.Context) error
}

// WaitSleeper blocks on the dock line rising. All hardware and link
// resources must be released before calling Sleep.
type WaitSleeper struct {
	Chip    string
	DockPin int
}

// Sleep blocks until the device is lifted from the dock or ctx is done.
func (s WaitSleeper) Sleep(ctx context.Context) error {
	if err := gpio.WaitUndocked(ctx, s.Chip, s.DockPin); err != nil {
		return fmt.Errorf("wait for undock: %w", err)
	}
	return nil
}

// PowerOffSleeper powers the board off. The hardware wake on the dock line
// restarts it, and the next boot finds the flag file.
type PowerOffSleeper struct{}

// Sleep does not return on success.
func (PowerOffSleeper) Sleep(ctx context.Context) error {
	return powerOff()
}

// NewSleeper returns the sleeper for mode.
func NewSleeper(mode, chip string, dockPin int) (Sleeper, error) {
	switch mode {
	case ModeWait:
		return WaitSleeper{Chip: chip, DockPin: dockPin}, nil
	case ModePowerOff:
		return PowerOffSleeper{}, nil
	}
	return nil, fmt.Errorf("unknown sleep mode %q", mode)
}

// FakeSleeper records sleeps for test assertions.
type FakeSleeper struct {
	// Slept counts Sleep calls.
	Slept int

	// Err, if set, is returned by Sleep.
	Err error
}

// Sleep counts the call and returns immediately.
func (f *FakeSleeper) Sleep(ctx context.Context) error {
	f.Slept++
	return f.Err
}
