//go:build linux

package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/tappie/internal/logic"
)

// RealReader reads inputs from actual hardware using Linux GPIO character device.
type RealReader struct {
	encoder *gpiocdev.Lines
	buttons *gpiocdev.Lines
	dock    *gpiocdev.Line

	pinA, pinB int
	quad       *Quadrature
	levelA     bool
	levelB     bool
	byOffset   map[int]logic.ButtonID

	rotation RotationCell
	edges    EdgeRing
}

// NewRealReader requests all input lines. Lines use pull-ups; buttons and
// the dock sensor are active-low.
func NewRealReader(cfg Config) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	// Requested lines stay valid after the chip is closed.
	defer chip.Close()

	r := &RealReader{
		pinA:     cfg.Pins.EncoderA,
		pinB:     cfg.Pins.EncoderB,
		quad:     NewQuadrature(cfg.StepsPerDetent),
		levelA:   true,
		levelB:   true,
		byOffset: make(map[int]logic.ButtonID, len(logic.Buttons)),
	}
	offsets := make([]int, 0, len(logic.Buttons))
	for _, b := range logic.Buttons {
		off := cfg.Pins.Button(b)
		r.byOffset[off] = b
		offsets = append(offsets, off)
	}

	r.encoder, err = chip.RequestLines([]int{r.pinA, r.pinB},
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.onEncoderEvent))
	if err != nil {
		return nil, fmt.Errorf("request encoder pins %d,%d: %w", r.pinA, r.pinB, err)
	}

	r.buttons, err = chip.RequestLines(offsets,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(cfg.Debounce),
		gpiocdev.WithEventHandler(r.onButtonEvent))
	if err != nil {
		r.encoder.Close()
		return nil, fmt.Errorf("request button pins %v: %w", offsets, err)
	}

	r.dock, err = chip.RequestLine(cfg.Pins.Dock, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		r.buttons.Close()
		r.encoder.Close()
		return nil, fmt.Errorf("request dock pin %d: %w", cfg.Pins.Dock, err)
	}

	return r, nil
}

// onEncoderEvent runs on the gpiocdev watcher goroutine. It only touches
// decoder state it owns and the rotation cell.
func (r *RealReader) onEncoderEvent(evt gpiocdev.LineEvent) {
	high := evt.Type == gpiocdev.LineEventRisingEdge
	switch evt.Offset {
	case r.pinA:
		r.levelA = high
	case r.pinB:
		r.levelB = high
	}
	if d := r.quad.Update(r.levelA, r.levelB); d != 0 {
		r.rotation.Add(d)
	}
}

// onButtonEvent runs on the gpiocdev watcher goroutine.
func (r *RealReader) onButtonEvent(evt gpiocdev.LineEvent) {
	b, ok := r.byOffset[evt.Offset]
	if !ok {
		return
	}
	r.edges.Push(Edge{
		Button:  b,
		Pressed: evt.Type == gpiocdev.LineEventFallingEdge,
		At:      time.Now(),
	})
}

// TakeRotation returns and clears the detents since the last call.
func (r *RealReader) TakeRotation() int32 {
	return r.rotation.Take()
}

// DrainEdges delivers queued button edges, oldest first.
func (r *RealReader) DrainEdges(fn func(Edge)) {
	r.edges.Drain(fn)
}

// Docked returns true when the reed switch pulls the dock line low.
func (r *RealReader) Docked() (bool, error) {
	v, err := r.dock.Value()
	if err != nil {
		return false, fmt.Errorf("read dock pin: %w", err)
	}
	return v == 0, nil
}

// DroppedEdges returns how many button edges were lost to a full ring.
func (r *RealReader) DroppedEdges() uint32 {
	return r.edges.Dropped()
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error

	if r.encoder != nil {
		if err := r.encoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder pins: %w", err))
		}
	}
	if r.buttons != nil {
		if err := r.buttons.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pins: %w", err))
		}
	}
	if r.dock != nil {
		if err := r.dock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dock pin: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// WaitUndocked blocks until the dock line goes high (device lifted from the
// dock) or ctx is done. It is the wake source while asleep.
func WaitUndocked(ctx context.Context, chip string, pin int) error {
	rising := make(chan struct{}, 1)
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			select {
			case rising <- struct{}{}:
			default:
			}
		}))
	if err != nil {
		return fmt.Errorf("request dock pin %d: %w", pin, err)
	}
	defer line.Close()

	// Already lifted while we were shutting down.
	if v, err := line.Value(); err == nil && v == 1 {
		return nil
	}

	select {
	case <-rising:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
