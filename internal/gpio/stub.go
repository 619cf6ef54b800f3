//go:build !linux

package gpio

import (
	"context"
	"errors"
)

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(cfg Config) (*RealReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// TakeRotation is not implemented on non-Linux platforms.
func (r *RealReader) TakeRotation() int32 {
	return 0
}

// DrainEdges is not implemented on non-Linux platforms.
func (r *RealReader) DrainEdges(fn func(Edge)) {}

// Docked is not implemented on non-Linux platforms.
func (r *RealReader) Docked() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// DroppedEdges is not implemented on non-Linux platforms.
func (r *RealReader) DroppedEdges() uint32 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// WaitUndocked is not implemented on non-Linux platforms.
func WaitUndocked(ctx context.Context, chip string, pin int) error {
	return errors.New("gpio: not supported")
}
