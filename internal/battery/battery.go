// Package battery provides the battery-percent query reported alongside
// every position notification. The value is treated as an opaque sensor
// reading; no calibration happens here.
package battery

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is the capacity attribute of a typical UPS HAT fuel gauge.
const DefaultPath = "/sys/class/power_supply/battery/capacity"

// Reader returns the battery charge in percent, 0 to 100.
type Reader interface {
	Percent() int
}

// Fixed always reports the same value. Used when no gauge is fitted.
type Fixed int

// Percent returns f clamped to 0..100.
func (f Fixed) Percent() int {
	return clamp(int(f))
}

// Sysfs reads a power_supply capacity attribute.
// Not safe for concurrent use; owned by the poll loop.
type Sysfs struct {
	path   string
	last   int
	warned bool
}

// NewSysfs creates a reader for path. Until the first good read it
// reports 100.
func NewSysfs(path string) *Sysfs {
	return &Sysfs{path: path, last: 100}
}

// Percent reads the gauge. On error it keeps the last good value and logs
// once.
func (s *Sysfs) Percent() int {
	v, err := readCapacity(s.path)
	if err != nil {
		if !s.warned {
			slog.Warn("battery: read failed, keeping last value", "path", s.path, "last", s.last, "error", err)
			s.warned = true
		}
		return s.last
	}
	s.warned = false
	s.last = clamp(v)
	return s.last
}

func readCapacity(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse capacity: %w", err)
	}
	return v, nil
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
