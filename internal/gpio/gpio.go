// Package gpio provides input sampling with hardware abstraction.
// The real implementation uses the Linux GPIO character device; its event
// handlers run on their own goroutines and hand off to the poll loop through
// lock-free cells only.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"github.com/sweeney/tappie/internal/logic"
)

// Reader samples the encoder, the buttons and the dock sensor.
type Reader interface {
	// TakeRotation returns the detents turned since the last call and
	// clears the count. Positive is clockwise.
	TakeRotation() int32

	// DrainEdges calls fn for each button edge captured since the last
	// call, oldest first.
	DrainEdges(fn func(Edge))

	// Docked reads the dock sensor. The raw line is active-low:
	// low = docked.
	Docked() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Edge is a single debounced button level change.
type Edge struct {
	Button  logic.ButtonID
	Pressed bool
	At      time.Time
}

// Pins holds BCM line offsets.
type Pins struct {
	EncoderA      int `yaml:"encoder_a"`
	EncoderB      int `yaml:"encoder_b"`
	EncoderButton int `yaml:"encoder_button"`
	Aux           int `yaml:"aux"`
	Gaming        int `yaml:"gaming"`
	Media         int `yaml:"media"`
	Chat          int `yaml:"chat"`
	Master        int `yaml:"master"`
	Dock          int `yaml:"dock"`
}

// DefaultPins is the wiring of the reference board.
var DefaultPins = Pins{
	EncoderA:      17,
	EncoderB:      27,
	EncoderButton: 22,
	Aux:           5,
	Gaming:        6,
	Media:         13,
	Chat:          19,
	Master:        26,
	Dock:          16,
}

// Button returns the line offset of a button.
func (p Pins) Button(b logic.ButtonID) int {
	switch b {
	case logic.EncoderButton:
		return p.EncoderButton
	case logic.Aux:
		return p.Aux
	case logic.Gaming:
		return p.Gaming
	case logic.Media:
		return p.Media
	case logic.Chat:
		return p.Chat
	case logic.Master:
		return p.Master
	}
	return -1
}

// All returns every configured offset, for duplicate checks.
func (p Pins) All() []int {
	return []int{p.EncoderA, p.EncoderB, p.EncoderButton, p.Aux, p.Gaming, p.Media, p.Chat, p.Master, p.Dock}
}

// Config configures a RealReader.
type Config struct {
	Chip           string
	Pins           Pins
	StepsPerDetent int
	// Debounce is applied by the kernel to button lines.
	Debounce time.Duration
}
