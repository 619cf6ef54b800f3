package logic

import "time"

// GestureConfig holds the timing windows of a Classifier.
type GestureConfig struct {
	// Debounce is how long a level must hold before it is accepted.
	Debounce time.Duration
	// ClickWindow is the maximum release-to-press gap that continues a
	// click sequence.
	ClickWindow time.Duration
	// LongPress is the minimum hold that turns a press into a long press.
	LongPress time.Duration
}

// DefaultGestureConfig returns the usual debounce-library defaults.
func DefaultGestureConfig() GestureConfig {
	return GestureConfig{
		Debounce:    50 * time.Millisecond,
		ClickWindow: 400 * time.Millisecond,
		LongPress:   800 * time.Millisecond,
	}
}

type gesturePhase uint8

const (
	phaseIdle gesturePhase = iota
	phaseDown
	phaseUp // released, waiting to see if another press follows
)

// Classifier turns the edges of one button into gestures.
// A gesture is only produced on release or window expiry, never while the
// button is held.
type Classifier struct {
	cfg GestureConfig

	// Raw level as reported by edges, and when it was last changed.
	raw   bool
	rawAt time.Time
	// Debounced level.
	stable bool

	phase   gesturePhase
	clicks  int
	downAt  time.Time
	upAt    time.Time
	pending GestureKind
}

// NewClassifier creates a classifier with the given windows.
func NewClassifier(cfg GestureConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// OnEdge feeds one raw edge. pressed is the logical level (active-low
// already inverted). Edges must be fed in time order.
func (c *Classifier) OnEdge(at time.Time, pressed bool) {
	c.settle(at)
	if pressed == c.raw {
		return
	}
	c.raw = pressed
	c.rawAt = at
}

// TakeGesture resolves expired windows at now and returns the pending
// gesture, if any. The pending gesture is cleared.
func (c *Classifier) TakeGesture(now time.Time) (GestureKind, bool) {
	c.settle(now)
	if c.phase == phaseUp && now.Sub(c.upAt) > c.cfg.ClickWindow {
		c.resolve()
	}
	if c.pending == 0 {
		return 0, false
	}
	g := c.pending
	c.pending = 0
	return g, true
}

// Pressed returns the debounced level.
func (c *Classifier) Pressed() bool {
	return c.stable
}

// settle accepts the raw level once it has held for the debounce window.
func (c *Classifier) settle(now time.Time) {
	if c.raw == c.stable || now.Sub(c.rawAt) < c.cfg.Debounce {
		return
	}
	c.stable = c.raw
	if c.stable {
		c.press(c.rawAt)
	} else {
		c.release(c.rawAt)
	}
}

func (c *Classifier) press(at time.Time) {
	if c.phase == phaseUp && at.Sub(c.upAt) > c.cfg.ClickWindow {
		// Window already expired but nobody polled; close it first.
		c.resolve()
	}
	if c.phase == phaseIdle {
		c.clicks = 0
	}
	c.phase = phaseDown
	c.downAt = at
}

func (c *Classifier) release(at time.Time) {
	if c.phase != phaseDown {
		return
	}
	if at.Sub(c.downAt) >= c.cfg.LongPress {
		// Long press wins over any clicks already counted in this sequence.
		c.pending = LongPressRelease
		c.clicks = 0
		c.phase = phaseIdle
		return
	}
	c.clicks++
	c.phase = phaseUp
	c.upAt = at
}

func (c *Classifier) resolve() {
	switch {
	case c.clicks == 1:
		c.pending = SingleClick
	case c.clicks == 2:
		c.pending = DoubleClick
	case c.clicks >= 3:
		c.pending = MultiClick
	}
	c.clicks = 0
	c.phase = phaseIdle
}
