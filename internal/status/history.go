package status

import (
	"time"

	"github.com/sweeney/tappie/internal/logic"
)

// historySize is the number of notifications kept for display.
const historySize = 32

// Notification is one outbound send attempt.
type Notification struct {
	Time      time.Time
	Channel   logic.Channel
	Payload   string
	Delivered bool
	Error     string
}

// history is a fixed-capacity FIFO of recent notifications. When full the
// oldest entry is overwritten.
// Not safe for concurrent use; the Tracker holds its lock.
type history struct {
	buf      []Notification
	capacity int
	head     int // next write position
	count    int
}

func newHistory(capacity int) *history {
	return &history{
		buf:      make([]Notification, capacity),
		capacity: capacity,
	}
}

func (h *history) push(n Notification) {
	h.buf[h.head] = n
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// items returns a copy of the entries, oldest first.
func (h *history) items() []Notification {
	if h.count == 0 {
		return nil
	}

	result := make([]Notification, h.count)
	// Oldest item is at (head - count) mod capacity
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		result[i] = h.buf[(start+i)%h.capacity]
	}
	return result
}

func (h *history) len() int {
	return h.count
}
