package link

import (
	"sync/atomic"

	"github.com/sweeney/tappie/internal/logic"
)

// Signals carries link establishment and loss from backend goroutines to
// the poll loop. Writers never block.
type Signals struct {
	connected atomic.Bool
	sessions  atomic.Uint32
}

// Established records that a host connected.
func (s *Signals) Established() {
	// Count first so a reader seeing connected also sees the new session.
	s.sessions.Add(1)
	s.connected.Store(true)
}

// Lost records that the host went away.
func (s *Signals) Lost() {
	s.connected.Store(false)
}

// Status returns a snapshot for the poll loop.
func (s *Signals) Status() logic.LinkStatus {
	connected := s.connected.Load()
	return logic.LinkStatus{
		Connected: connected,
		Sessions:  s.sessions.Load(),
	}
}
