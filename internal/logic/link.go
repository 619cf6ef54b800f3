package logic

import "time"

// LinkAdapter turns link collaborator status into connection events and
// schedules re-advertising after a loss.
type LinkAdapter struct {
	readvertiseDelay time.Duration
	sessions         uint32
	readvertise      bool
	readvertiseAt    time.Time
}

// NewLinkAdapter creates an adapter that re-advertises delay after a loss.
func NewLinkAdapter(delay time.Duration) *LinkAdapter {
	return &LinkAdapter{readvertiseDelay: delay}
}

// Observe compares the collaborator status with st and returns the
// connection events to apply, oldest first. It sets ConnectionActive and
// PreviousConnectionActive.
func (a *LinkAdapter) Observe(st *DeviceState, now time.Time, status LinkStatus) []Event {
	st.PreviousConnectionActive = st.ConnectionActive

	newSession := status.Sessions != a.sessions
	a.sessions = status.Sessions

	var events []Event
	if st.ConnectionActive && (!status.Connected || newSession) {
		st.ConnectionActive = false
		events = append(events, ConnectionChanged(now, false))
		a.schedule(now)
	}
	if status.Connected && !st.ConnectionActive {
		st.ConnectionActive = true
		a.readvertise = false
		events = append(events, ConnectionChanged(now, true))
	}
	if newSession && !status.Connected && len(events) == 0 {
		// A whole session came and went between two polls.
		a.schedule(now)
	}
	return events
}

func (a *LinkAdapter) schedule(now time.Time) {
	a.readvertise = true
	a.readvertiseAt = now.Add(a.readvertiseDelay)
}

// ReadvertiseDue reports, once, that the settle delay after a loss has
// passed and advertising should restart.
func (a *LinkAdapter) ReadvertiseDue(now time.Time) bool {
	if !a.readvertise || now.Before(a.readvertiseAt) {
		return false
	}
	a.readvertise = false
	return true
}
