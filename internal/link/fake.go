package link

import (
	"github.com/sweeney/tappie/internal/logic"
)

// Sent is one notification recorded by FakeLink.
type Sent struct {
	Channel logic.Channel
	Payload string
}

// FakeLink records notifications for test assertions.
type FakeLink struct {
	Signals

	// Sent contains every notification that was delivered.
	Sent []Sent

	// Advertised counts Advertise calls.
	Advertised int

	// Disconnected counts Disconnect calls.
	Disconnected int

	// Closed tracks if Close was called.
	Closed bool

	// NotifyError, if set, will be returned by Notify.
	NotifyError error
}

// NewFakeLink creates a FakeLink with no host connected.
func NewFakeLink() *FakeLink {
	return &FakeLink{}
}

// Connect simulates a host connecting.
func (f *FakeLink) Connect() {
	f.Established()
}

// Drop simulates the host going away.
func (f *FakeLink) Drop() {
	f.Lost()
}

// Notify records the notification.
func (f *FakeLink) Notify(ch logic.Channel, payload string) error {
	if f.NotifyError != nil {
		return f.NotifyError
	}
	if !f.Status().Connected {
		return ErrNotConnected
	}
	f.Sent = append(f.Sent, Sent{Channel: ch, Payload: payload})
	return nil
}

// Advertise counts the call.
func (f *FakeLink) Advertise() error {
	f.Advertised++
	return nil
}

// Disconnect drops the host.
func (f *FakeLink) Disconnect() error {
	f.Disconnected++
	f.Lost()
	return nil
}

// Close marks the link as closed.
func (f *FakeLink) Close() error {
	f.Closed = true
	return nil
}

// Payloads returns the payloads sent on ch, in order.
func (f *FakeLink) Payloads(ch logic.Channel) []string {
	var out []string
	for _, s := range f.Sent {
		if s.Channel == ch {
			out = append(out, s.Payload)
		}
	}
	return out
}

// Reset clears recorded notifications.
func (f *FakeLink) Reset() {
	f.Sent = nil
	f.Advertised = 0
	f.Disconnected = 0
	f.Closed = false
	f.NotifyError = nil
}
