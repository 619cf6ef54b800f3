// Package logic contains the pure state machines of the peripheral: gesture
// classification, activity tracking, notification mapping, the power state
// machine and the link lifecycle adapter.
// This package has NO external dependencies (no GPIO, radio, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// ButtonID identifies a physical button. Each maps 1:1 to a pin.
type ButtonID uint8

const (
	EncoderButton ButtonID = iota
	Aux
	Gaming
	Media
	Chat
	Master
)

// Buttons lists every button in the order gestures are taken each cycle.
var Buttons = []ButtonID{EncoderButton, Aux, Gaming, Media, Chat, Master}

// String returns the name sent to the host for media buttons.
func (b ButtonID) String() string {
	switch b {
	case EncoderButton:
		return "Encoder"
	case Aux:
		return "Aux"
	case Gaming:
		return "Gaming"
	case Media:
		return "Media"
	case Chat:
		return "Chat"
	case Master:
		return "Master"
	default:
		return "Unknown"
	}
}

// IsMedia reports whether b is one of the five auxiliary media buttons.
func (b ButtonID) IsMedia() bool {
	return b >= Aux && b <= Master
}

// GestureKind is a classified button interaction.
type GestureKind uint8

const (
	SingleClick GestureKind = iota + 1
	DoubleClick
	MultiClick
	LongPressRelease
)

// String returns the payload sent on the encoder-gesture channel.
func (g GestureKind) String() string {
	switch g {
	case SingleClick:
		return "single click"
	case DoubleClick:
		return "double click"
	case MultiClick:
		return "multi click"
	case LongPressRelease:
		return "long press release"
	default:
		return "unknown"
	}
}

// EventKind tags the variant held by an Event.
type EventKind uint8

const (
	EventRotation EventKind = iota + 1
	EventGesture
	EventDock
	EventConnection
)

// Event is a single input event. Only the fields of its Kind are meaningful.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Delta     int32       // EventRotation
	Button    ButtonID    // EventGesture
	Gesture   GestureKind // EventGesture
	Docked    bool        // EventDock
	Connected bool        // EventConnection
}

// RotationDelta returns a rotation event.
func RotationDelta(t time.Time, delta int32) Event {
	return Event{Kind: EventRotation, Time: t, Delta: delta}
}

// ButtonGesture returns a gesture event.
func ButtonGesture(t time.Time, b ButtonID, g GestureKind) Event {
	return Event{Kind: EventGesture, Time: t, Button: b, Gesture: g}
}

// DockStateChanged returns a dock event.
func DockStateChanged(t time.Time, docked bool) Event {
	return Event{Kind: EventDock, Time: t, Docked: docked}
}

// ConnectionChanged returns a connection event.
func ConnectionChanged(t time.Time, connected bool) Event {
	return Event{Kind: EventConnection, Time: t, Connected: connected}
}

// Channel is a logical outbound notification channel.
type Channel uint8

const (
	ChannelPosition Channel = iota
	ChannelEncoderGesture
	ChannelMediaGesture
	ChannelMediaDouble
)

// Channels lists every notification channel.
var Channels = []Channel{ChannelPosition, ChannelEncoderGesture, ChannelMediaGesture, ChannelMediaDouble}

func (c Channel) String() string {
	switch c {
	case ChannelPosition:
		return "position"
	case ChannelEncoderGesture:
		return "button"
	case ChannelMediaGesture:
		return "media"
	case ChannelMediaDouble:
		return "media-double"
	default:
		return "unknown"
	}
}

// Notification is one outbound send.
type Notification struct {
	Channel Channel
	Payload string
	// Delay is a blocking wait performed before this send.
	Delay time.Duration
}

// LinkStatus is what the poll loop reads from the link collaborator.
type LinkStatus struct {
	Connected bool
	// Sessions counts link establishments since start; a change means a
	// new session began even if the loop never saw the gap.
	Sessions uint32
}

// DeviceState is the single owned state of a session. It is passed by
// reference into each component.
type DeviceState struct {
	ConnectionActive         bool
	PreviousConnectionActive bool
	LastActivityAt           time.Time
	Docked                   bool

	// Position is written only by Rotate and Reset.
	position int32
	// reported is the last position sent on the position channel.
	reported int32
}

// Position returns the cumulative encoder count.
func (s *DeviceState) Position() int32 {
	return s.position
}

// Rotate adds a rotation delta to the position.
func (s *DeviceState) Rotate(delta int32) {
	s.position += delta
}

// Reset zeroes the position.
func (s *DeviceState) Reset() {
	s.position = 0
	s.reported = 0
}
