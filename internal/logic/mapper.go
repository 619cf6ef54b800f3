package logic

import (
	"strconv"
	"time"
)

// ClearPayload is the resting value of the gesture channels.
const ClearPayload = "0"

// MapperConfig holds the timing of the Mapper.
type MapperConfig struct {
	// Settle is the wait between a gesture payload and its clear.
	Settle time.Duration
	// AutoReset is the inactivity after which a nonzero position is reset.
	AutoReset time.Duration
}

// DefaultMapperConfig returns the default mapper timing.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Settle:    100 * time.Millisecond,
		AutoReset: 5 * time.Second,
	}
}

// Mapper converts device state changes into outbound notifications.
// It never produces anything while the link is inactive; there is no
// queueing.
type Mapper struct {
	cfg MapperConfig
}

// NewMapper creates a Mapper.
func NewMapper(cfg MapperConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// Apply maps one event. Rotation and dock events produce nothing here:
// rotation is reported by Flush, dock is handled by the power machine.
func (m *Mapper) Apply(st *DeviceState, ev Event, battery int) []Notification {
	switch ev.Kind {
	case EventConnection:
		if !ev.Connected || !st.ConnectionActive {
			return nil
		}
		// Each session starts from zero: push what accumulated, then reset.
		notes := []Notification{PositionNotification(st.Position(), battery)}
		return append(notes, m.Reset(st, battery)...)
	case EventGesture:
		if !st.ConnectionActive {
			return nil
		}
		return m.gesture(ev.Button, ev.Gesture)
	}
	return nil
}

func (m *Mapper) gesture(b ButtonID, g GestureKind) []Notification {
	if b == EncoderButton {
		return m.pulse(ChannelEncoderGesture, g.String())
	}
	switch g {
	case SingleClick:
		return m.pulse(ChannelMediaGesture, b.String())
	case DoubleClick:
		// Not cleared: the value stays until the next notification.
		return []Notification{{Channel: ChannelMediaDouble, Payload: b.String()}}
	}
	return nil
}

func (m *Mapper) pulse(ch Channel, payload string) []Notification {
	return []Notification{
		{Channel: ch, Payload: payload},
		{Channel: ch, Payload: ClearPayload, Delay: m.cfg.Settle},
	}
}

// Flush reports a changed position while connected.
func (m *Mapper) Flush(st *DeviceState, battery int) []Notification {
	if !st.ConnectionActive || st.Position() == st.reported {
		return nil
	}
	st.reported = st.Position()
	return []Notification{PositionNotification(st.reported, battery)}
}

// AutoReset resets a nonzero position after the inactivity timeout.
// While disconnected the position keeps accumulating for the next session.
func (m *Mapper) AutoReset(st *DeviceState, now time.Time, battery int) []Notification {
	if !st.ConnectionActive || st.Position() == 0 || !st.InactiveSince(now, m.cfg.AutoReset) {
		return nil
	}
	return m.Reset(st, battery)
}

// Reset zeroes the position and reports it. Every call reports.
func (m *Mapper) Reset(st *DeviceState, battery int) []Notification {
	st.Reset()
	if !st.ConnectionActive {
		return nil
	}
	return []Notification{ResetNotification(battery)}
}

// PositionNotification formats "<position> <battery>".
func PositionNotification(position int32, battery int) Notification {
	return Notification{
		Channel: ChannelPosition,
		Payload: strconv.FormatInt(int64(position), 10) + " " + strconv.Itoa(battery),
	}
}

// ResetNotification formats "reset <battery>".
func ResetNotification(battery int) Notification {
	return Notification{
		Channel: ChannelPosition,
		Payload: "reset " + strconv.Itoa(battery),
	}
}
