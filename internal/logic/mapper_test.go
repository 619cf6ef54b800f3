package logic

import (
	"testing"
	"time"
)

func connectedState() *DeviceState {
	return &DeviceState{ConnectionActive: true}
}

func payloads(notes []Notification) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Payload
	}
	return out
}

func TestMapperFlushReportsSumOfDeltas(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := connectedState()

	var last []Notification
	for _, d := range []int32{3, -1, 5, -2} {
		st.Rotate(d)
		if notes := m.Flush(st, 80); len(notes) > 0 {
			last = notes
		}
	}

	if len(last) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(last))
	}
	if last[0].Channel != ChannelPosition {
		t.Errorf("expected position channel, got %s", last[0].Channel)
	}
	if last[0].Payload != "5 80" {
		t.Errorf("expected payload %q, got %q", "5 80", last[0].Payload)
	}
}

func TestMapperFlushUnchangedIsSilent(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := connectedState()
	st.Rotate(2)
	m.Flush(st, 50)

	if notes := m.Flush(st, 50); len(notes) != 0 {
		t.Errorf("expected no notification for unchanged position, got %v", payloads(notes))
	}
}

func TestMapperDisconnectedProducesNothing(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := &DeviceState{}

	st.Rotate(4)
	if notes := m.Flush(st, 50); len(notes) != 0 {
		t.Errorf("flush: expected nothing while disconnected, got %v", payloads(notes))
	}
	if st.Position() != 4 {
		t.Errorf("expected position to keep accumulating, got %d", st.Position())
	}

	notes := m.Apply(st, ButtonGesture(t0, Master, SingleClick), 50)
	if len(notes) != 0 {
		t.Errorf("gesture: expected nothing while disconnected, got %v", payloads(notes))
	}
}

func TestMapperResetIsIdempotentButAlwaysReports(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := connectedState()
	st.Rotate(7)

	first := m.Reset(st, 42)
	if st.Position() != 0 {
		t.Errorf("expected position 0 after first reset, got %d", st.Position())
	}
	second := m.Reset(st, 42)
	if st.Position() != 0 {
		t.Errorf("expected position 0 after second reset, got %d", st.Position())
	}

	if len(first) != 1 || first[0].Payload != "reset 42" {
		t.Errorf("first reset: got %v", payloads(first))
	}
	if len(second) != 1 || second[0].Payload != "reset 42" {
		t.Errorf("second reset: got %v", payloads(second))
	}
}

func TestMapperEncoderGesturePulse(t *testing.T) {
	m := NewMapper(MapperConfig{Settle: 100 * time.Millisecond, AutoReset: 5 * time.Second})
	st := connectedState()

	tests := []struct {
		g    GestureKind
		want string
	}{
		{SingleClick, "single click"},
		{DoubleClick, "double click"},
		{MultiClick, "multi click"},
		{LongPressRelease, "long press release"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			notes := m.Apply(st, ButtonGesture(t0, EncoderButton, tt.g), 50)
			if len(notes) != 2 {
				t.Fatalf("expected 2 notifications, got %d", len(notes))
			}
			if notes[0].Channel != ChannelEncoderGesture || notes[1].Channel != ChannelEncoderGesture {
				t.Errorf("expected both on encoder gesture channel, got %s/%s", notes[0].Channel, notes[1].Channel)
			}
			if notes[0].Payload != tt.want {
				t.Errorf("payload: got %q, want %q", notes[0].Payload, tt.want)
			}
			if notes[0].Delay != 0 {
				t.Errorf("first send should not wait, got %v", notes[0].Delay)
			}
			if notes[1].Payload != "0" {
				t.Errorf("clear payload: got %q, want %q", notes[1].Payload, "0")
			}
			if notes[1].Delay != 100*time.Millisecond {
				t.Errorf("clear delay: got %v, want 100ms", notes[1].Delay)
			}
		})
	}
}

func TestMapperMediaButtons(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := connectedState()

	for _, b := range []ButtonID{Aux, Gaming, Media, Chat, Master} {
		t.Run(b.String(), func(t *testing.T) {
			single := m.Apply(st, ButtonGesture(t0, b, SingleClick), 50)
			if len(single) != 2 {
				t.Fatalf("single: expected 2 notifications, got %d", len(single))
			}
			if single[0].Channel != ChannelMediaGesture || single[0].Payload != b.String() {
				t.Errorf("single: got %s %q", single[0].Channel, single[0].Payload)
			}
			if single[1].Payload != "0" {
				t.Errorf("single clear: got %q", single[1].Payload)
			}

			double := m.Apply(st, ButtonGesture(t0, b, DoubleClick), 50)
			if len(double) != 1 {
				t.Fatalf("double: expected 1 notification (no clear), got %d", len(double))
			}
			if double[0].Channel != ChannelMediaDouble || double[0].Payload != b.String() {
				t.Errorf("double: got %s %q", double[0].Channel, double[0].Payload)
			}

			if notes := m.Apply(st, ButtonGesture(t0, b, LongPressRelease), 50); len(notes) != 0 {
				t.Errorf("long press on media button: expected nothing, got %v", payloads(notes))
			}
		})
	}
}

func TestMapperConnectPushesThenResets(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := &DeviceState{}
	st.Rotate(6)

	st.ConnectionActive = true
	notes := m.Apply(st, ConnectionChanged(t0, true), 77)

	got := payloads(notes)
	if len(got) != 2 || got[0] != "6 77" || got[1] != "reset 77" {
		t.Fatalf("expected [6 77, reset 77], got %v", got)
	}
	if st.Position() != 0 {
		t.Errorf("expected position 0 after connect, got %d", st.Position())
	}
	if notes := m.Flush(st, 77); len(notes) != 0 {
		t.Errorf("expected no flush after connect push, got %v", payloads(notes))
	}
}

func TestMapperAutoReset(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := connectedState()

	st.Rotate(2)
	st.RecordActivity(t0)
	m.Flush(st, 60)

	if notes := m.AutoReset(st, t0.Add(4900*time.Millisecond), 60); len(notes) != 0 {
		t.Errorf("expected no reset before timeout, got %v", payloads(notes))
	}

	notes := m.AutoReset(st, t0.Add(5*time.Second), 60)
	if len(notes) != 1 || notes[0].Payload != "reset 60" {
		t.Fatalf("expected [reset 60], got %v", payloads(notes))
	}
	if st.Position() != 0 {
		t.Errorf("expected position 0, got %d", st.Position())
	}

	// Position already zero: nothing more.
	if notes := m.AutoReset(st, t0.Add(20*time.Second), 60); len(notes) != 0 {
		t.Errorf("expected no reset at zero, got %v", payloads(notes))
	}
}

func TestMapperAutoResetSkippedWhileDisconnected(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := &DeviceState{}
	st.Rotate(3)
	st.RecordActivity(t0)

	m.AutoReset(st, t0.Add(time.Minute), 60)
	if st.Position() != 3 {
		t.Errorf("expected position kept for next session, got %d", st.Position())
	}
}

func TestMapperScenarioRotateThenIdle(t *testing.T) {
	m := NewMapper(DefaultMapperConfig())
	st := connectedState()
	var sent []string

	st.Rotate(3)
	st.RecordActivity(t0)
	st.Rotate(-1)
	st.RecordActivity(t0.Add(20 * time.Millisecond))
	sent = append(sent, payloads(m.Flush(st, 90))...)

	if st.Position() != 2 {
		t.Errorf("expected position 2, got %d", st.Position())
	}

	sent = append(sent, payloads(m.AutoReset(st, t0.Add(5020*time.Millisecond), 90))...)

	want := []string{"2 90", "reset 90"}
	if len(sent) != len(want) {
		t.Fatalf("expected %v, got %v", want, sent)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("notification %d: got %q, want %q", i, sent[i], want[i])
		}
	}
	if st.Position() != 0 {
		t.Errorf("expected position 0, got %d", st.Position())
	}
}
