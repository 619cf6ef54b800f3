package link

import (
	"errors"
	"sync"
	"testing"

	"github.com/sweeney/tappie/internal/logic"
)

func TestSignalsSessions(t *testing.T) {
	var s Signals

	if st := s.Status(); st.Connected || st.Sessions != 0 {
		t.Fatalf("expected zero status, got %+v", st)
	}

	s.Established()
	if st := s.Status(); !st.Connected || st.Sessions != 1 {
		t.Errorf("after connect: expected connected session 1, got %+v", st)
	}

	s.Lost()
	if st := s.Status(); st.Connected || st.Sessions != 1 {
		t.Errorf("after loss: expected disconnected session 1, got %+v", st)
	}

	s.Established()
	if st := s.Status(); !st.Connected || st.Sessions != 2 {
		t.Errorf("after reconnect: expected connected session 2, got %+v", st)
	}
}

func TestSignalsConcurrentWriters(t *testing.T) {
	var s Signals
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Established()
				s.Lost()
			}
		}()
	}
	for i := 0; i < 1000; i++ {
		s.Status()
	}
	wg.Wait()

	if st := s.Status(); st.Sessions != 800 {
		t.Errorf("expected 800 sessions, got %d", st.Sessions)
	}
}

func TestChannelUUID(t *testing.T) {
	tests := []struct {
		ch   logic.Channel
		want string
	}{
		{logic.ChannelPosition, "a9c8c7b4-fb55-4d27-99e4-2c14b5812546"},
		{logic.ChannelEncoderGesture, "0c2f5fbe-c20f-49ec-8c7c-ce0c9358e574"},
		{logic.ChannelMediaGesture, "9ff67916-665f-4489-b257-46d118b1e5eb"},
		{logic.ChannelMediaDouble, "66f1ab02-c93d-44fe-8ca9-5e8bdbb2fe80"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.ch.String(), func(t *testing.T) {
			got := ChannelUUID(tt.ch)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if got == ServiceUUID {
				t.Error("characteristic must not reuse the service uuid")
			}
		})
		seen[tt.want] = true
	}
	if len(seen) != len(logic.Channels) {
		t.Errorf("expected %d distinct uuids, got %d", len(logic.Channels), len(seen))
	}
}

func TestTopics(t *testing.T) {
	topics := NewTopics("desk")

	tests := []struct {
		ch   logic.Channel
		want string
	}{
		{logic.ChannelPosition, "tappie/desk/position"},
		{logic.ChannelEncoderGesture, "tappie/desk/button"},
		{logic.ChannelMediaGesture, "tappie/desk/media"},
		{logic.ChannelMediaDouble, "tappie/desk/media-double"},
	}
	for _, tt := range tests {
		if got := topics.Channel(tt.ch); got != tt.want {
			t.Errorf("channel %s: expected %s, got %s", tt.ch, tt.want, got)
		}
	}
	if got := topics.Availability(); got != "tappie/desk/availability" {
		t.Errorf("unexpected availability topic: %s", got)
	}
}

func TestNewMQTTRequiresBroker(t *testing.T) {
	if _, err := NewMQTT(MQTTConfig{Name: "desk"}); err == nil {
		t.Error("expected error for empty broker")
	}
}

func TestFakeLinkNotConnected(t *testing.T) {
	f := NewFakeLink()

	err := f.Notify(logic.ChannelPosition, "1 100")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if len(f.Sent) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(f.Sent))
	}
}

func TestFakeLinkRecords(t *testing.T) {
	f := NewFakeLink()
	f.Connect()

	if err := f.Notify(logic.ChannelPosition, "3 80"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Notify(logic.ChannelMediaGesture, "Chat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.Payloads(logic.ChannelPosition); len(got) != 1 || got[0] != "3 80" {
		t.Errorf("unexpected position payloads: %v", got)
	}
	if got := f.Payloads(logic.ChannelMediaGesture); len(got) != 1 || got[0] != "Chat" {
		t.Errorf("unexpected media payloads: %v", got)
	}
}

func TestFakeLinkNotifyError(t *testing.T) {
	f := NewFakeLink()
	f.Connect()
	f.NotifyError = errors.New("radio busy")

	if err := f.Notify(logic.ChannelPosition, "1 100"); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestFakeLinkDisconnect(t *testing.T) {
	f := NewFakeLink()
	f.Connect()

	if err := f.Disconnect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Disconnected != 1 {
		t.Errorf("expected 1 disconnect, got %d", f.Disconnected)
	}
	if f.Status().Connected {
		t.Error("expected disconnected after Disconnect")
	}
}

func TestFakeLinkSatisfiesLink(t *testing.T) {
	var _ Link = NewFakeLink()
	var _ Link = (*MQTT)(nil)
	var _ Link = (*BLE)(nil)
}
