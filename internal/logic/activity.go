package logic

import "time"

// RecordActivity stamps the last activity time.
func (s *DeviceState) RecordActivity(now time.Time) {
	s.LastActivityAt = now
}

// InactiveSince reports whether no activity has been recorded for at least d.
func (s *DeviceState) InactiveSince(now time.Time, d time.Duration) bool {
	return now.Sub(s.LastActivityAt) >= d
}

// ObserveActivity records activity for qualifying events: a nonzero
// rotation or any gesture on the encoder button. Media buttons do not count.
// It reports whether the event qualified.
func (s *DeviceState) ObserveActivity(ev Event) bool {
	switch ev.Kind {
	case EventRotation:
		if ev.Delta == 0 {
			return false
		}
	case EventGesture:
		if ev.Button != EncoderButton {
			return false
		}
	default:
		return false
	}
	s.RecordActivity(ev.Time)
	return true
}
