package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Name          string             `json:"name"`
	Position      int32              `json:"position"`
	Link          LinkJSON           `json:"link"`
	Docked        bool               `json:"docked"`
	Power         string             `json:"power"`
	Idle          bool               `json:"idle"`
	Battery       int                `json:"battery_percent"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	StartTime     string             `json:"start_time"`
	Timestamp     string             `json:"timestamp"`
	Boot          BootJSON           `json:"boot"`
	Counters      CountersJSON       `json:"counters"`
	History       []NotificationJSON `json:"history"`
	Config        ConfigJSON         `json:"config"`
}

// LinkJSON reports the wireless link.
type LinkJSON struct {
	Transport string `json:"transport"`
	Connected bool   `json:"connected"`
	Sessions  uint32 `json:"sessions"`
}

// BootJSON is the JSON representation of the last boot.
type BootJSON struct {
	Reason       string `json:"reason"`
	WasConnected bool   `json:"was_connected"`
	Count        int    `json:"count"`
	At           string `json:"at,omitempty"`
}

// CountersJSON is the JSON representation of counters.
type CountersJSON struct {
	Sent         int `json:"sent"`
	Dropped      int `json:"dropped"`
	Gestures     int `json:"gestures"`
	Resets       int `json:"resets"`
	DroppedEdges int `json:"dropped_edges"`
}

// NotificationJSON is one history entry.
type NotificationJSON struct {
	Time      string `json:"time"`
	Channel   string `json:"channel"`
	Payload   string `json:"payload"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SleepMode     string `json:"sleep_mode"`
	HTTPPort      string `json:"http_port"`
	PollMs        int64  `json:"poll_ms"`
	ClickWindowMs int64  `json:"click_window_ms"`
	LongPressMs   int64  `json:"long_press_ms"`
	SettleMs      int64  `json:"settle_ms"`
	AutoResetMs   int64  `json:"auto_reset_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	power := string(snap.Power)
	if power == "" {
		power = "UNKNOWN"
	}

	inner := StatusInner{
		Name:     snap.Config.Name,
		Position: snap.Position,
		Link: LinkJSON{
			Transport: snap.Config.Transport,
			Connected: snap.Connected,
			Sessions:  snap.Sessions,
		},
		Docked:        snap.Docked,
		Power:         power,
		Idle:          snap.Idle,
		Battery:       snap.Battery,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Boot: BootJSON{
			Reason:       snap.Boot.Reason,
			WasConnected: snap.Boot.WasConnected,
			Count:        snap.Boot.Count,
		},
		Counters: CountersJSON{
			Sent:         snap.Counters.Sent,
			Dropped:      snap.Counters.Dropped,
			Gestures:     snap.Counters.Gestures,
			Resets:       snap.Counters.Resets,
			DroppedEdges: snap.Counters.DroppedEdges,
		},
		History: make([]NotificationJSON, 0, len(snap.History)),
		Config: ConfigJSON{
			SleepMode:     snap.Config.SleepMode,
			HTTPPort:      snap.Config.HTTPPort,
			PollMs:        snap.Config.PollMs,
			ClickWindowMs: snap.Config.ClickWindowMs,
			LongPressMs:   snap.Config.LongPressMs,
			SettleMs:      snap.Config.SettleMs,
			AutoResetMs:   snap.Config.AutoResetMs,
		},
	}
	if !snap.Boot.At.IsZero() {
		inner.Boot.At = snap.Boot.At.UTC().Format(time.RFC3339)
	}
	inner.History = appendHistory(inner.History, snap.History)
	return inner
}

func appendHistory(dst []NotificationJSON, history []Notification) []NotificationJSON {
	for _, n := range history {
		dst = append(dst, NotificationJSON{
			Time:      n.Time.UTC().Format(time.RFC3339Nano),
			Channel:   n.Channel.String(),
			Payload:   n.Payload,
			Delivered: n.Delivered,
			Error:     n.Error,
		})
	}
	return dst
}

// HistoryJSON is the response of the history endpoint.
type HistoryJSON struct {
	Sent    int                `json:"sent"`
	Dropped int                `json:"dropped"`
	History []NotificationJSON `json:"history"`
}

// FormatHistoryJSON returns the recent notifications, oldest first.
func FormatHistoryJSON(snap Snapshot) []byte {
	h := HistoryJSON{
		Sent:    snap.Counters.Sent,
		Dropped: snap.Counters.Dropped,
		History: appendHistory(make([]NotificationJSON, 0, len(snap.History)), snap.History),
	}
	data, _ := json.MarshalIndent(h, "", "  ")
	return data
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
