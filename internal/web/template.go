package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tappie/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"powerClass": func(s string) string {
		switch s {
		case "ACTIVE":
			return "on"
		case "PENDING_SLEEP", "ASLEEP":
			return "off"
		}
		return "unknown"
	},
	"clock": func(t time.Time) string {
		return t.UTC().Format("15:04:05.000")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Tappie {{.Config.Name}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.dropped { color: #888; text-decoration: line-through; }
</style>
</head>
<body>
<h1>Tappie {{.Config.Name}}</h1>

<h2>Device</h2>
<table>
<tr><th>Position</th><td id="position">{{.Position}}</td></tr>
<tr><th>Power</th><td id="power" class="{{powerClass (printf "%s" .Power)}}">{{if .Power}}{{.Power}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Docked</th><td>{{if .Docked}}yes{{else}}no{{end}}</td></tr>
<tr><th>Idle</th><td>{{if .Idle}}yes{{else}}no{{end}}</td></tr>
<tr><th>Battery</th><td>{{.Battery}}%</td></tr>
</table>

<h2>Link</h2>
<table>
<tr><th>Transport</th><td>{{.Config.Transport}}</td></tr>
<tr><th>Host</th><td class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{if .Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Sessions</th><td>{{.Sessions}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Sent</th><td>{{.Counters.Sent}}</td></tr>
<tr><th>Dropped</th><td>{{.Counters.Dropped}}</td></tr>
<tr><th>Gestures</th><td>{{.Counters.Gestures}}</td></tr>
<tr><th>Resets</th><td>{{.Counters.Resets}}</td></tr>
<tr><th>Lost edges</th><td>{{.Counters.DroppedEdges}}</td></tr>
</table>

<h2>Recent Notifications</h2>
{{if .History}}<table>
{{range .History}}<tr class="{{if not .Delivered}}dropped{{end}}"><th>{{clock .Time}}</th><td>{{.Channel}} {{printf "%q" .Payload}}{{if .Error}} ({{.Error}}){{end}}</td></tr>
{{end}}</table>{{else}}<p>none</p>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{if .Boot.Reason}}{{.Boot.Reason}} #{{.Boot.Count}}{{if .Boot.WasConnected}} (was connected){{end}}{{else}}pending{{end}}</td></tr>
<tr><th>Sleep mode</th><td>{{.Config.SleepMode}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Click window</th><td>{{.Config.ClickWindowMs}}ms</td></tr>
<tr><th>Long press</th><td>{{.Config.LongPressMs}}ms</td></tr>
<tr><th>Settle</th><td>{{.Config.SettleMs}}ms</td></tr>
<tr><th>Auto reset</th><td>{{.Config.AutoResetMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/history.json">history</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
