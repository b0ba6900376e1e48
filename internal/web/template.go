package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/grid-monitor/internal/status"
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
	"relay": relayWord,
	"upper": func(s string) string {
		if s == "" {
			return "-"
		}
		return strings.ToUpper(s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Grid Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.online { color: green; font-weight: bold; }
.offline { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Grid Monitor <small>{{.Config.DeviceID}}</small></h1>

<h2>State</h2>
<table>
<tr><th>Grid</th><td id="grid-state" class="{{.Grid}}">{{upper (printf "%s" .Grid)}}</td></tr>
<tr><th>Pending</th><td>{{upper (printf "%s" .Pending)}} ({{.Stability}}/{{.Config.MinStable}})</td></tr>
<tr><th>Relay</th><td>{{relay .RelayOn}} ({{.Mode}})</td></tr>
<tr><th>Reading</th><td>{{.Reading}}</td></tr>
<tr><th>History mean</th><td>{{.HistoryMean}} over {{len .History}}</td></tr>
<tr><th>Thresholds</th><td>high {{.Config.High}} / low {{.Config.Low}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>State</th><td class="{{if eq .Connectivity "connected"}}connected{{else}}disconnected{{end}}">{{.Connectivity}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Last publish</th><td>{{if .LastPublish.IsZero}}never{{else}}{{.LastPublish.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>State changes</th><td>{{.Counts.StateChanges}}</td></tr>
<tr><th>Commands</th><td>{{.Counts.Commands}}</td></tr>
<tr><th>Unknown commands</th><td>{{.Counts.Unknown}}</td></tr>
<tr><th>Publishes</th><td>{{.Counts.Publishes}}</td></tr>
<tr><th>Cycle errors</th><td>{{.Counts.CycleErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Cycle</th><td>{{.Config.CycleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sensor</th><td>{{if .Config.Simulated}}simulated{{else}}adc{{end}}, {{.Config.Samples}} samples, trim {{.Config.Trim}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
