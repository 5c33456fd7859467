package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/motorctl/internal/status"
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
	"phaseOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Motor Speed Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.stalled { color: red; font-weight: bold; }
.moving { color: green; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Motor Speed Controller{{if .Config.DryRun}} (simulated){{end}}</h1>

<h2>Control</h2>
<table>
{{if .Running}}<tr><th>Setpoint</th><td id="setpoint">{{printf "%.2f" .Sample.Setpoint}}</td></tr>
<tr><th>Speed</th><td id="speed" class="{{if .Sample.Stalled}}stalled{{else}}moving{{end}}">{{printf "%.2f" .Sample.Speed}}{{if .Sample.Stalled}} (stalled){{end}}</td></tr>
<tr><th>Command</th><td id="command">{{printf "%.3f" .Sample.Command}}</td></tr>
<tr><th>Integral</th><td>{{printf "%.3f" .Sample.Integral}}</td></tr>
<tr><th>Direction</th><td>{{.Sample.Direction}}</td></tr>
<tr><th>Phase</th><td>{{phaseOrUnknown (printf "%s" .Sample.Phase)}}</td></tr>
<tr><th>Steps</th><td>{{.Sample.Steps}}</td></tr>
<tr><th>Edges accepted / rejected</th><td>{{.Sample.Accepted}} / {{.Sample.Rejected}}</td></tr>{{else}}<tr><th>State</th><td class="unknown">starting</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Gains</th><td>kp={{.Config.Kp}} ki={{.Config.Ki}} kd={{.Config.Kd}}</td></tr>
<tr><th>Setpoint</th><td>{{.Config.SetpointHigh}} / {{.Config.SetpointLow}}{{if eq .Config.HoldMs 0}} (fixed){{else}} every {{.Config.HoldMs}}ms{{end}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Report</th><td>{{.Config.ReportMs}}ms</td></tr>
<tr><th>Telemetry</th><td>{{.Config.TelemetryMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Running() methods but the template reads fields.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		Running bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Running:  snap.Running(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
