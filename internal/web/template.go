package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/microwave/internal/status"
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
	"onOff": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
	"blank": func(s string) string {
		if s == "" {
			return "--:--"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Microwave</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.display { font-size: 2.5em; background: #111; color: #3f3; padding: 0.3em 0.6em; display: inline-block; min-width: 5em; text-align: right; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; font-size: 1em; padding: 0.4em 0.8em; margin: 0.2em; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Microwave<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<div id="display" class="display">{{blank .Oven.Display}}</div>

<p>
<button data-post="/api/buttons/power">Power</button>
<button data-post="/api/buttons/time">Time</button>
<button data-post="/api/buttons/startcancel">Start/Cancel</button>
<button data-post="/api/door/open">Open door</button>
<button data-post="/api/door/close">Close door</button>
</p>

<h2>State</h2>
<table>
<tr><th>Panel</th><td id="panel-state">{{.Oven.Panel}}</td></tr>
<tr><th>Power</th><td id="sel-power">{{.Oven.Selection.Power}} W</td></tr>
<tr><th>Time</th><td id="sel-seconds">{{.Oven.Selection.Seconds}} s</td></tr>
<tr><th>Light</th><td id="light" class="{{if .Oven.LightOn}}on{{else}}off{{end}}">{{onOff .Oven.LightOn}}</td></tr>
<tr><th>Power tube</th><td id="tube" class="{{if .Oven.TubeOn}}on{{else}}off{{end}}">{{onOff .Oven.TubeOn}}</td></tr>
{{if .Oven.Session}}<tr><th>Session</th><td>{{.Oven.Session.ID}}: {{.Oven.Session.Remaining}}/{{.Oven.Session.Duration}} s at {{.Oven.Session.Power}} W</td></tr>{{end}}
</table>

<h2>Sessions</h2>
<table>
<tr><th>Started</th><td>{{.Counts.Started}}</td></tr>
<tr><th>Completed</th><td>{{.Counts.Completed}}</td></tr>
<tr><th>Cancelled</th><td>{{.Counts.Cancelled}}</td></tr>
<tr><th>Ignored events</th><td>{{.Counts.Ignored}}</td></tr>
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
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Max power</th><td>{{.Config.MaxPower}} W</td></tr>
<tr><th>Door policy</th><td>{{.Config.DoorPolicy}}</td></tr>
<tr><th>GPIO</th><td>{{if .Config.GPIO}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/api/status">JSON</a> | <a href="/api/history">History</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) { dot.className = "live-dot " + cls; dot.title = title; }
  function onOff(el, on) { el.textContent = on ? "ON" : "OFF"; el.className = on ? "on" : "off"; }

  document.querySelectorAll("button[data-post]").forEach(function(b) {
    b.addEventListener("click", function() { fetch(b.dataset.post, { method: "POST" }); });
  });

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(m) {
      try {
        var msg = JSON.parse(m.data);
        if (msg.type !== "state") return;
        var o = msg.data;
        document.getElementById("display").textContent = o.display || "--:--";
        document.getElementById("panel-state").textContent = o.state;
        document.getElementById("sel-power").textContent = o.power + " W";
        document.getElementById("sel-seconds").textContent = o.seconds + " s";
        onOff(document.getElementById("light"), o.light_on);
        onOff(document.getElementById("tube"), o.tube_on);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
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
