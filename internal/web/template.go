package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/homesec-node/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>HomeSecurity Node</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.armed { color: red; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>HomeSecurity Node{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>State</h2>
<table>
<tr><th>System</th><td id="mode" class="{{if eq (stateOrUnknown (printf "%s" .Mode)) "ON"}}on{{else if eq (stateOrUnknown (printf "%s" .Mode)) "OFF"}}off{{else}}unknown{{end}}">{{stateOrUnknown (printf "%s" .Mode)}}{{if .Starting}} (starting){{end}}</td></tr>
<tr><th>Alarm</th><td id="armed" class="{{if .Armed}}armed{{else}}off{{end}}">{{if .Armed}}ARMED{{else}}disarmed{{end}}</td></tr>
<tr><th>Buzzer</th><td>{{onOff .Outputs.Buzzer}}</td></tr>
<tr><th>Red LED</th><td>{{onOff .Outputs.Primary}}</td></tr>
<tr><th>Green LED</th><td>{{onOff .Outputs.Secondary}}</td></tr>
</table>

<h2>Climate</h2>
<table>
{{if .Reading.Valid}}<tr><th>Temperature</th><td>{{printf "%.1f" .Reading.Temperature}} C</td></tr>
<tr><th>Humidity</th><td>{{printf "%.1f" .Reading.Humidity}} %</td></tr>
<tr><th>Sampled</th><td>{{.Reading.SampledAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{else}}<tr><th>Reading</th><td class="unknown">none yet</td></tr>{{end}}
</table>

<h2>Links</h2>
<table>
<tr><th>Wireless</th><td>{{.Config.Wireless}}</td></tr>
<tr><th>Bridge</th><td>{{.Config.Bridge}}</td></tr>
<tr><th>App bytes in</th><td>{{.Relay.WirelessIn}}</td></tr>
<tr><th>Forwarded to bridge</th><td>{{.Relay.Forwarded}}</td></tr>
<tr><th>Bridge bytes in</th><td>{{.Relay.BridgeIn}}</td></tr>
<tr><th>Replies</th><td>{{.Relay.Replies}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>System ON</th><td>{{.Counts.SystemOn}}</td></tr>
<tr><th>System OFF</th><td>{{.Counts.SystemOff}}</td></tr>
<tr><th>Alarm ON</th><td>{{.Counts.AlarmOn}}</td></tr>
<tr><th>Alarm OFF</th><td>{{.Counts.AlarmOff}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Blink</th><td>{{.Config.BlinkMs}}ms</td></tr>
<tr><th>Sensor cache</th><td>{{.Config.SensorIntervalMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "homesec/node/events";
  var dot = document.getElementById("live-dot");
  var modeEl = document.getElementById("mode");
  var armedEl = document.getElementById("armed");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.node) {
        modeEl.textContent = msg.node.mode;
        modeEl.className = msg.node.mode === "ON" ? "on" : "off";
        armedEl.textContent = msg.node.armed ? "ARMED" : "disarmed";
        armedEl.className = msg.node.armed ? "armed" : "off";
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// The template needs Uptime as a field, not a method.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
