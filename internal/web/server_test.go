package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/status"
)

func newTestServer(t *testing.T, cfg status.Config) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, cfg)
	srv := New(context.Background(), ":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func defaultConfig() status.Config {
	return status.Config{
		TickMs:      10,
		DebounceMs:  50,
		HeartbeatMs: 900000,
		Broker:      "tcp://127.0.0.1:1883",
		HTTPAddr:    ":8080",
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.Update(logic.State{Mode: logic.ModeOn, Armed: true}, logic.Frame{Buzzer: true}, false,
		logic.EventCounts{SystemOn: 1, AlarmOn: 2, AlarmOff: 1})
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal([]byte(body), &sj))
	require.Equal(t, "ON", sj.Status.Mode)
	require.True(t, sj.Status.Armed)
	require.True(t, sj.Status.Outputs.Buzzer)
	require.Equal(t, 2, sj.Status.Counts.AlarmOn)
	require.True(t, sj.Status.MQTT.Connected)
	require.Equal(t, "tcp://127.0.0.1:1883", sj.Status.MQTT.Broker)
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.Update(logic.State{Mode: logic.ModeOn, Armed: true}, logic.Frame{}, true, logic.EventCounts{})
	tr.SetReading(logic.Reading{Temperature: 23.4, Humidity: 51, SampledAt: time.Now(), Valid: true})

	for _, path := range []string{"/", "/index.html"} {
		resp, body := get(t, ts.URL+path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		require.Contains(t, body, "HomeSecurity Node")
		require.Contains(t, body, "ARMED")
		require.Contains(t, body, "(starting)")
		require.Contains(t, body, "23.4 C")
		require.NotContains(t, body, "mqtt.min.js")
	}
}

func TestIndexPageWithoutReading(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())
	_, body := get(t, ts.URL+"/")
	require.Contains(t, body, "none yet")
	require.Contains(t, body, "disarmed")
	require.Contains(t, body, `id="mode" class="off">OFF`)
}

func TestIndexPageLiveScript(t *testing.T) {
	cfg := defaultConfig()
	cfg.WSBroker = "ws://127.0.0.1:9001"
	ts, _ := newTestServer(t, cfg)

	_, body := get(t, ts.URL+"/")
	require.Contains(t, body, "mqtt.min.js")
	require.Contains(t, body, "homesec/node/events")
	require.Contains(t, body, "live-dot")
}

func TestIndexPageBrokerDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Broker = ""
	cfg.HeartbeatMs = 0
	ts, _ := newTestServer(t, cfg)

	_, body := get(t, ts.URL+"/")
	require.Contains(t, body, "<tr><th>Broker</th><td>disabled</td></tr>")
	require.Contains(t, body, "<tr><th>Heartbeat</th><td>disabled</td></tr>")
}

func TestUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())
	resp, _ := get(t, ts.URL+"/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
