package node

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/status"
)

func parseStatus(t *testing.T, payload []byte) status.StatusInner {
	t.Helper()
	var parsed status.StatusJSON
	require.NoError(t, json.Unmarshal(payload, &parsed))
	return parsed.Status
}

func TestStartupEvent(t *testing.T) {
	b := newBench(t, nil)
	b.node.Startup(b.now)

	require.Equal(t, []string{EventStartup}, b.pub.SystemEventNames())
	require.True(t, b.pub.SystemEvents[0].Retained)

	inner := parseStatus(t, b.pub.SystemPayloads[0])
	require.Equal(t, EventStartup, inner.Event)
	require.Equal(t, "OFF", inner.Mode)
	require.False(t, inner.Armed)
	require.Equal(t, status.OutputsJSON{Green: true}, inner.Outputs)
	require.Equal(t, "tcp://broker:1883", inner.MQTT.Broker)
}

func TestShutdownEvent(t *testing.T) {
	b := newBench(t, nil)
	b.press()
	b.send("a")

	b.node.Shutdown(b.now, "SIGTERM")

	require.Equal(t, logic.FrameOff, b.outputs.Current())
	require.Equal(t, []string{EventShutdown}, b.pub.SystemEventNames())
	require.True(t, b.pub.SystemEvents[0].Retained)

	inner := parseStatus(t, b.pub.SystemPayloads[0])
	require.Equal(t, EventShutdown, inner.Event)
	require.Equal(t, "SIGTERM", inner.Reason)
	require.Equal(t, "ON", inner.Mode)
	require.True(t, inner.Armed)
	require.Equal(t, status.CountsJSON{SystemOn: 1, AlarmOn: 1}, inner.Counts)
}

func TestStartupThenShutdown(t *testing.T) {
	b := newBench(t, nil)
	b.node.Startup(b.now)
	b.step(time.Second)
	b.node.Shutdown(b.now, "SIGINT")

	require.Equal(t, []string{EventStartup, EventShutdown}, b.pub.SystemEventNames())
	require.Equal(t, "SIGINT", b.pub.SystemEvents[1].Reason)
}

func TestShutdownPublishFailureIsLogged(t *testing.T) {
	b := newBench(t, nil)
	b.pub.PublishSystemError = errors.New("broker down")

	b.node.Shutdown(b.now, "SIGTERM")
	require.Empty(t, b.pub.SystemEvents)
	require.Equal(t, logic.FrameOff, b.outputs.Current())
}

func TestSystemEventWithoutTracker(t *testing.T) {
	b := newBenchHeld(t)
	b.node.Startup(t0)

	require.Equal(t, []string{EventStartup}, b.pub.SystemEventNames())
	require.JSONEq(t, `{"system":{"timestamp":"2026-01-01T12:00:00Z","event":"STARTUP"}}`,
		string(b.pub.SystemPayloads[0]))
}

func TestHeartbeat(t *testing.T) {
	network := &status.NetworkInfo{Type: "wifi", IP: "192.168.1.100", SSID: "MyNetwork"}
	b := newBench(t, func(o *Options) {
		o.Heartbeat = 500 * time.Millisecond
		o.NonblockingStartup = true
	})
	b.node.deps.Network = func() *status.NetworkInfo { return network }

	b.step(490 * time.Millisecond)
	require.Empty(t, b.pub.SystemEvents)

	b.press()
	require.Equal(t, []string{EventHeartbeat}, b.pub.SystemEventNames())
	require.False(t, b.pub.SystemEvents[0].Retained)

	b.step(500 * time.Millisecond)
	require.Equal(t, []string{EventHeartbeat, EventHeartbeat}, b.pub.SystemEventNames())

	inner := parseStatus(t, b.pub.SystemPayloads[1])
	require.Equal(t, EventHeartbeat, inner.Event)
	require.Equal(t, 1, inner.Counts.SystemOn)
	require.NotNil(t, inner.Network)
	require.Equal(t, "wifi", inner.Network.Type)
	require.Equal(t, "MyNetwork", inner.Network.SSID)
}

func TestHeartbeatDisabled(t *testing.T) {
	b := newBench(t, nil)
	b.step(5 * time.Second)
	require.Empty(t, b.pub.SystemEvents)
}
