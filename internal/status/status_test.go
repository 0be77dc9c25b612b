package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		TickMs:           10,
		DebounceMs:       50,
		BlinkMs:          300,
		SensorIntervalMs: 2000,
		HeartbeatMs:      900000,
		Wireless:         "/dev/ttyS0@9600",
		Bridge:           "/dev/ttyUSB0@115200",
		Broker:           "tcp://127.0.0.1:1883",
		HTTPAddr:         ":8080",
	}
}

func TestNewTrackerStartsOff(t *testing.T) {
	tr := NewTracker(start, testConfig())
	snap := tr.Snapshot()

	require.Equal(t, logic.ModeOff, snap.Mode)
	require.False(t, snap.Armed)
	require.Equal(t, logic.FrameOff, snap.Outputs)
	require.Equal(t, start, snap.StartTime)
	require.Equal(t, testConfig(), snap.Config)
	require.False(t, snap.Reading.Valid)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, testConfig())
	counts := logic.EventCounts{SystemOn: 2, SystemOff: 1, AlarmOn: 3}
	out := logic.Frame{Buzzer: true, Primary: true, Secondary: true}

	tr.Update(logic.State{Mode: logic.ModeOn, Armed: true}, out, false, counts)
	tr.SetRelay(RelayCounts{WirelessIn: 10, BridgeIn: 4, Forwarded: 3, Replies: 5})
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	require.Equal(t, logic.ModeOn, snap.Mode)
	require.True(t, snap.Armed)
	require.Equal(t, out, snap.Outputs)
	require.Equal(t, counts, snap.Counts)
	require.Equal(t, 4, snap.Relay.BridgeIn)
	require.True(t, snap.MQTTConnected)
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, testConfig())
	snap := tr.Snapshot()

	tr.Update(logic.State{Mode: logic.ModeOn}, logic.Frame{}, true, logic.EventCounts{SystemOn: 1})
	require.Equal(t, logic.ModeOff, snap.Mode)
	require.Zero(t, snap.Counts.SystemOn)
}

func TestSnapshotNowAndUptime(t *testing.T) {
	tr := NewTracker(time.Now().Add(-90*time.Second), testConfig())
	snap := tr.Snapshot()

	require.WithinDuration(t, time.Now(), snap.Now, time.Second)
	require.InDelta(t, 90, snap.Uptime().Seconds(), 1)
}

func TestFormatJSON(t *testing.T) {
	tr := NewTracker(start, testConfig())
	tr.Update(logic.State{Mode: logic.ModeOn, Armed: true}, logic.Frame{Buzzer: true, Primary: true}, false,
		logic.EventCounts{SystemOn: 1, AlarmOn: 1})
	tr.SetReading(logic.Reading{Temperature: 21.5, Humidity: 40, SampledAt: start.Add(time.Minute), Valid: true})

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &sj))

	s := sj.Status
	require.Equal(t, "ON", s.Mode)
	require.True(t, s.Armed)
	require.Equal(t, OutputsJSON{Buzzer: true, Red: true}, s.Outputs)
	require.NotNil(t, s.Climate)
	require.Equal(t, 21.5, s.Climate.Temperature)
	require.Equal(t, "2026-01-01T00:01:00Z", s.Climate.SampledAt)
	require.Equal(t, CountsJSON{SystemOn: 1, AlarmOn: 1}, s.Counts)
	require.Equal(t, "2026-01-01T00:00:00Z", s.StartTime)
	require.Equal(t, int64(2000), s.Config.SensorIntervalMs)
	require.Empty(t, s.Event)
	require.Nil(t, s.Network)
}

func TestFormatJSONOmitsInvalidClimate(t *testing.T) {
	tr := NewTracker(start, testConfig())
	data := FormatJSON(tr.Snapshot())
	require.NotContains(t, string(data), "climate")
	require.Contains(t, string(data), `"mode": "OFF"`)
}

func TestFormatJSONUnknownMode(t *testing.T) {
	require.Contains(t, string(FormatJSON(Snapshot{})), `"mode": "UNKNOWN"`)
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(start, testConfig())
	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(data, &sj))
	require.Equal(t, "SHUTDOWN", sj.Status.Event)
	require.Equal(t, "SIGTERM", sj.Status.Reason)

	data = FormatStatusEvent(tr.Snapshot(), "STARTUP", "")
	require.NotContains(t, string(data), "reason")
	require.NotContains(t, string(data), "\n")
}

func TestFormatJSONWithNetwork(t *testing.T) {
	tr := NewTracker(start, testConfig())
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.5", Status: "connected", SSID: "home"})

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &sj))
	require.NotNil(t, sj.Status.Network)
	require.Equal(t, "10.0.0.5", sj.Status.Network.IP)
	require.Equal(t, "home", sj.Status.Network.SSID)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tr.Update(logic.State{Mode: logic.ModeOn, Armed: j%2 == 0}, logic.Frame{}, false, logic.EventCounts{AlarmOn: j})
				tr.SetMQTTConnected(j%2 == 0)
				tr.SetRelay(RelayCounts{WirelessIn: j})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Default()
	got := ConfigFrom(cfg, "ws://127.0.0.1:9001")

	require.Equal(t, Config{
		TickMs:           10,
		DebounceMs:       50,
		BlinkMs:          300,
		SensorIntervalMs: 2000,
		HeartbeatMs:      900000,
		Wireless:         "/dev/ttyS0",
		Bridge:           "/dev/ttyUSB0",
		Broker:           "tcp://127.0.0.1:1883",
		HTTPAddr:         ":8080",
		WSBroker:         "ws://127.0.0.1:9001",
	}, got)
}
