// Package status provides a thread-safe view of the node's state for the
// HTTP status page and MQTT lifecycle payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/logic"
)

// NetworkInfo contains host network state, as reported by the environment.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains node configuration for display.
type Config struct {
	TickMs           int64
	DebounceMs       int64
	BlinkMs          int64
	SensorIntervalMs int64
	HeartbeatMs      int64
	Wireless         string
	Bridge           string
	Broker           string
	HTTPAddr         string
	WSBroker         string // websocket URL for live browser updates, empty = disabled
}

// ConfigFrom builds the display configuration from node settings. The
// websocket broker is passed already resolved.
func ConfigFrom(cfg *config.Config, wsBroker string) Config {
	return Config{
		TickMs:           cfg.Timing.Tick.Milliseconds(),
		DebounceMs:       cfg.Timing.Debounce.Milliseconds(),
		BlinkMs:          cfg.Timing.Blink.Milliseconds(),
		SensorIntervalMs: cfg.Timing.SensorInterval.Milliseconds(),
		HeartbeatMs:      cfg.MQTT.Heartbeat.Milliseconds(),
		Wireless:         cfg.Wireless.Device,
		Bridge:           cfg.Bridge.Device,
		Broker:           cfg.MQTT.Broker,
		HTTPAddr:         cfg.HTTPAddr,
		WSBroker:         wsBroker,
	}
}

// RelayCounts tallies traffic through the control loop.
type RelayCounts struct {
	WirelessIn int // bytes received from the app
	BridgeIn   int // bytes received from the camera bridge
	Forwarded  int // app bytes passed to the bridge
	Replies    int // reply lines sent to the app
}

// Snapshot is a point-in-time view of the node. It is a value type and
// safe to use after the lock is released.
type Snapshot struct {
	Mode          logic.Mode
	Armed         bool
	Outputs       logic.Frame
	Starting      bool // startup animation in progress
	Reading       logic.Reading
	Relay         RelayCounts
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the node started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable node state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      logic.ModeOff,
			Outputs:   logic.FrameOff,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the state machine, the last output frame and event counts.
// Called from the loop on every tick.
func (t *Tracker) Update(st logic.State, out logic.Frame, starting bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Mode = st.Mode
	t.snap.Armed = st.Armed
	t.snap.Outputs = out
	t.snap.Starting = starting
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetReading records the latest valid climate reading.
func (t *Tracker) SetReading(r logic.Reading) {
	t.mu.Lock()
	t.snap.Reading = r
	t.mu.Unlock()
}

// SetRelay records traffic counters.
func (t *Tracker) SetRelay(r RelayCounts) {
	t.mu.Lock()
	t.snap.Relay = r
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy of the node state with Now set to the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
