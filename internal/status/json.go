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
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Mode          string       `json:"mode"`
	Armed         bool         `json:"armed"`
	Starting      bool         `json:"starting,omitempty"`
	Outputs       OutputsJSON  `json:"outputs"`
	Climate       *ClimateJSON `json:"climate,omitempty"`
	Relay         RelayJSON    `json:"relay"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// OutputsJSON is the last frame written to the actuators.
type OutputsJSON struct {
	Buzzer bool `json:"buzzer"`
	Red    bool `json:"red"`
	Green  bool `json:"green"`
}

// ClimateJSON is the last valid climate reading.
type ClimateJSON struct {
	Temperature float64 `json:"temperature_c"`
	Humidity    float64 `json:"humidity_pct"`
	SampledAt   string  `json:"sampled_at"`
}

// RelayJSON is the JSON representation of traffic counters.
type RelayJSON struct {
	WirelessIn int `json:"wireless_in"`
	BridgeIn   int `json:"bridge_in"`
	Forwarded  int `json:"forwarded"`
	Replies    int `json:"replies"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	SystemOn  int `json:"system_on"`
	SystemOff int `json:"system_off"`
	AlarmOn   int `json:"alarm_on"`
	AlarmOff  int `json:"alarm_off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of node config.
type ConfigJSON struct {
	TickMs           int64  `json:"tick_ms"`
	DebounceMs       int64  `json:"debounce_ms"`
	BlinkMs          int64  `json:"blink_ms"`
	SensorIntervalMs int64  `json:"sensor_interval_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	Wireless         string `json:"wireless"`
	Bridge           string `json:"bridge"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	WSBroker         string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	inner := StatusInner{
		Mode:     mode,
		Armed:    snap.Armed,
		Starting: snap.Starting,
		Outputs: OutputsJSON{
			Buzzer: snap.Outputs.Buzzer,
			Red:    snap.Outputs.Primary,
			Green:  snap.Outputs.Secondary,
		},
		Relay: RelayJSON{
			WirelessIn: snap.Relay.WirelessIn,
			BridgeIn:   snap.Relay.BridgeIn,
			Forwarded:  snap.Relay.Forwarded,
			Replies:    snap.Relay.Replies,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			SystemOn:  snap.Counts.SystemOn,
			SystemOff: snap.Counts.SystemOff,
			AlarmOn:   snap.Counts.AlarmOn,
			AlarmOff:  snap.Counts.AlarmOff,
		},
		Config: ConfigJSON{
			TickMs:           snap.Config.TickMs,
			DebounceMs:       snap.Config.DebounceMs,
			BlinkMs:          snap.Config.BlinkMs,
			SensorIntervalMs: snap.Config.SensorIntervalMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Wireless:         snap.Config.Wireless,
			Bridge:           snap.Config.Bridge,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			WSBroker:         snap.Config.WSBroker,
		},
	}

	if snap.Reading.Valid {
		inner.Climate = &ClimateJSON{
			Temperature: snap.Reading.Temperature,
			Humidity:    snap.Reading.Humidity,
			SampledAt:   snap.Reading.SampledAt.UTC().Format(time.RFC3339),
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}

	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
