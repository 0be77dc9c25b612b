// Package mqtt publishes node events and lifecycle messages to a broker,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/homesec-node/internal/logic"
)

// Topic is the MQTT topic for mode and alarm events.
const Topic = "homesec/node/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "homesec/node/system"

// Publisher publishes events to MQTT. Calls come from the control loop and
// must not wait on the network.
type Publisher interface {
	// Publish sends a node event. A failure must never stop the loop.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event: STARTUP, SHUTDOWN, HEARTBEAT,
// RECONNECTED or OFFLINE.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown signal name
	RawPayload []byte // pre-formatted status snapshot, sent as-is when set
	Retained   bool
}

// Payload is the JSON body of a node event.
type Payload struct {
	Node NodePayload `json:"node"`
}

// NodePayload contains the event details.
type NodePayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Mode      string `json:"mode"`
	Armed     bool   `json:"armed"`
}

// FormatPayload creates the JSON payload for a node event.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{
		Node: NodePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Mode:      string(event.Mode),
			Armed:     event.Armed,
		},
	})
}

// SystemPayload is the body of a system event without a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// RawPayload, when set, is returned unchanged. A zero Timestamp is omitted.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{Event: event.Event, Reason: event.Reason}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(logic.Event) error { return nil }

// PublishSystem implements Publisher.
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// IsConnected implements ConnectionStatus.
func (NopPublisher) IsConnected() bool { return false }
