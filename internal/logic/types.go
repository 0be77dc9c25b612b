// Package logic contains the pure control logic of the front board.
// This package has NO external dependencies (no GPIO, serial, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Mode is the power mode of the node. Only the physical button changes it.
type Mode string

const (
	ModeOff Mode = "OFF"
	ModeOn  Mode = "ON"
)

// State is the mutable system state owned by the loop.
// Invariant: Armed implies Mode == ModeOn.
type State struct {
	Mode  Mode
	Armed bool
}

// NewState returns the boot state: powered off, disarmed.
func NewState() State {
	return State{Mode: ModeOff}
}

// Frame is one set of actuator levels.
type Frame struct {
	Buzzer    bool
	Primary   bool // red
	Secondary bool // green
}

// FrameOff is the powered-off indicator: steady green, silent.
var FrameOff = Frame{Secondary: true}

// EventType identifies a node state transition.
type EventType string

const (
	EventSystemOn  EventType = "SYSTEM_ON"
	EventSystemOff EventType = "SYSTEM_OFF"
	EventAlarmOn   EventType = "ALARM_ON"
	EventAlarmOff  EventType = "ALARM_OFF"
)

// Event represents a state transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Mode      Mode
	Armed     bool
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	SystemOn  int
	SystemOff int
	AlarmOn   int
	AlarmOff  int
}

// Add counts a single event.
func (c *EventCounts) Add(e Event) {
	switch e.Type {
	case EventSystemOn:
		c.SystemOn++
	case EventSystemOff:
		c.SystemOff++
	case EventAlarmOn:
		c.AlarmOn++
	case EventAlarmOff:
		c.AlarmOff++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
