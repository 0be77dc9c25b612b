package node

import (
	"time"

	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/mqtt"
	"github.com/sweeney/homesec-node/internal/status"
)

// Lifecycle event names on the system topic.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
)

// Startup publishes the retained STARTUP event with a status snapshot.
func (n *Node) Startup(now time.Time) {
	n.publishSystem(now, EventStartup, "", true)
}

// Shutdown publishes the retained SHUTDOWN event and parks the actuators
// on the OFF indicator.
func (n *Node) Shutdown(now time.Time, reason string) {
	logger.InfoKV(n.ctx, "shutting down", "reason", reason)
	n.writeOutputs(logic.FrameOff)
	n.updateTracker()
	n.publishSystem(now, EventShutdown, reason, true)
}

func (n *Node) checkHeartbeat(now time.Time) {
	hb := n.heartbeat.Check(now, n.counts)
	if hb == nil {
		return
	}

	logger.InfoKV(n.ctx, "heartbeat", "uptime", hb.Uptime, "system_on", hb.Counts.SystemOn,
		"system_off", hb.Counts.SystemOff, "alarm_on", hb.Counts.AlarmOn, "alarm_off", hb.Counts.AlarmOff)

	if n.deps.Tracker != nil && n.deps.Network != nil {
		if info := n.deps.Network(); info != nil {
			n.deps.Tracker.SetNetwork(info)
		}
	}
	n.updateTracker()
	n.publishSystem(hb.Timestamp, EventHeartbeat, "", false)
}

func (n *Node) publishSystem(now time.Time, event, reason string, retained bool) {
	ev := mqtt.SystemEvent{
		Timestamp: now,
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if n.deps.Tracker != nil {
		ev.RawPayload = status.FormatStatusEvent(n.deps.Tracker.Snapshot(), event, reason)
	}

	if err := n.deps.Publisher.PublishSystem(ev); err != nil {
		logger.WarnKV(n.ctx, "system publish failed", "event", event, "error", err)
		return
	}
	logger.DebugKV(n.ctx, "system event published", "event", event)
}

func (n *Node) updateTracker() {
	tr := n.deps.Tracker
	if tr == nil {
		return
	}

	tr.Update(n.state, n.out, n.anim != nil, n.counts)
	tr.SetRelay(n.relay)
	if r := n.climate.Last(); r.Valid {
		tr.SetReading(r)
	}
	if n.deps.MQTTStatus != nil {
		tr.SetMQTTConnected(n.deps.MQTTStatus.IsConnected())
	}
}
