package logic

import "time"

// Heartbeat decides when a periodic liveness event is due.
type Heartbeat struct {
	interval time.Duration
	start    time.Time
	last     time.Time
}

// NewHeartbeat creates a heartbeat timer. An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, start: start, last: start}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup), and nil otherwise.
func (h *Heartbeat) Check(now time.Time, counts EventCounts) *HeartbeatData {
	if h.interval <= 0 || now.Sub(h.last) < h.interval {
		return nil
	}

	h.last = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.start),
		Counts:    counts,
	}
}
