package mqtt

import (
	"context"

	"github.com/sweeney/homesec-node/internal/logger"
)

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages while the broker is unreachable, oldest first.
//
// The broker keeps only the last retained message per topic, so a queued
// retained message is superseded by a newer one on the same topic rather
// than replayed. When full, the oldest message is dropped.
// Not safe for concurrent use; the caller synchronizes.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int
	warned   bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{capacity: capacity}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if !o.warned {
			logger.Warnf(context.Background(), "mqtt outbox full (%d messages), dropping oldest", o.capacity)
			o.warned = true
		}
		o.dropped++
		o.msgs = o.msgs[1:]
	}

	o.msgs = append(o.msgs, msg)
}

// requeue puts msgs back in front of anything queued since they were taken.
func (o *outbox) requeue(msgs []bufferedMsg) {
	newer := o.msgs
	o.msgs = nil
	for _, m := range msgs {
		o.push(m)
	}
	for _, m := range newer {
		o.push(m)
	}
}

// take empties the outbox and returns its messages with the number dropped
// since the previous take.
func (o *outbox) take() ([]bufferedMsg, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs = nil
	o.dropped = 0
	o.warned = false
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
