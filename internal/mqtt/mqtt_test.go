package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/homesec-node/internal/logic"
)

var ts = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestTopics(t *testing.T) {
	require.Equal(t, "homesec/node/events", Topic)
	require.Equal(t, "homesec/node/system", TopicSystem)
}

func TestFormatPayloadExactJSON(t *testing.T) {
	data, err := FormatPayload(logic.Event{Timestamp: ts, Type: logic.EventAlarmOn, Mode: logic.ModeOn, Armed: true})
	require.NoError(t, err)
	require.JSONEq(t,
		`{"node":{"timestamp":"2026-03-04T05:06:07Z","event":"ALARM_ON","mode":"ON","armed":true}}`,
		string(data))
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	for _, typ := range []logic.EventType{logic.EventSystemOn, logic.EventSystemOff, logic.EventAlarmOn, logic.EventAlarmOff} {
		data, err := FormatPayload(logic.Event{Timestamp: ts, Type: typ, Mode: logic.ModeOff})
		require.NoError(t, err)

		var p Payload
		require.NoError(t, json.Unmarshal(data, &p))
		require.Equal(t, string(typ), p.Node.Event)
	}
}

func TestFormatPayloadConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	data, err := FormatPayload(logic.Event{Timestamp: time.Date(2026, 3, 4, 7, 6, 7, 0, loc), Type: logic.EventSystemOn})
	require.NoError(t, err)
	require.Contains(t, string(data), `"timestamp":"2026-03-04T05:06:07Z"`)
}

func TestFormatSystemPayload(t *testing.T) {
	data, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Reason: "SIGTERM"})
	require.NoError(t, err)
	require.JSONEq(t, `{"system":{"timestamp":"2026-03-04T05:06:07Z","event":"SHUTDOWN","reason":"SIGTERM"}}`, string(data))

	data, err = FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "HEARTBEAT"})
	require.NoError(t, err)
	require.NotContains(t, string(data), "reason")
}

func TestFormatSystemPayloadWithoutTimestamp(t *testing.T) {
	data, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "connection lost"})
	require.NoError(t, err)
	require.JSONEq(t, `{"system":{"event":"OFFLINE","reason":"connection lost"}}`, string(data))
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"mode":"OFF"}}`)
	data, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	require.NoError(t, err)
	require.Equal(t, raw, data)
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	require.NoError(t, f.Publish(logic.Event{Timestamp: ts, Type: logic.EventSystemOn, Mode: logic.ModeOn}))
	require.NoError(t, f.Publish(logic.Event{Timestamp: ts, Type: logic.EventAlarmOn, Mode: logic.ModeOn, Armed: true}))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}))

	require.Equal(t, []logic.EventType{logic.EventSystemOn, logic.EventAlarmOn}, f.EventTypes())
	require.Len(t, f.Payloads, 2)
	require.Equal(t, []string{"STARTUP"}, f.SystemEventNames())
	require.True(t, f.SystemEvents[0].Retained)

	f.PublishError = errors.New("broker down")
	require.Error(t, f.Publish(logic.Event{Type: logic.EventAlarmOff}))
	require.Len(t, f.Events, 2)

	f.Reset()
	require.Empty(t, f.Events)
	require.Empty(t, f.SystemEvents)
	require.NoError(t, f.Publish(logic.Event{Type: logic.EventAlarmOff}))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	require.NoError(t, p.Publish(logic.Event{}))
	require.NoError(t, p.PublishSystem(SystemEvent{}))
	require.NoError(t, p.Close())
}

// fakeToken is a completed paho token.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakeConn struct {
	mu      sync.Mutex
	open    bool
	failErr error
	sent    []sent
}

func (c *fakeConn) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return &fakeToken{err: c.failErr}
	}
	c.sent = append(c.sent, sent{topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte))})
	return &fakeToken{}
}

func (c *fakeConn) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeConn{open: true}
	p := newPublisher(context.Background(), c, 8)

	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventAlarmOn, Mode: logic.ModeOn, Armed: true}))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}))
	require.Equal(t, 2, p.Buffered())
	p.drain()

	require.Len(t, c.sent, 2)
	require.Equal(t, Topic, c.sent[0].topic)
	require.Equal(t, byte(0), c.sent[0].qos)
	require.Equal(t, TopicSystem, c.sent[1].topic)
	require.Equal(t, byte(1), c.sent[1].qos)
	require.True(t, c.sent[1].retained)
	require.True(t, p.IsConnected())
	require.Zero(t, p.Buffered())
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(context.Background(), c, 8)

	for _, typ := range []logic.EventType{logic.EventSystemOn, logic.EventAlarmOn, logic.EventAlarmOff} {
		require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: typ}))
	}
	p.drain()
	require.Empty(t, c.sent)
	require.Equal(t, 3, p.Buffered())

	c.setOpen(true)
	p.onConnect()
	p.drain()

	require.Zero(t, p.Buffered())
	require.Len(t, c.sent, 4)
	for i, want := range []string{"SYSTEM_ON", "ALARM_ON", "ALARM_OFF"} {
		require.Contains(t, c.sent[i].payload, want)
	}
	require.Equal(t, TopicSystem, c.sent[3].topic)
	require.Contains(t, c.sent[3].payload, "RECONNECTED")
	require.Contains(t, c.sent[3].payload, "replayed 3, dropped 0")
}

func TestRealPublisherReplayPrecedesNewEvents(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(context.Background(), c, 8)

	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventSystemOn}))
	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventAlarmOn}))

	// An event raised right after the connection opens queues behind the backlog.
	c.setOpen(true)
	p.onConnect()
	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventAlarmOff}))
	p.drain()

	require.Len(t, c.sent, 4)
	for i, want := range []string{"SYSTEM_ON", "ALARM_ON", "ALARM_OFF", "RECONNECTED"} {
		require.Contains(t, c.sent[i].payload, want)
	}
}

func TestRealPublisherFailedPublishIsBuffered(t *testing.T) {
	c := &fakeConn{open: true, failErr: errors.New("not authorized")}
	p := newPublisher(context.Background(), c, 8)

	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventAlarmOn}))
	p.drain()
	require.Equal(t, 1, p.Buffered())

	// A retry that fails keeps the message.
	p.drain()
	require.Equal(t, 1, p.Buffered())

	c.mu.Lock()
	c.failErr = nil
	c.mu.Unlock()
	p.drain()
	require.Zero(t, p.Buffered())
	require.True(t, strings.Contains(c.sent[0].payload, "ALARM_ON"))
}

func TestRealPublisherTimeoutKeepsMessage(t *testing.T) {
	p := newPublisher(context.Background(), stallConn{}, 4)
	p.timeout = 10 * time.Millisecond

	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: ts, Event: "HEARTBEAT"}))
	p.drain()
	require.Equal(t, 1, p.Buffered())
}

func TestRealPublisherDoesNotBlockOnStalledBroker(t *testing.T) {
	p := newPublisher(context.Background(), stallConn{}, 16)
	p.timeout = 100 * time.Millisecond
	p.start()
	defer p.Close()

	begin := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventAlarmOn}))
		require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: ts, Event: "HEARTBEAT"}))
	}
	require.Less(t, time.Since(begin), 50*time.Millisecond)
}

func TestRealPublisherSenderDrainsInBackground(t *testing.T) {
	c := &fakeConn{open: true}
	p := newPublisher(context.Background(), c, 8)
	p.start()

	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventSystemOn}))
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.sent) == 1
	}, time.Second, 5*time.Millisecond)

	// Close drains what was queued last.
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: ts, Event: "SHUTDOWN", Retained: true}))
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.sent, 2)
	require.Contains(t, c.sent[1].payload, "SHUTDOWN")
}

func TestNewRealPublisherBuffersUntilConnected(t *testing.T) {
	// Nothing listens on port 1; the client keeps retrying in the background.
	p := NewRealPublisher(context.Background(), "tcp://127.0.0.1:1", "homesec-node-test")

	require.NoError(t, p.Publish(logic.Event{Timestamp: ts, Type: logic.EventSystemOn}))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}))

	require.False(t, p.IsConnected())
	require.Never(t, func() bool { return p.Buffered() != 2 }, 100*time.Millisecond, 10*time.Millisecond)
}

// stallConn is an open connection whose publishes never complete.
type stallConn struct{}

func (stallConn) IsConnectionOpen() bool { return true }

func (stallConn) Publish(string, byte, bool, interface{}) paho.Token {
	return stallToken{}
}

type stallToken struct{}

func (stallToken) Wait() bool { select {} }

func (stallToken) WaitTimeout(d time.Duration) bool {
	time.Sleep(d)
	return false
}

func (stallToken) Done() <-chan struct{} { return make(chan struct{}) }
func (stallToken) Error() error          { return nil }

func TestDefaultClientID(t *testing.T) {
	id := DefaultClientID()
	require.True(t, strings.HasPrefix(id, "homesec-node"))
}
