package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/logic"
)

const (
	// BufferCapacity is how many messages are kept while the broker is away.
	BufferCapacity = 256

	clientIDPrefix = "homesec-node"
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
)

var errPublishTimeout = errors.New("publish timeout")

// conn is the part of paho.Client the publisher needs.
type conn interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// RealPublisher publishes to a broker from a background sender.
//
// Publish and PublishSystem only queue; the sender drains the queue in
// order whenever the connection is open, so a slow or half-dead broker
// never holds up the caller.
type RealPublisher struct {
	ctx     context.Context
	client  paho.Client
	conn    conn
	timeout time.Duration

	mu     sync.Mutex
	buf    *outbox
	replay bool // set on connect, announce RECONNECTED after the next drain

	started   bool
	wake      chan struct{}
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// DefaultClientID derives a stable client id from the machine id.
func DefaultClientID() string {
	id, err := machineid.ProtectedID(clientIDPrefix)
	if err != nil || len(id) < 8 {
		return clientIDPrefix
	}
	return clientIDPrefix + "-" + id[:8]
}

// NewRealPublisher starts connecting to broker in the background. The
// broker holds an OFFLINE will on the system topic for this client. The
// will is registered once, so it carries no timestamp.
func NewRealPublisher(ctx context.Context, broker, clientID string) *RealPublisher {
	ctx = logger.WithName(ctx, "mqtt")
	if clientID == "" {
		clientID = DefaultClientID()
	}

	p := newPublisher(ctx, nil, BufferCapacity)

	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "connection lost"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetMaxReconnectInterval(time.Minute).
		SetKeepAlive(30*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			logger.InfoKV(ctx, "mqtt connected", "broker", broker, "client_id", clientID)
			p.onConnect()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.WarnKV(ctx, "mqtt connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	p.conn = p.client
	p.client.Connect()
	p.start()

	return p
}

// newPublisher wires a publisher to c without starting the sender.
func newPublisher(ctx context.Context, c conn, capacity int) *RealPublisher {
	return &RealPublisher{
		ctx:     ctx,
		conn:    c,
		timeout: publishTimeout,
		buf:     newOutbox(capacity),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (p *RealPublisher) start() {
	p.started = true
	go p.run()
}

// Publish queues a node event. QoS 0, not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.enqueue(bufferedMsg{topic: Topic, payload: payload})
	return nil
}

// PublishSystem queues a lifecycle event. QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	p.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.buf.push(msg)
	p.mu.Unlock()
	p.signal()
}

// onConnect schedules a replay of the queue followed by RECONNECTED.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.replay = true
	p.mu.Unlock()
	p.signal()
}

func (p *RealPublisher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run is the sender. It is the only goroutine that publishes, which keeps
// replayed and new messages in queue order.
func (p *RealPublisher) run() {
	defer close(p.stopped)

	retry := time.NewTicker(retryInterval)
	defer retry.Stop()

	for {
		select {
		case <-p.stop:
			p.drain()
			return
		case <-p.wake:
			p.drain()
		case <-retry.C:
			p.drain()
		}
	}
}

// drain publishes everything queued while the connection is open. On the
// first failure the rest goes back to the front of the queue.
func (p *RealPublisher) drain() {
	if !p.conn.IsConnectionOpen() {
		return
	}

	p.mu.Lock()
	pending, dropped := p.buf.take()
	replay := p.replay
	p.replay = false
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if replay {
		logger.InfoKV(p.ctx, "replaying buffered messages", "count", len(pending), "dropped", dropped)
	}

	for i, msg := range pending {
		if err := p.publish(msg); err != nil {
			logger.WarnKV(p.ctx, "publish failed, re-buffering", "pending", len(pending)-i, "error", err)
			p.mu.Lock()
			p.buf.requeue(pending[i:])
			p.buf.dropped += dropped
			p.replay = p.replay || replay
			p.mu.Unlock()
			return
		}
	}

	if !replay {
		return
	}
	reconnected, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "RECONNECTED",
		Reason:    fmt.Sprintf("replayed %d, dropped %d", len(pending), dropped),
	})
	if err := p.publish(bufferedMsg{topic: TopicSystem, payload: reconnected, qos: 1}); err != nil {
		logger.WarnKV(p.ctx, "reconnected publish failed", "error", err)
	}
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.conn.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%s: %w", msg.topic, errPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Buffered returns how many messages are waiting for the broker.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected implements ConnectionStatus.
func (p *RealPublisher) IsConnected() bool {
	return p.conn.IsConnectionOpen()
}

// Close gives the sender one last drain, bounded by the publish timeout,
// and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
		if !p.started {
			close(p.stopped)
		}
		select {
		case <-p.stopped:
		case <-time.After(p.timeout):
			logger.WarnKV(p.ctx, "mqtt sender did not finish", "buffered", p.Buffered())
		}
		if p.client != nil {
			p.client.Disconnect(1000)
		}
	})
	return nil
}
