package node

import (
	"context"
	"time"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/gpio"
	"github.com/sweeney/homesec-node/internal/link"
	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/logic"
	"github.com/sweeney/homesec-node/internal/mqtt"
	"github.com/sweeney/homesec-node/internal/status"
)

// Boot banner lines sent to the app when the loop starts.
const (
	BannerReady = "NODE: HomeSecurity + camera bridge ready."
	BannerOff   = "System is OFF. Press button to enable."
)

// lineEnding terminates every reply line.
const lineEnding = "\r\n"

// Deps are the node's collaborators.
type Deps struct {
	Wireless link.Link
	Bridge   link.Link
	Button   gpio.Button
	Outputs  gpio.Outputs
	Climate  logic.ClimateSensor
	Sound    logic.AnalogSensor
	Light    logic.AnalogSensor

	// Publisher receives node and lifecycle events. Nil discards them.
	Publisher mqtt.Publisher
	// MQTTStatus, when set, is reported in the status tracker.
	MQTTStatus mqtt.ConnectionStatus
	// Tracker, when set, is updated after every tick.
	Tracker *status.Tracker
	// Network, when set, is polled for host network info on heartbeats.
	Network func() *status.NetworkInfo
}

// Options tune timing.
type Options struct {
	Debounce       time.Duration
	Blink          time.Duration
	SensorInterval time.Duration
	HalfPhase      time.Duration
	Heartbeat      time.Duration

	// NonblockingStartup plays the startup animation across ticks.
	NonblockingStartup bool
	// Sleep holds the loop during the blocking startup animation.
	Sleep func(time.Duration)
}

// DefaultOptions returns the stock timing.
func DefaultOptions() Options {
	return Options{
		Debounce:       logic.DefaultDebounce,
		Blink:          logic.DefaultBlinkInterval,
		SensorInterval: logic.DefaultSensorInterval,
		HalfPhase:      logic.DefaultHalfPhase,
		Sleep:          time.Sleep,
	}
}

// OptionsFromConfig maps configured timing onto loop options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Debounce = cfg.Timing.Debounce
	opts.Blink = cfg.Timing.Blink
	opts.SensorInterval = cfg.Timing.SensorInterval
	opts.HalfPhase = cfg.Timing.StartupHalfPhase
	opts.Heartbeat = cfg.MQTT.Heartbeat
	opts.NonblockingStartup = cfg.Timing.NonblockingStartup
	return opts
}

// Node is the loop orchestrator.
type Node struct {
	ctx  context.Context
	deps Deps
	opts Options

	state     logic.State
	button    *logic.Button
	blinker   *logic.Blinker
	climate   *logic.SensorCache
	router    *logic.Router
	power     *logic.Power
	heartbeat *logic.Heartbeat
	anim      *logic.Sequence

	counts logic.EventCounts
	relay  status.RelayCounts
	out    logic.Frame

	// error latches so a stuck device logs once, not every tick
	buttonFailing bool
	outputFailing bool
}

// New wires a node. Call Boot before the first Tick.
func New(ctx context.Context, deps Deps, opts Options) *Node {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.Blink <= 0 {
		opts.Blink = def.Blink
	}
	if opts.SensorInterval <= 0 {
		opts.SensorInterval = def.SensorInterval
	}
	if opts.HalfPhase <= 0 {
		opts.HalfPhase = def.HalfPhase
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	if deps.Publisher == nil {
		deps.Publisher = mqtt.NopPublisher{}
	}

	climate := logic.NewSensorCache(deps.Climate, opts.SensorInterval)

	return &Node{
		ctx:     logger.WithName(ctx, "node"),
		deps:    deps,
		opts:    opts,
		state:   logic.NewState(),
		climate: climate,
		router:  logic.NewRouter(climate, deps.Sound, deps.Light),
		power:   logic.NewPower(opts.HalfPhase),
		out:     logic.FrameOff,
	}
}

// Boot takes the button baseline, drives the OFF indicator and greets the
// app. A button held at boot does not count as a press.
func (n *Node) Boot(now time.Time) {
	level, err := n.deps.Button.Level()
	if err != nil {
		logger.WarnKV(n.ctx, "button read failed at boot, assuming released", "error", err)
		level = !logic.PressedLevel
	}

	n.button = logic.NewButton(n.opts.Debounce, level, now)
	n.blinker = logic.NewBlinker(n.opts.Blink, now)
	n.heartbeat = logic.NewHeartbeat(n.opts.Heartbeat, now)

	n.writeOutputs(logic.FrameOff)
	n.sendLines(BannerReady, BannerOff)
	n.updateTracker()

	logger.InfoKV(n.ctx, "node booted", "mode", n.state.Mode, "debounce", n.opts.Debounce,
		"blink", n.opts.Blink, "nonblocking_startup", n.opts.NonblockingStartup)
}

// Tick runs one loop iteration at now.
func (n *Node) Tick(now time.Time) {
	n.relayBridge()
	n.routeWireless(now)
	n.pollButton(now)
	n.driveOutputs(now)

	n.checkHeartbeat(now)
	n.updateTracker()
}

// Run ticks on every value from tick until ctx is done.
func (n *Node) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			n.Tick(now())
		}
	}
}

// State returns the current mode and armed flag.
func (n *Node) State() logic.State {
	return n.state
}

// Outputs returns the last frame written to the actuators.
func (n *Node) Outputs() logic.Frame {
	return n.out
}

// Counts returns the events emitted since boot.
func (n *Node) Counts() logic.EventCounts {
	return n.counts
}

// Relay returns the traffic counters.
func (n *Node) Relay() status.RelayCounts {
	return n.relay
}

// Starting reports whether a non-blocking startup animation is playing.
func (n *Node) Starting() bool {
	return n.anim != nil
}

// relayBridge is phase 1: bridge bytes go to the app untouched.
func (n *Node) relayBridge() {
	data := n.deps.Bridge.Drain()
	if len(data) == 0 {
		return
	}

	n.relay.BridgeIn += len(data)
	if err := n.deps.Wireless.Write(data); err != nil {
		logger.WarnKV(n.ctx, "relay to wireless failed", "bytes", len(data), "error", err)
	}
}

// routeWireless is phase 2: each app byte is a command or passes through.
func (n *Node) routeWireless(now time.Time) {
	data := n.deps.Wireless.Drain()
	if len(data) == 0 {
		return
	}

	n.relay.WirelessIn += len(data)

	var forward []byte
	for _, b := range data {
		res := n.router.Dispatch(&n.state, b, now)
		if res.Forward {
			forward = append(forward, b)
			continue
		}
		if res.Event != nil {
			n.emit(*res.Event)
		}
		n.sendLines(res.Reply...)
	}

	if len(forward) == 0 {
		return
	}

	n.relay.Forwarded += len(forward)
	if err := n.deps.Bridge.Write(forward); err != nil {
		logger.WarnKV(n.ctx, "forward to bridge failed", "bytes", len(forward), "error", err)
	}
}

// pollButton is phase 3: the only place the power mode changes.
func (n *Node) pollButton(now time.Time) {
	level, err := n.deps.Button.Level()
	if err != nil {
		if !n.buttonFailing {
			logger.ErrorKV(n.ctx, "button read failed", "error", err)
			n.buttonFailing = true
		}
		return
	}
	if n.buttonFailing {
		logger.InfoKV(n.ctx, "button read recovered")
		n.buttonFailing = false
	}

	if !n.button.Poll(level, now) {
		return
	}

	tr := n.power.Toggle(&n.state, now)
	n.emit(tr.Event)
	n.sendLines(tr.Announce)

	n.anim = nil
	n.blinker.Reset()
	n.writeOutputs(tr.Entry)

	if len(tr.Animation) == 0 {
		return
	}

	if n.opts.NonblockingStartup {
		n.anim = logic.NewSequence(tr.Animation, now)
		return
	}

	for _, step := range tr.Animation {
		n.writeOutputs(step.Frame)
		if step.Hold > 0 {
			n.opts.Sleep(step.Hold)
		}
	}
}

// driveOutputs is phase 4.
func (n *Node) driveOutputs(now time.Time) {
	if n.anim != nil {
		f, done := n.anim.Frame(now)
		if !done {
			n.writeOutputs(f)
			return
		}
		n.anim = nil
	}

	n.writeOutputs(logic.Outputs(n.state, n.blinker, now))
}

func (n *Node) writeOutputs(f logic.Frame) {
	n.out = f
	if err := n.deps.Outputs.Write(f); err != nil {
		if !n.outputFailing {
			logger.ErrorKV(n.ctx, "output write failed", "error", err)
			n.outputFailing = true
		}
		return
	}
	n.outputFailing = false
}

func (n *Node) sendLines(lines ...string) {
	for _, line := range lines {
		if err := n.deps.Wireless.Write([]byte(line + lineEnding)); err != nil {
			logger.WarnKV(n.ctx, "reply failed", "line", line, "error", err)
			continue
		}
		n.relay.Replies++
	}
}

func (n *Node) emit(e logic.Event) {
	n.counts.Add(e)
	logger.InfoKV(n.ctx, "event", "type", e.Type, "mode", e.Mode, "armed", e.Armed)

	if err := n.deps.Publisher.Publish(e); err != nil {
		logger.WarnKV(n.ctx, "publish failed", "type", e.Type, "error", err)
	}
}
