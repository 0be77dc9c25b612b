package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/gpio"
	"github.com/sweeney/homesec-node/internal/link"
	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/mqtt"
	"github.com/sweeney/homesec-node/internal/node"
	"github.com/sweeney/homesec-node/internal/sensor"
	"github.com/sweeney/homesec-node/internal/status"
	"github.com/sweeney/homesec-node/internal/web"
)

const shutdownTimeout = 5 * time.Second

// ReasonCanceled is the shutdown reason when the context ends without a signal.
const ReasonCanceled = "CANCELED"

// publisher is what the loop needs from MQTT.
type publisher interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

// hardware is everything opened on the board.
type hardware struct {
	button   *gpio.RealButton
	outputs  *gpio.RealOutputs
	board    *sensor.Board
	wireless *link.Port
	bridge   *link.Port
}

// Run drives the real node until SIGINT or SIGTERM.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "homesec-node")

	cfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return err
	}

	hw, err := openHardware(ctx, cfg)
	if err != nil {
		return err
	}
	defer hw.close(ctx)

	pub := newPublisher(ctx, cfg.MQTT)
	defer pub.Close()

	ws := ResolveWSBroker(ctx, cfg.MQTT.WSBroker, cfg.MQTT.Broker)
	tracker := status.NewTracker(time.Now(), status.ConfigFrom(cfg, ws))
	if info := status.NetworkFromEnv(); info != nil {
		tracker.SetNetwork(info)
	}

	n := node.New(ctx, node.Deps{
		Wireless:   hw.wireless,
		Bridge:     hw.bridge,
		Button:     hw.button,
		Outputs:    hw.outputs,
		Climate:    hw.board.Climate,
		Sound:      hw.board.Sound,
		Light:      hw.board.Light,
		Publisher:  pub,
		MQTTStatus: pub,
		Tracker:    tracker,
		Network:    status.NetworkFromEnv,
	}, node.OptionsFromConfig(cfg))

	n.Boot(time.Now())
	n.Startup(time.Now())

	if cfg.HTTPAddr != "" {
		stop := serveStatus(ctx, cfg.HTTPAddr, tracker)
		defer stop()
	}

	logger.InfoKV(ctx, "Started",
		"wireless", cfg.Wireless.Device, "bridge", cfg.Bridge.Device,
		"tick", cfg.Timing.Tick, "broker", cfg.MQTT.Broker, "heartbeat", cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.Timing.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	reason := runLoop(ctx, n, ticker.C, time.Now, sigCh)
	n.Shutdown(time.Now(), reason)

	return nil
}

// runLoop ticks n until a signal arrives or ctx ends, and returns the reason.
func runLoop(ctx context.Context, n *node.Node, tick <-chan time.Time, now func() time.Time, sig <-chan os.Signal) string {
	for {
		select {
		case <-ctx.Done():
			return ReasonCanceled
		case s := <-sig:
			logger.InfoKV(ctx, "Received signal, shutting down", "signal", s)
			return signalName(s)
		case <-tick:
			n.Tick(now())
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func newPublisher(ctx context.Context, cfg config.MQTTConfig) publisher {
	if cfg.Broker == "" {
		logger.InfoKV(ctx, "No broker configured, events are not published")
		return mqtt.NopPublisher{}
	}
	return mqtt.NewRealPublisher(ctx, cfg.Broker, cfg.ClientID)
}

// serveStatus starts the status page and returns a function that stops it.
func serveStatus(ctx context.Context, addr string, tracker *status.Tracker) func() {
	srv := web.New(ctx, addr, tracker)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "HTTP server error", "error", err)
		}
	}()
	logger.InfoKV(ctx, "HTTP status server listening", "addr", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "HTTP server shutdown", "error", err)
		}
	}
}

func openHardware(ctx context.Context, cfg *config.Config) (_ *hardware, err error) {
	hw := &hardware{}
	defer func() {
		if err != nil {
			hw.close(ctx)
		}
	}()

	p := pins(cfg.GPIO)
	if hw.button, err = gpio.NewRealButton(p); err != nil {
		return nil, fmt.Errorf("init button: %w", err)
	}
	if hw.outputs, err = gpio.NewRealOutputs(p); err != nil {
		return nil, fmt.Errorf("init outputs: %w", err)
	}
	if hw.board, err = sensor.Open(ctx, cfg.Sensors); err != nil {
		return nil, fmt.Errorf("init sensors: %w", err)
	}
	if hw.wireless, err = link.Open(ctx, "wireless", cfg.Wireless); err != nil {
		return nil, fmt.Errorf("open wireless link: %w", err)
	}
	if hw.bridge, err = link.Open(ctx, "bridge", cfg.Bridge); err != nil {
		return nil, fmt.Errorf("open bridge link: %w", err)
	}

	return hw, nil
}

// close releases whatever was opened. Safe on a partially opened board.
func (h *hardware) close(ctx context.Context) {
	var errs []error
	for _, l := range []*link.Port{h.wireless, h.bridge} {
		if l == nil {
			continue
		}
		if err := l.Err(); err != nil {
			logger.WarnKV(ctx, "Link failed during run", "error", err)
		}
		errs = append(errs, l.Close())
	}
	if h.board != nil {
		errs = append(errs, h.board.Close())
	}
	if h.button != nil {
		errs = append(errs, h.button.Close())
	}
	if h.outputs != nil {
		errs = append(errs, h.outputs.Close())
	}

	if err := errors.Join(errs...); err != nil {
		logger.WarnKV(ctx, "Releasing hardware", "error", err)
	}
}
