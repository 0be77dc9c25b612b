// Package app wires settings, hardware and the control loop together for
// each command of the homesec-node binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/gpio"
	"github.com/sweeney/homesec-node/internal/logger"
)

// wsPort is the broker's websocket listener.
const wsPort = "9001"

// Options are the command line settings shared by every command.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ConfigExplicit is set when the path was given on the command line.
	// A missing default file falls back to built-in settings; a missing
	// explicit one is an error.
	ConfigExplicit bool
	// LogLevel overrides the level from the settings file when set.
	LogLevel string
}

// LoadConfig reads settings and applies the log level.
func LoadConfig(ctx context.Context, opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !opts.ConfigExplicit:
		logger.InfoKV(ctx, "No settings file, using defaults", "path", opts.ConfigPath)
		cfg = config.Default()
	default:
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidLogLevel, cfg.LogLevel)
	}
	logger.SetLevel(level)

	return cfg, nil
}

// ResolveWSBroker converts the ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" or an
// unusable broker disables live updates.
func ResolveWSBroker(ctx context.Context, ws, broker string) string {
	switch ws {
	case "", config.WSBrokerOff:
		return ""
	case config.WSBrokerDerive:
	default:
		return ws
	}

	if broker == "" {
		return ""
	}

	u, err := url.Parse(broker)
	if err != nil || u.Hostname() == "" {
		logger.WarnKV(ctx, "Cannot derive websocket broker", "broker", broker, "error", err)
		return ""
	}

	u.Scheme = "ws"
	u.Host = u.Hostname() + ":" + wsPort
	return u.String()
}

func pins(cfg config.GPIOConfig) gpio.Pins {
	return gpio.Pins{
		Chip:   cfg.Chip,
		Button: cfg.Button,
		Buzzer: cfg.Buzzer,
		Red:    cfg.Red,
		Green:  cfg.Green,
	}
}
