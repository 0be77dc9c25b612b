package app

import (
	"context"
	"time"

	"github.com/sweeney/homesec-node/internal/console"
	"github.com/sweeney/homesec-node/internal/logger"
)

// Console runs the control loop against simulated hardware and serves the
// bench shell. With args, only that one shell command is run.
func Console(ctx context.Context, opts *Options, args []string) error {
	ctx = logger.WithName(ctx, "console")

	cfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return err
	}

	bench := console.NewBench(ctx, cfg, time.Now())

	if cfg.HTTPAddr != "" && len(args) == 0 {
		stop := serveStatus(ctx, cfg.HTTPAddr, bench.Tracker)
		defer stop()
	}

	return console.NewShell(bench, cfg.Timing.Tick).Run(ctx, args...)
}
