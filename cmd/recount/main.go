// Package main rebuilds reaction counters and totals from reaction events.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/reactions/internal/platform/cmd"
	"github.com/louisbranch/reactions/internal/platform/config"
	"github.com/louisbranch/reactions/internal/tools/recount"
)

func main() {
	cfg, err := recount.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	config.ExitOnError(cmd.RunWithTelemetry(ctx, cmd.ServiceRecount, func(ctx context.Context) error {
		return recount.Run(ctx, cfg, os.Stdout, os.Stderr)
	}))
}
