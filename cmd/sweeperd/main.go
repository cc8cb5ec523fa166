package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/inklet-hq/syndicator/internal/app"
	"github.com/inklet-hq/syndicator/internal/config"
	"github.com/inklet-hq/syndicator/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sweeperd start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("sweeperd starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syndicator, err := app.NewSyndicator(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize syndicator", "error", err)
		return err
	}

	if err := syndicator.Run(ctx); err != nil {
		return fmt.Errorf("syndicator run: %w", err)
	}

	return nil
}
