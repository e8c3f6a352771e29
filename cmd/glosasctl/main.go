package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"3tcapital/goglosas/internal/app"
	"3tcapital/goglosas/internal/cli"
	"3tcapital/goglosas/internal/infrastructure/config"
	"3tcapital/goglosas/internal/infrastructure/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	open := func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		log := logger.NewWithOptions(logger.Options{
			AppName:     cfg.App.Name,
			Level:       cfg.Log.Level,
			Environment: cfg.App.Environment,
			Output:      os.Stderr,
		})
		return app.Build(ctx, cfg, log)
	}

	if err := cli.NewRootCommand(open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
