package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"3tcapital/goglosas/internal/adapters/http/api"
	glosahttp "3tcapital/goglosas/internal/adapters/http/glosa"
	healthhttp "3tcapital/goglosas/internal/adapters/http/health"
	importhttp "3tcapital/goglosas/internal/adapters/http/importer"
	ingresohttp "3tcapital/goglosas/internal/adapters/http/ingreso"
	reconcilehttp "3tcapital/goglosas/internal/adapters/http/reconcile"
	reporthttp "3tcapital/goglosas/internal/adapters/http/report"
	"3tcapital/goglosas/internal/app"
	"3tcapital/goglosas/internal/infrastructure/config"
	"3tcapital/goglosas/internal/infrastructure/http/middleware"
	"3tcapital/goglosas/internal/infrastructure/http/server"
	"3tcapital/goglosas/internal/infrastructure/logger"
	"3tcapital/goglosas/internal/infrastructure/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}

	report, err := a.Start(ctx)
	if err != nil {
		log.Warn("service session could not be opened, starting empty", "error", err)
	} else {
		log.Info("service session opened",
			"user", a.ServiceSession().UserID,
			"migration_recovered", report.Migration.Recovered(),
			"recovered_flags", report.RecoveredFlags,
			"fetch_error", report.FetchError,
		)
	}

	auth, err := middleware.NewJWTAuthenticator(cfg.Auth, log)
	if err != nil {
		a.Close()
		return fmt.Errorf("create authenticator: %w", err)
	}

	opts := server.Options{
		Config:        cfg,
		Logger:        log,
		HealthHandler: http.HandlerFunc(healthhttp.NewHandler(a.Health).Status),
		Auth:          auth.Middleware,
		Glosas:        glosahttp.NewHandler(a.Workspace, a.Coordinator, api.DefaultMaxBodyBytes, log),
		Ingresos:      ingresohttp.NewHandler(a.Workspace, a.Coordinator, api.DefaultMaxBodyBytes, log),
		Reports:       reporthttp.NewHandler(a.Workspace, log),
		Sync:          reconcilehttp.NewHandler(a.Workspace, a.Engine, a.Scanner, log),
		Import:        importhttp.NewHandler(a.Importer, cfg.HTTP.MaxUploadBytes, log),
		OnClose: func() {
			auth.Close()
			a.Close()
		},
	}
	if a.Registry != nil {
		opts.MetricsHandler = metrics.Handler(a.Registry)
	}

	srv, err := server.New(opts)
	if err != nil {
		auth.Close()
		a.Close()
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	go a.RunRefresher(ctx)

	log.Info("starting http server", "port", cfg.HTTP.Port, "remote", cfg.Remote.Backend, "local_store", cfg.LocalStore.Backend)
	return srv.Run(ctx)
}
