package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"3tcapital/goglosas/internal/adapters/localstore/memory"
	"3tcapital/goglosas/internal/adapters/localstore/redis"
	"3tcapital/goglosas/internal/adapters/localstore/sqlite"
	"3tcapital/goglosas/internal/adapters/remote/postgres"
	"3tcapital/goglosas/internal/adapters/remote/postgrest"
	apphealth "3tcapital/goglosas/internal/application/health"
	"3tcapital/goglosas/internal/application/mutation"
	"3tcapital/goglosas/internal/application/reconciliation"
	"3tcapital/goglosas/internal/application/recovery"
	appsession "3tcapital/goglosas/internal/application/session"
	"3tcapital/goglosas/internal/application/transfer"
	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/localstore"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/config"
	"3tcapital/goglosas/internal/infrastructure/database"
	infrahttp "3tcapital/goglosas/internal/infrastructure/http"
	"3tcapital/goglosas/internal/infrastructure/http/middleware"
	"3tcapital/goglosas/internal/infrastructure/metrics"
)

// ErrNoDatabase is returned by Migrate when the remote backend is not Postgres.
var ErrNoDatabase = errors.New("migrations require the postgres remote backend")

// ServiceUserID names the service session when no default user is configured.
const ServiceUserID = "glosas-service"

// App holds every long-lived component of a running instance.
type App struct {
	Config      config.AppConfig
	Log         *slog.Logger
	Registry    *prometheus.Registry
	Metrics     *metrics.Sync
	Workspace   *workspace.Workspace
	Glosas      glosa.Repository
	Ingresos    ingreso.Repository
	Engine      *reconciliation.Engine
	Scanner     *recovery.Scanner
	Coordinator *mutation.Coordinator
	Importer    *transfer.Importer
	Sessions    *appsession.Manager
	Health      *apphealth.Service

	pool    *pgxpool.Pool
	closers []func() error
}

// Build connects the configured backends and wires the sync layer on top.
func Build(ctx context.Context, cfg config.AppConfig, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.New(a.Registry, metrics.Config{
			ServiceName: cfg.App.Name,
			Environment: cfg.App.Environment,
		})
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Workspace = workspace.New(store, log)

	a.Health = apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, a.Workspace)
	a.Health.AddProbe("local_store", func(ctx context.Context) error {
		_, err := store.Get(ctx, "health")
		if errors.Is(err, localstore.ErrNotFound) {
			return nil
		}
		return err
	})

	if err := a.openRemote(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = reconciliation.NewEngine(a.Glosas, a.Ingresos, a.Workspace, reconciliation.Config{
		Timeout: cfg.Sync.FetchTimeout,
		Retries: cfg.Sync.Retries,
		Backoff: cfg.Sync.Backoff,
	}, a.Metrics, log)
	a.Scanner = recovery.NewScanner(a.Workspace, a.Glosas, a.Engine, cfg.Sync.FlagSyncRPS, a.Metrics, log)
	a.Coordinator = mutation.NewCoordinator(a.Workspace, a.Glosas, a.Ingresos, cfg.Sync.MutationTimeout, a.Metrics, log)
	a.Importer = transfer.NewImporter(a.Workspace, a.Glosas, a.Ingresos, log)
	a.Sessions = appsession.NewManager(a.Workspace, a.Engine, a.Engine, a.Scanner, log)

	log.Info("components ready",
		"local_store", cfg.LocalStore.Backend,
		"remote", cfg.Remote.Backend,
		"metrics", cfg.Metrics.Enabled,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (localstore.Store, error) {
	ls := a.Config.LocalStore
	switch strings.ToLower(ls.Backend) {
	case config.LocalMemory:
		return memory.New(), nil
	case config.LocalRedis:
		store, err := redis.Dial(ctx, ls.RedisAddr, ls.RedisPassword, ls.RedisDB, ls.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis local store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.LocalSQLite, "":
		store, err := sqlite.Open(ls.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite local store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown local store backend %q", ls.Backend)
	}
}

func (a *App) openRemote(ctx context.Context) error {
	switch strings.ToLower(a.Config.Remote.Backend) {
	case config.RemotePostgREST:
		rc := a.Config.Remote
		traced := infrahttp.NewTracedClient(infrahttp.TracedClientConfig{
			Timeout:         rc.Timeout,
			LogRequestBody:  rc.LogBodies,
			LogResponseBody: rc.LogBodies,
			MaxBodySize:     rc.MaxBodySize,
			MaxConnsPerHost: rc.MaxConnsPerHost,
			Observer:        a.Metrics.RemoteRequest,
		}, a.Log, config.RemotePostgREST)
		breaker := infrahttp.NewBreaker(traced, rc.BreakerFailures, rc.BreakerCooldown)
		client := postgrest.NewClient(rc.PostgRESTURL, rc.APIKey, breaker)
		a.Glosas = postgrest.NewGlosaRepository(client)
		a.Ingresos = postgrest.NewIngresoRepository(client)
		a.Health.AddProbe("remote", func(ctx context.Context) error {
			return client.Ping(ctx, "glosas")
		})
		return nil
	case config.RemotePostgres, "":
		pool, err := database.NewPool(ctx, database.FromSettings(a.Config.Database))
		if err != nil {
			return fmt.Errorf("connect remote database: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.Glosas = postgres.NewGlosaRepository(pool)
		a.Ingresos = postgres.NewIngresoRepository(pool)
		a.Health.AddProbe("remote", pool.Ping)
		if a.Config.Database.MigrateOnStart {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown remote backend %q", a.Config.Remote.Backend)
	}
}

// Migrate applies the embedded schema migrations to the remote database.
func (a *App) Migrate(ctx context.Context) error {
	if a.pool == nil {
		return ErrNoDatabase
	}
	if err := database.RunMigrations(ctx, a.pool, a.Log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// ServiceSession is the identity the service uses for its own startup
// recovery and background refresh. It does not depend on the request auth
// mode; inbound requests still carry their own session.
func (a *App) ServiceSession() session.Session {
	sess := middleware.DefaultSession(a.Config.Auth)
	if !sess.Authenticated() {
		sess.UserID = ServiceUserID
	}
	return sess
}

// Start opens the service session: the cache is loaded, the one-shot
// recovery passes run and the first remote fetch is attempted.
func (a *App) Start(ctx context.Context) (appsession.StartupReport, error) {
	return a.Sessions.SignIn(ctx, a.ServiceSession())
}

// RunRefresher re-fetches the remote collections for the open session every
// Sync.Interval until ctx is done. A zero interval returns immediately.
func (a *App) RunRefresher(ctx context.Context) {
	interval := a.Config.Sync.Interval
	if interval <= 0 {
		return
	}
	log := a.Log.With("component", "refresher")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess, ok := a.Sessions.Current()
			if !ok {
				continue
			}
			res, err := a.Engine.FetchAndMerge(ctx, sess, reconciliation.Options{Force: true})
			if err != nil {
				log.Warn("background refresh failed", "error", err)
				continue
			}
			log.Debug("background refresh done", "glosas", len(res.Glosas), "ingresos", len(res.Ingresos))
		}
	}
}

// Close waits for pending remote writes and releases every backend.
func (a *App) Close() {
	if a.Coordinator != nil {
		a.Coordinator.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
