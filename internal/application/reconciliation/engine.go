package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/metrics"
)

// ErrFetchTimeout is returned when a fetch attempt exceeds Config.Timeout.
var ErrFetchTimeout = errors.New("tiempo de espera agotado consultando el servidor")

// Config controls timeout and retry behaviour.
type Config struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

// DefaultConfig returns the production settings: 20s per attempt, two
// retries, 2s between attempts.
func DefaultConfig() Config {
	return Config{
		Timeout: 20 * time.Second,
		Retries: 2,
		Backoff: 2 * time.Second,
	}
}

// Options tunes a single FetchAndMerge call.
type Options struct {
	// Force bypasses the already-fetched guard.
	Force bool
}

// Result describes the state after FetchAndMerge.
type Result struct {
	Glosas   []glosa.Glosa
	Ingresos []ingreso.Ingreso
	// Skipped is true when the guard short-circuited the fetch.
	Skipped bool
	// Attempts counts remote attempts made, retries included.
	Attempts int
	// IngresosDiscarded is true when an empty remote ingresos read was
	// ignored in favour of local data.
	IngresosDiscarded bool
	// PromotedFlags counts glosas whose internal flag was kept from local.
	PromotedFlags int
}

// Engine reconciles the remote collections with the workspace.
type Engine struct {
	glosas   glosa.Repository
	ingresos ingreso.Repository
	ws       *workspace.Workspace
	metrics  *metrics.Sync
	log      *slog.Logger
	cfg      Config
	now      func() time.Time

	mu         sync.Mutex
	fetchedFor string
}

// NewEngine wires an Engine. A zero Timeout falls back to 20s.
func NewEngine(glosas glosa.Repository, ingresos ingreso.Repository, ws *workspace.Workspace, cfg Config, m *metrics.Sync, log *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	return &Engine{
		glosas:   glosas,
		ingresos: ingresos,
		ws:       ws,
		metrics:  m,
		log:      log.With("component", "reconciliation"),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Reset forgets the identity of the last successful fetch so the next call
// always reaches the remote store. Called on sign-out.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.fetchedFor = ""
	e.mu.Unlock()
}

// FetchAndMerge pulls both remote collections, merges them into the
// workspace and persists the result. On failure the workspace keeps its
// current data and the error is recorded as the last sync error.
func (e *Engine) FetchAndMerge(ctx context.Context, sess session.Session, opts Options) (Result, error) {
	if !sess.Authenticated() {
		return Result{}, session.ErrNoSession
	}

	e.mu.Lock()
	already := e.fetchedFor == sess.UserID
	e.mu.Unlock()

	if localGlosas := e.ws.Glosas(); already && len(localGlosas) > 0 && !opts.Force {
		e.log.Debug("fetch skipped, data already loaded", "user_id", sess.UserID)
		return Result{
			Glosas:   localGlosas,
			Ingresos: e.ws.Ingresos(),
			Skipped:  true,
		}, nil
	}

	e.ws.SetSyncing(true)
	defer e.ws.SetSyncing(false)

	var (
		remoteGlosas   []glosa.Glosa
		remoteIngresos []ingreso.Ingreso
		lastErr        error
		attempts       int
	)
	for attempt := 0; attempt <= e.cfg.Retries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, e.cfg.Backoff); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		start := time.Now()
		remoteGlosas, remoteIngresos, lastErr = e.fetchOnce(ctx)
		e.metrics.FetchAttempt(time.Since(start))
		if lastErr == nil {
			break
		}

		e.log.Warn("remote fetch attempt failed",
			"attempt", attempts,
			"max_attempts", e.cfg.Retries+1,
			"error", lastErr,
		)
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr != nil {
		e.metrics.FetchFailed()
		e.ws.SetSyncError(lastErr)
		e.log.Error("fetch and merge failed, keeping local data", "attempts", attempts, "error", lastErr)
		return Result{Attempts: attempts}, fmt.Errorf("fetch remote data after %d attempts: %w", attempts, lastErr)
	}

	// Local flags are read at merge time so a promotion made while the
	// remote reads were in flight survives.
	var discarded bool
	at := e.now()
	merged, ingresos, err := e.ws.MergeRemote(ctx, at, func(local []glosa.Glosa, localIngresos []ingreso.Ingreso) ([]glosa.Glosa, []ingreso.Ingreso) {
		var out []ingreso.Ingreso
		out, discarded = MergeIngresos(localIngresos, remoteIngresos)
		return MergeGlosas(local, remoteGlosas), out
	})
	if err != nil {
		e.ws.SetSyncError(fmt.Errorf("write local cache: %w", err))
		e.log.Error("failed to write local cache", "error", err)
	}
	if discarded {
		e.log.Warn("remote returned no ingresos, keeping local copy", "local_ingresos", len(ingresos))
	}

	promoted := 0
	for i := range merged {
		if merged[i].RegistradaInternamente && !remoteGlosas[i].RegistradaInternamente {
			promoted++
		}
	}
	e.metrics.SyncSucceeded(at)

	e.mu.Lock()
	e.fetchedFor = sess.UserID
	e.mu.Unlock()

	e.log.Info("fetch and merge completed",
		"glosas", len(merged),
		"ingresos", len(ingresos),
		"attempts", attempts,
		"promoted_flags", promoted,
	)

	return Result{
		Glosas:            merged,
		Ingresos:          ingresos,
		Attempts:          attempts,
		IngresosDiscarded: discarded,
		PromotedFlags:     promoted,
	}, nil
}

type fetched struct {
	glosas   []glosa.Glosa
	ingresos []ingreso.Ingreso
	err      error
}

// fetchOnce runs both reads concurrently and races them against the
// timeout. A read that outlives the timeout keeps running; its result is
// dropped.
func (e *Engine) fetchOnce(ctx context.Context) ([]glosa.Glosa, []ingreso.Ingreso, error) {
	done := make(chan fetched, 1)

	go func() {
		var out fetched
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := e.glosas.SelectAll(gctx, glosa.ByFechaDesc)
			if err != nil {
				return fmt.Errorf("select glosas: %w", err)
			}
			out.glosas = rows
			return nil
		})
		g.Go(func() error {
			rows, err := e.ingresos.SelectAll(gctx, ingreso.OrderBy(glosa.ByFechaDesc))
			if err != nil {
				return fmt.Errorf("select ingresos: %w", err)
			}
			out.ingresos = rows
			return nil
		})
		out.err = g.Wait()
		done <- out
	}()

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.glosas, res.ingresos, res.err
	case <-timer.C:
		return nil, nil, ErrFetchTimeout
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
