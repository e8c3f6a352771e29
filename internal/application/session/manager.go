package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"3tcapital/goglosas/internal/application/reconciliation"
	"3tcapital/goglosas/internal/application/recovery"
	"3tcapital/goglosas/internal/application/workspace"
	coresession "3tcapital/goglosas/internal/core/session"
)

// Resetter forgets which user the last remote fetch was made for.
type Resetter interface {
	Reset()
}

// StartupReport describes what happened while a session was opened.
type StartupReport struct {
	Migration      recovery.MigrationReport `json:"migracion"`
	RecoveredFlags int                      `json:"banderas_recuperadas"`
	Fetch          reconciliation.Result    `json:"-"`
	FetchError     string                   `json:"error_sincronizacion,omitempty"`
}

// Manager owns the lifecycle of the signed-in user: it warms the workspace
// from the local cache, runs the one-shot recovery passes and triggers the
// first remote fetch. Signing out drops the in-memory data and the fetch guard.
type Manager struct {
	ws       *workspace.Workspace
	fetcher  recovery.Fetcher
	resetter Resetter
	scanner  *recovery.Scanner
	log      *slog.Logger

	mu      sync.RWMutex
	current coresession.Session
}

// NewManager wires a Manager. engine usually satisfies both fetcher and resetter.
func NewManager(ws *workspace.Workspace, fetcher recovery.Fetcher, resetter Resetter, scanner *recovery.Scanner, log *slog.Logger) *Manager {
	return &Manager{
		ws:       ws,
		fetcher:  fetcher,
		resetter: resetter,
		scanner:  scanner,
		log:      log.With("component", "session"),
	}
}

// SignIn opens sess. The cached data is available before the remote fetch
// starts; a failed fetch is reported but does not fail the sign-in.
func (m *Manager) SignIn(ctx context.Context, sess coresession.Session) (StartupReport, error) {
	if !sess.Authenticated() {
		return StartupReport{}, coresession.ErrNoSession
	}

	m.mu.Lock()
	previous := m.current
	m.current = sess
	m.mu.Unlock()

	if previous.Authenticated() && previous.UserID != sess.UserID {
		m.resetter.Reset()
		m.ws.Clear()
	}

	if err := m.ws.Load(ctx); err != nil {
		return StartupReport{}, fmt.Errorf("load local cache: %w", err)
	}

	var report StartupReport
	report.Migration = m.scanner.RunDeepScanMigration(ctx, sess)

	promoted, err := m.scanner.RunFlagRecovery(ctx)
	if err != nil {
		m.log.Warn("flag recovery failed", "error", err)
	}
	report.RecoveredFlags = promoted

	res, err := m.fetcher.FetchAndMerge(ctx, sess, reconciliation.Options{})
	if err != nil {
		m.log.Warn("initial fetch failed, serving cached data", "user", sess.UserID, "error", err)
		report.FetchError = err.Error()
	}
	report.Fetch = res

	m.log.Info("session started",
		"user", sess.UserID,
		"role", sess.Role,
		"glosas", len(m.ws.Glosas()),
		"recovered_flags", promoted,
	)
	return report, nil
}

// SignOut closes the current session.
func (m *Manager) SignOut() {
	m.mu.Lock()
	user := m.current.UserID
	m.current = coresession.Session{}
	m.mu.Unlock()

	m.resetter.Reset()
	m.ws.Clear()
	m.log.Info("session closed", "user", user)
}

// Current returns the open session, if any.
func (m *Manager) Current() (coresession.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current.Authenticated()
}
