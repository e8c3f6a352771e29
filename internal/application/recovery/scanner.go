package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"3tcapital/goglosas/internal/application/reconciliation"
	"3tcapital/goglosas/internal/application/workspace"
	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/localstore"
	"3tcapital/goglosas/internal/core/session"
	"3tcapital/goglosas/internal/infrastructure/metrics"
)

// Fetcher refreshes the workspace from the remote store.
type Fetcher interface {
	FetchAndMerge(ctx context.Context, sess session.Session, opts reconciliation.Options) (reconciliation.Result, error)
}

// MigrationReport summarises a deep scan run.
type MigrationReport struct {
	AlreadyMigrated bool     `json:"already_migrated"`
	KeysScanned     int      `json:"keys_scanned"`
	RecoveredKeys   []string `json:"recovered_keys,omitempty"`
	Glosas          int      `json:"glosas"`
	Ingresos        int      `json:"ingresos"`
	Refreshed       bool     `json:"refreshed"`
}

// Recovered reports whether any record was found.
func (r MigrationReport) Recovered() bool {
	return r.Glosas+r.Ingresos > 0
}

// Scanner recovers data left in the local store by earlier releases.
type Scanner struct {
	store   localstore.Store
	ws      *workspace.Workspace
	glosas  glosa.Repository
	fetcher Fetcher
	limiter *rate.Limiter
	metrics *metrics.Sync
	log     *slog.Logger
}

// NewScanner wires a Scanner. flagSyncRPS bounds remote updates issued by
// SyncPromotedFlags; zero or less disables throttling.
func NewScanner(ws *workspace.Workspace, glosas glosa.Repository, fetcher Fetcher, flagSyncRPS float64, m *metrics.Sync, log *slog.Logger) *Scanner {
	limit := rate.Inf
	burst := 1
	if flagSyncRPS > 0 {
		limit = rate.Limit(flagSyncRPS)
		burst = int(flagSyncRPS)
		if burst < 1 {
			burst = 1
		}
	}
	return &Scanner{
		store:   ws.Store(),
		ws:      ws,
		glosas:  glosas,
		fetcher: fetcher,
		limiter: rate.NewLimiter(limit, burst),
		metrics: m,
		log:     log.With("component", "recovery"),
	}
}

// RunDeepScanMigration scans every key of the local store once. Per-key
// failures are logged and skipped; the method never fails. When anything
// is recovered the migration marker is written and the workspace is
// replaced by a forced remote fetch.
func (s *Scanner) RunDeepScanMigration(ctx context.Context, sess session.Session) MigrationReport {
	var report MigrationReport

	if _, err := s.store.Get(ctx, localstore.KeyMigrationMark); err == nil {
		report.AlreadyMigrated = true
		return report
	} else if !errors.Is(err, localstore.ErrNotFound) {
		s.log.Warn("cannot read migration marker", "error", err)
	}

	for _, key := range s.scanOrder(ctx) {
		report.KeysScanned++

		raw, err := s.store.Get(ctx, key)
		if err != nil {
			s.log.Debug("deep scan: unreadable key", "key", key, "error", err)
			continue
		}
		decoded, err := Decode([]byte(raw))
		if err != nil || decoded.Len() == 0 {
			continue
		}

		report.RecoveredKeys = append(report.RecoveredKeys, key)
		report.Glosas += len(decoded.Glosas)
		report.Ingresos += len(decoded.Ingresos)
		s.log.Info("deep scan: recovered collection", "key", key, "kind", decoded.Kind.String(), "records", decoded.Len())
	}

	if !report.Recovered() {
		s.log.Info("deep scan: nothing to recover", "keys_scanned", report.KeysScanned)
		return report
	}

	if err := s.store.Set(ctx, localstore.KeyMigrationMark, "true"); err != nil {
		s.log.Error("deep scan: cannot write migration marker", "error", err)
	}

	if _, err := s.fetcher.FetchAndMerge(ctx, sess, reconciliation.Options{Force: true}); err != nil {
		s.log.Error("deep scan: refresh after migration failed", "error", err)
	} else {
		report.Refreshed = true
	}

	s.log.Info("deep scan migration completed",
		"keys_scanned", report.KeysScanned,
		"glosas", report.Glosas,
		"ingresos", report.Ingresos,
	)
	return report
}

// scanOrder lists the legacy keys first followed by every other key,
// each name once.
func (s *Scanner) scanOrder(ctx context.Context) []string {
	seen := make(map[string]struct{})
	var order []string
	add := func(k string) {
		if k == localstore.KeyMigrationMark {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		order = append(order, k)
	}

	for _, k := range localstore.LegacyKeys {
		add(k)
	}
	keys, err := s.store.Keys(ctx)
	if err != nil {
		s.log.Warn("deep scan: cannot enumerate keys", "error", err)
	}
	for _, k := range keys {
		add(k)
	}
	return order
}

// RunFlagRecovery restores internal-registration flags found anywhere in
// the local store onto the in-memory glosas. It never contacts the remote
// store; use SyncPromotedFlags for that.
func (s *Scanner) RunFlagRecovery(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list local keys: %w", err)
	}

	var flagged []glosa.Glosa
	for _, key := range keys {
		raw, err := s.store.Get(ctx, key)
		if err != nil {
			continue
		}
		if !strings.Contains(raw, FlagField) {
			continue
		}
		for _, g := range decodeGlosaRecords([]byte(raw)) {
			if g.RegistradaInternamente {
				flagged = append(flagged, g)
			}
		}
	}
	if len(flagged) == 0 {
		return 0, nil
	}

	current := s.ws.Glosas()
	promote := make(map[string]struct{})
	for _, rec := range flagged {
		key := rec.DuplicateKey()
		for i := range current {
			cur := &current[i]
			if cur.RegistradaInternamente {
				continue
			}
			if cur.ID == rec.ID || cur.DuplicateKey() == key {
				cur.RegistradaInternamente = true
				promote[cur.ID] = struct{}{}
				break
			}
		}
	}

	count := len(promote)
	if count == 0 {
		return 0, nil
	}

	err = s.ws.MutateGlosas(ctx, func(gs []glosa.Glosa) []glosa.Glosa {
		for i := range gs {
			if _, ok := promote[gs[i].ID]; ok {
				gs[i].RegistradaInternamente = true
			}
		}
		return gs
	})
	if err != nil {
		return count, fmt.Errorf("persist recovered flags: %w", err)
	}

	s.metrics.FlagsRecovered(count)
	s.log.Info("flag recovery completed", "recovered", count)
	return count, nil
}

// SyncPromotedFlags pushes every flagged glosa in the local cache to the
// remote store. Individual failures are logged and skipped. Safe to re-run.
func (s *Scanner) SyncPromotedFlags(ctx context.Context) (int, error) {
	raw, err := s.store.Get(ctx, localstore.KeyGlosas)
	if errors.Is(err, localstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache key %s: %w", localstore.KeyGlosas, err)
	}

	patch := glosa.RegistroInternoPatch()
	synced := 0
	failed := 0

	for _, g := range decodeGlosaRecords([]byte(raw)) {
		if !g.RegistradaInternamente {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return synced, fmt.Errorf("flag sync interrupted: %w", err)
		}
		if err := s.glosas.Update(ctx, g.ID, patch); err != nil {
			failed++
			s.log.Warn("flag sync failed for glosa", "id", g.ID, "error", err)
			continue
		}
		synced++
	}

	s.metrics.FlagsSynced(synced)
	s.log.Info("flag sync completed", "synced", synced, "failed", failed)
	return synced, nil
}
