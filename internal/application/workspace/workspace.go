package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"3tcapital/goglosas/internal/core/glosa"
	"3tcapital/goglosas/internal/core/ingreso"
	"3tcapital/goglosas/internal/core/localstore"
)

// Status is the sync state exposed to dashboards.
type Status struct {
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
	LastSyncError string     `json:"last_sync_error,omitempty"`
	Syncing       bool       `json:"syncing"`
	Glosas        int        `json:"glosas"`
	Ingresos      int        `json:"ingresos"`
}

// Workspace holds the in-memory glosas and ingresos shared by every
// component and mirrors them to the local cache store. Reads return copies.
type Workspace struct {
	store localstore.Store
	log   *slog.Logger

	// persistMu orders cache writes so a later snapshot is never
	// overwritten by an earlier one.
	persistMu sync.Mutex

	mu          sync.RWMutex
	glosas      []glosa.Glosa
	ingresos    []ingreso.Ingreso
	lastUpdated time.Time
	lastError   string
	syncing     bool
}

// New creates an empty workspace backed by store.
func New(store localstore.Store, log *slog.Logger) *Workspace {
	return &Workspace{
		store: store,
		log:   log.With("component", "workspace"),
	}
}

// Store returns the local cache store backing the workspace.
func (w *Workspace) Store() localstore.Store {
	return w.store
}

// Load fills the workspace from the cache store. Missing keys leave the
// collections empty; records that fail to decode are skipped.
func (w *Workspace) Load(ctx context.Context) error {
	glosas, err := loadCollection[glosa.Glosa](ctx, w, localstore.KeyGlosas)
	if err != nil {
		return err
	}
	ingresos, err := loadCollection[ingreso.Ingreso](ctx, w, localstore.KeyIngresos)
	if err != nil {
		return err
	}

	var lastUpdated time.Time
	if raw, err := w.store.Get(ctx, localstore.KeyLastUpdated); err == nil {
		if parsed, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			lastUpdated = parsed
		}
	}

	w.mu.Lock()
	w.glosas = glosas
	w.ingresos = ingresos
	w.lastUpdated = lastUpdated
	w.mu.Unlock()

	w.log.Info("workspace loaded from cache", "glosas", len(glosas), "ingresos", len(ingresos))
	return nil
}

func loadCollection[T any](ctx context.Context, w *Workspace, key string) ([]T, error) {
	raw, err := w.store.Get(ctx, key)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache key %s: %w", key, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		w.log.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, nil
	}

	out := make([]T, 0, len(items))
	for idx, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			w.log.Warn("skipping unreadable cached record", "key", key, "index", idx, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Glosas returns a copy of the in-memory glosas.
func (w *Workspace) Glosas() []glosa.Glosa {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]glosa.Glosa(nil), w.glosas...)
}

// Ingresos returns a copy of the in-memory ingresos.
func (w *Workspace) Ingresos() []ingreso.Ingreso {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]ingreso.Ingreso(nil), w.ingresos...)
}

// GlosaByID returns the glosa with id.
func (w *Workspace) GlosaByID(id string) (glosa.Glosa, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, g := range w.glosas {
		if g.ID == id {
			return g, true
		}
	}
	return glosa.Glosa{}, false
}

// ReplaceAll swaps both collections, records a successful sync at `at` and
// overwrites the cache.
func (w *Workspace) ReplaceAll(ctx context.Context, glosas []glosa.Glosa, ingresos []ingreso.Ingreso, at time.Time) error {
	_, _, err := w.MergeRemote(ctx, at, func([]glosa.Glosa, []ingreso.Ingreso) ([]glosa.Glosa, []ingreso.Ingreso) {
		return append([]glosa.Glosa(nil), glosas...), append([]ingreso.Ingreso(nil), ingresos...)
	})
	return err
}

// MergeRemote replaces both collections with the result of merge, which
// runs under the write lock against private copies of the current state.
// The sync is recorded at `at` and the cache is overwritten. It returns
// copies of the stored collections.
func (w *Workspace) MergeRemote(ctx context.Context, at time.Time, merge func([]glosa.Glosa, []ingreso.Ingreso) ([]glosa.Glosa, []ingreso.Ingreso)) ([]glosa.Glosa, []ingreso.Ingreso, error) {
	w.mu.Lock()
	glosas, ingresos := merge(
		append([]glosa.Glosa(nil), w.glosas...),
		append([]ingreso.Ingreso(nil), w.ingresos...),
	)
	w.glosas = glosas
	w.ingresos = ingresos
	w.lastUpdated = at
	w.lastError = ""
	outG := append([]glosa.Glosa(nil), glosas...)
	outI := append([]ingreso.Ingreso(nil), ingresos...)
	w.mu.Unlock()

	if err := w.Persist(ctx); err != nil {
		return outG, outI, err
	}
	if err := w.store.Set(ctx, localstore.KeyLastUpdated, at.Format(time.RFC3339Nano)); err != nil {
		return outG, outI, fmt.Errorf("write cache key %s: %w", localstore.KeyLastUpdated, err)
	}
	return outG, outI, nil
}

// MutateGlosas applies fn to the glosas under the write lock and persists
// the result. fn receives a private copy it may modify freely.
func (w *Workspace) MutateGlosas(ctx context.Context, fn func([]glosa.Glosa) []glosa.Glosa) error {
	w.mu.Lock()
	w.glosas = fn(append([]glosa.Glosa(nil), w.glosas...))
	w.mu.Unlock()
	return w.persistGlosas(ctx)
}

// MutateIngresos applies fn to the ingresos under the write lock and
// persists the result.
func (w *Workspace) MutateIngresos(ctx context.Context, fn func([]ingreso.Ingreso) []ingreso.Ingreso) error {
	w.mu.Lock()
	w.ingresos = fn(append([]ingreso.Ingreso(nil), w.ingresos...))
	w.mu.Unlock()
	return w.persistIngresos(ctx)
}

// Persist writes both collections to the cache store.
func (w *Workspace) Persist(ctx context.Context) error {
	if err := w.persistGlosas(ctx); err != nil {
		return err
	}
	return w.persistIngresos(ctx)
}

func (w *Workspace) persistGlosas(ctx context.Context) error {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	return w.write(ctx, localstore.KeyGlosas, w.Glosas())
}

func (w *Workspace) persistIngresos(ctx context.Context) error {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	return w.write(ctx, localstore.KeyIngresos, w.Ingresos())
}

func (w *Workspace) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache key %s: %w", key, err)
	}
	if err := w.store.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write cache key %s: %w", key, err)
	}
	return nil
}

// SetSyncError records the message of the last failed remote operation.
func (w *Workspace) SetSyncError(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	w.lastError = err.Error()
	w.mu.Unlock()
}

// SetSyncing flags whether a fetch is in flight.
func (w *Workspace) SetSyncing(syncing bool) {
	w.mu.Lock()
	w.syncing = syncing
	w.mu.Unlock()
}

// Status returns a snapshot of the sync state.
func (w *Workspace) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Status{
		LastSyncError: w.lastError,
		Syncing:       w.syncing,
		Glosas:        len(w.glosas),
		Ingresos:      len(w.ingresos),
	}
	if !w.lastUpdated.IsZero() {
		at := w.lastUpdated
		st.LastUpdated = &at
	}
	return st
}

// Clear empties the in-memory collections without touching the cache.
func (w *Workspace) Clear() {
	w.mu.Lock()
	w.glosas = nil
	w.ingresos = nil
	w.lastError = ""
	w.mu.Unlock()
}
