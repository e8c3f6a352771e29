package localstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("local store: key not found")

// Keys used by the workspace cache.
const (
	KeyGlosas        = "glosas_cache"
	KeyIngresos      = "ingresos_cache"
	KeyLastUpdated   = "glosas_last_updated"
	KeyMigrationMark = "glosas_deep_scan_migrated_v1"
)

// Keys written by earlier releases.
const (
	LegacyKeyGlosas       = "glosas"
	LegacyKeyGlosasBackup = "glosas_backup"
)

// LegacyKeys are scanned first during the deep scan migration.
var LegacyKeys = []string{LegacyKeyGlosas, LegacyKeyGlosasBackup}

// Store is a durable string key-value store holding the local cache.
// Values are opaque JSON documents.
type Store interface {
	// Get returns the raw value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys enumerates every key currently stored.
	Keys(ctx context.Context) ([]string, error)
}
