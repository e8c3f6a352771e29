package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/goglosas/internal/testutil"
)

func TestStore(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testutil.RunStoreContract(t, store)
}

func TestOpen_ReopenKeepsDataAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "glosas", `[{"id":"legacy"}]`))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var version int
	require.NoError(t, reopened.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	got, err := reopened.Get(ctx, "glosas")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"legacy"}]`, got)
}
