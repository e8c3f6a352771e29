package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"3tcapital/goglosas/internal/core/localstore"
)

// RunStoreContract exercises the behaviour every localstore.Store adapter
// must share. The store must start empty.
func RunStoreContract(t *testing.T, store localstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, localstore.ErrNotFound)

	require.NoError(t, store.Set(ctx, localstore.KeyGlosas, `[{"id":"1"}]`))
	require.NoError(t, store.Set(ctx, "glosas_backup", `[]`))

	got, err := store.Get(ctx, localstore.KeyGlosas)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, got)

	require.NoError(t, store.Set(ctx, localstore.KeyGlosas, `[]`))
	got, err = store.Get(ctx, localstore.KeyGlosas)
	require.NoError(t, err)
	assert.Equal(t, `[]`, got, "Set must overwrite")

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{localstore.KeyGlosas, "glosas_backup"}, keys)

	require.NoError(t, store.Delete(ctx, "glosas_backup"))
	require.NoError(t, store.Delete(ctx, "never-set"))
	_, err = store.Get(ctx, "glosas_backup")
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}
