package cursor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	val, err := store.Get(ctx, "dbid:unknown")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, store.Set(ctx, "dbid:abc", "/input/a.csv"))
	require.NoError(t, store.Set(ctx, "dbid:def", "/input/b.csv"))

	val, err = store.Get(ctx, "dbid:abc")
	require.NoError(t, err)
	assert.Equal(t, "/input/a.csv", val)

	// overwrite
	require.NoError(t, store.Set(ctx, "dbid:abc", "/input/c.csv"))
	val, err = store.Get(ctx, "dbid:abc")
	require.NoError(t, err)
	assert.Equal(t, "/input/c.csv", val)

	val, err = store.Get(ctx, "dbid:def")
	require.NoError(t, err)
	assert.Equal(t, "/input/b.csv", val)
}
