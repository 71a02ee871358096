package sessionstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	missing, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing, "a miss is (nil, nil), not an error")

	require.NoError(t, store.Set(ctx, "key", []byte("value")))
	stored, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), stored)

	// Mutating the returned slice must not leak into the store.
	stored[0] = 'X'
	fresh, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), fresh)

	require.NoError(t, store.Delete(ctx, "key"))
	deleted, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Nil(t, deleted)

	assert.NoError(t, store.Delete(ctx, "never-stored"))
}
