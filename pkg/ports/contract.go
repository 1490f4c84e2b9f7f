package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFlagStoreContract runs a suite of tests to verify that a FlagStore implementation
// adheres to the defined interface contract.
func RunFlagStoreContract(t *testing.T, store FlagStore) {
	t.Helper()
	ctx := context.Background()
	key := "contract-flag-" + time.Now().Format("20060102150405")

	t.Run("Unset Key Is False", func(t *testing.T) {
		v, err := store.GetFlag(ctx, "never-set-"+key)
		require.NoError(t, err)
		assert.False(t, v)
	})

	t.Run("Set And Get", func(t *testing.T) {
		require.NoError(t, store.SetFlag(ctx, key, true))

		v, err := store.GetFlag(ctx, key)
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.SetFlag(ctx, key, true))
		require.NoError(t, store.SetFlag(ctx, key, false))

		v, err := store.GetFlag(ctx, key)
		require.NoError(t, err)
		assert.False(t, v)
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		require.NoError(t, store.SetFlag(ctx, key+"-a", true))
		require.NoError(t, store.SetFlag(ctx, key+"-b", false))

		a, err := store.GetFlag(ctx, key+"-a")
		require.NoError(t, err)
		b, err := store.GetFlag(ctx, key+"-b")
		require.NoError(t, err)
		assert.True(t, a)
		assert.False(t, b)
	})
}
