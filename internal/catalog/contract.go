package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSolutionStoreContract verifies that a SolutionStore implementation
// adheres to the interface contract. Adapter tests run it against their
// own backend.
func RunSolutionStoreContract(t *testing.T, store SolutionStore) {
	ctx := context.Background()
	stamp := time.Now().UTC().Truncate(time.Second)

	t.Run("Put and Get", func(t *testing.T) {
		sol := Solution{
			HardwareSlug: "scrapyard-one",
			ProgramSlug:  "pass-through",
			SourceCode:   "READ RX0\nWRITE RX0",
			UpdatedAt:    stamp,
		}
		require.NoError(t, store.Put(ctx, sol))

		loaded, err := store.Get(ctx, sol.HardwareSlug, sol.ProgramSlug)
		require.NoError(t, err)
		assert.Equal(t, sol.SourceCode, loaded.SourceCode)
		assert.Equal(t, sol.HardwareSlug, loaded.HardwareSlug)
		assert.Equal(t, sol.ProgramSlug, loaded.ProgramSlug)
		assert.True(t, loaded.UpdatedAt.Equal(stamp), "UpdatedAt %v, want %v", loaded.UpdatedAt, stamp)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "no-such-board", "no-such-program")
		assert.ErrorIs(t, err, ErrSolutionNotFound)
	})

	t.Run("Put Replaces", func(t *testing.T) {
		first := Solution{
			HardwareSlug: "scrapyard-one",
			ProgramSlug:  "doubler",
			SourceCode:   "READ RX0",
			UpdatedAt:    stamp,
		}
		require.NoError(t, store.Put(ctx, first))

		second := first
		second.SourceCode = "READ RX0\nADD RX0 RX0\nWRITE RX0"
		second.UpdatedAt = stamp.Add(time.Minute)
		require.NoError(t, store.Put(ctx, second))

		loaded, err := store.Get(ctx, first.HardwareSlug, first.ProgramSlug)
		require.NoError(t, err)
		assert.Equal(t, second.SourceCode, loaded.SourceCode)
		assert.True(t, loaded.UpdatedAt.Equal(second.UpdatedAt))
	})

	t.Run("List", func(t *testing.T) {
		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, SolutionKey{HardwareSlug: "scrapyard-one", ProgramSlug: "pass-through"})
		assert.Contains(t, keys, SolutionKey{HardwareSlug: "scrapyard-one", ProgramSlug: "doubler"})
	})
}
