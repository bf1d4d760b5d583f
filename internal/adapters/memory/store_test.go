package memory_test

import (
	"testing"

	"github.com/cogvm/cog/internal/adapters/memory"
	"github.com/cogvm/cog/internal/catalog"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.New()
	catalog.RunSolutionStoreContract(t, store)
}
