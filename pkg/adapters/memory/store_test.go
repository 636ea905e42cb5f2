package memory_test

import (
	"testing"

	"github.com/aretw0/spindle/pkg/adapters/memory"
	"github.com/aretw0/spindle/pkg/ports"
)

type snapshot struct {
	Count int
	Label string
}

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore[snapshot]()
	ports.RunStateStoreContract[snapshot](t, store, func(seed int) snapshot {
		return snapshot{Count: seed, Label: "seed"}
	})
}
