package savedstate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/spindle/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager[int](memory.NewStore[int]())
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("state-%d", i)
		_ = mgr.Save(ctx, id, i)
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks, "every lock entry is released after use")
}
