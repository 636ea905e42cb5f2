package viewmodel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFlow_ObserveDeliversEveryVersionInOrder(t *testing.T) {
	flow := NewStateFlow(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := flow.Observe(ctx)
	for i := 1; i <= 100; i++ {
		flow.Set(i)
	}
	flow.close()

	var got []int
	for v := range ch {
		got = append(got, v)
	}
	require.Len(t, got, 101)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestStateFlow_LateSubscriberStartsAtCurrentValue(t *testing.T) {
	flow := NewStateFlow("a")
	flow.Set("b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := flow.Observe(ctx)

	assert.Equal(t, "b", <-ch)
	flow.Set("c")
	assert.Equal(t, "c", <-ch)
}

func TestStateFlow_CompareAndSetRejectsStaleVersion(t *testing.T) {
	flow := NewStateFlow(1)
	_, version := flow.Snapshot()

	assert.True(t, flow.CompareAndSet(version, 2))
	assert.False(t, flow.CompareAndSet(version, 3))
	assert.Equal(t, 2, flow.Value())
	assert.Equal(t, uint64(1), flow.Version())
}

func TestStateFlow_ConcurrentUpdates(t *testing.T) {
	flow := NewStateFlow(0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flow.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, flow.Value())
	assert.Equal(t, uint64(100), flow.Version())
}

func TestStateFlow_OnCommitFollowsCommitOrder(t *testing.T) {
	flow := NewStateFlow(0)
	var (
		mu   sync.Mutex
		seen []int
	)
	flow.onCommit = func(n int) {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	}

	observed := flow.Observe(context.Background())
	<-observed

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flow.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	want := make([]int, 100)
	for i := range want {
		want[i] = i + 1
		require.Equal(t, i+1, <-observed)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, seen)
}

func TestStateFlow_OnCommitMayReadValue(t *testing.T) {
	flow := NewStateFlow(0)
	var last int
	flow.onCommit = func(int) { last = flow.Value() }

	flow.Set(3)
	assert.Equal(t, 3, last)
}

func TestStateFlow_UpdateReturnsOldAndNew(t *testing.T) {
	flow := NewStateFlow(10)
	old, next := flow.Update(func(n int) int { return n * 2 })
	assert.Equal(t, 10, old)
	assert.Equal(t, 20, next)
}

func TestStateFlow_ObserverUnsubscribesOnCancel(t *testing.T) {
	flow := NewStateFlow(0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := flow.Observe(ctx)
	<-ch
	assert.Equal(t, 1, flow.Subscribers())

	cancel()
	assert.Eventually(t, func() bool { return flow.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStateFlow_ObserveAfterClose(t *testing.T) {
	flow := NewStateFlow(7)
	flow.close()

	ch := flow.Observe(context.Background())
	assert.Equal(t, 7, <-ch)
	_, open := <-ch
	assert.False(t, open)
}
