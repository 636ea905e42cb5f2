package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to a saved State across processes that share
// one store.
type DistributedLocker interface {
	// Lock acquires the lock for key, retrying until it succeeds or ctx is done.
	// The lock expires on its own after ttl. The returned UnlockFunc must be called
	// to release it early.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
