package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a session across replicas that share
// one SnapshotStore.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires on its own
	// after ttl so a crashed holder cannot wedge a session.
	// The returned UnlockFunc must be called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
