package ftpfs

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// exclusive is the single mutual-exclusion primitive serializing all
// protocol exchanges on one connection. Acquisition is context-aware, so
// the suspending (cancellable) and blocking calling conventions share the
// same slot and can never interleave their exchanges. Waiters are served
// in acquisition order.
type exclusive struct {
	sem *semaphore.Weighted
}

func newExclusive() *exclusive {
	return &exclusive{sem: semaphore.NewWeighted(1)}
}

// acquire waits for the slot and returns a scoped guard. The blocking form
// passes context.Background(); a cancelled wait returns the context error
// without holding anything.
func (e *exclusive) acquire(ctx context.Context) (*guard, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &guard{sem: e.sem}, nil
}

// guard is a held acquisition. release is idempotent so it can sit in a
// defer while also being handed to a longer-lived owner (a read handle)
// that releases explicitly.
type guard struct {
	sem  *semaphore.Weighted
	once sync.Once
}

func (g *guard) release() {
	g.once.Do(func() { g.sem.Release(1) })
}
