package discover

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// defaultPoolWorkers bounds the number of concurrent blocking CoordClient
// calls this library will issue on behalf of Register/Deregister/watch
// bootstrap.
const defaultPoolWorkers = 16

// blockingPool bounds how many blocking calls run at once, using a
// weighted semaphore to cap concurrency; each call runs on its caller's
// goroutine.
type blockingPool struct {
	sem *semaphore.Weighted
}

func newBlockingPool(maxWorkers int) *blockingPool {
	if maxWorkers <= 0 {
		maxWorkers = defaultPoolWorkers
	}
	return &blockingPool{sem: semaphore.NewWeighted(int64(maxWorkers))}
}

// run submits fn to the pool and blocks until it completes or ctx is
// canceled while waiting for a worker slot. The caller's goroutine runs fn
// itself once a slot is acquired; the semaphore only caps how many such
// calls are in flight at once.
func (p *blockingPool) run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return newJoinError("blockingPool.run", err)
	}
	defer p.sem.Release(1)

	return fn()
}
