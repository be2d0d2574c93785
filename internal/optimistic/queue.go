package optimistic

import (
	"context"
	"sync"
)

// taskQueue admits one task at a time in arrival order. Unlike sync.Mutex it
// is FIFO and its acquire honours context cancellation.
type taskQueue struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

func (q *taskQueue) acquire(ctx context.Context) error {
	q.mu.Lock()
	if !q.busy {
		q.busy = true
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		for i, w := range q.waiters {
			if w == ch {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				q.mu.Unlock()
				return ctx.Err()
			}
		}
		q.mu.Unlock()
		// the slot was handed over while we were giving up
		q.release()
		return ctx.Err()
	}
}

func (q *taskQueue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiters) == 0 {
		q.busy = false
		return
	}
	next := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	close(next)
}

// waiting reports the number of queued tasks, excluding the running one.
func (q *taskQueue) waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
