package optimistic

import (
	"context"
	"slices"
)

// Fetch reads the authoritative records from the server.
type Fetch[T any] func(ctx context.Context) ([]T, error)

type RefreshResult[T any] struct {
	Records []T

	// Stale is set when Records came from the local store because the fetch
	// failed; Err holds that failure.
	Stale bool
	Err   error

	// Discarded is set when a mutation or a newer refresh overtook this one;
	// Records then holds the current view.
	Discarded bool
}

// Refresh fetches fresh records and installs them, or falls back to the local
// store when the fetch fails. It never returns an error: the outcome is
// described by the result.
func (v *View[T]) Refresh(ctx context.Context, fetch Fetch[T]) RefreshResult[T] {
	v.mu.Lock()
	if v.cancelRefresh != nil {
		v.cancelRefresh()
	}
	v.generation++
	gen := v.generation
	rctx, cancel := context.WithCancel(ctx)
	v.cancelRefresh = cancel
	v.mu.Unlock()
	defer cancel()

	fresh, fetchErr := fetch(rctx)

	if err := v.queue.acquire(ctx); err != nil {
		return RefreshResult[T]{Records: v.Records(), Discarded: true, Err: err}
	}
	defer v.queue.release()

	v.mu.Lock()
	current := v.generation == gen
	if current {
		v.cancelRefresh = nil
	}
	v.mu.Unlock()

	if !current {
		v.logger.Debug("refresh superseded, discarding result")
		return RefreshResult[T]{Records: v.Records(), Discarded: true}
	}

	if fetchErr != nil {
		cached := v.cache.Load(ctx)
		v.publish(cached, true)
		v.logger.Warn("refresh failed, serving cached records", "err", fetchErr, "records", len(cached))
		return RefreshResult[T]{Records: slices.Clone(cached), Stale: true, Err: fetchErr}
	}

	if fresh == nil {
		fresh = []T{}
	}
	v.publish(fresh, false)
	v.persist(ctx, fresh)
	v.settle(ctx, fresh)
	return RefreshResult[T]{Records: slices.Clone(fresh)}
}
