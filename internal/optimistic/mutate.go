package optimistic

import (
	"context"
	"slices"
)

// Mutation describes one optimistic change to a View.
type Mutation[T, R any] struct {
	// Kind names the mutation in logs.
	Kind string

	// Apply returns the speculative records. It receives a copy of the
	// snapshot; an error rejects the mutation before anything changes.
	Apply func(current []T) ([]T, error)

	// Remote performs the server call.
	Remote func(ctx context.Context) (R, error)

	// Reconcile folds the server result into the speculative records. When
	// nil the speculative records are kept as they are.
	Reconcile func(speculative []T, result R) []T
}

// Mutate runs m against v once every earlier task on v has finished. It
// returns the remote result, the Apply error, or the remote error after the
// view and the local store have been restored to the snapshot.
func Mutate[T, R any](ctx context.Context, v *View[T], m Mutation[T, R]) (R, error) {
	var zero R

	v.inflight.Add(1)
	defer v.inflight.Add(-1)

	if err := v.queue.acquire(ctx); err != nil {
		return zero, err
	}
	defer v.queue.release()

	v.supersede()

	// phase 1
	snapshot := v.Records()
	stale := v.Stale()

	// phase 2
	speculative, err := m.Apply(slices.Clone(snapshot))
	if err != nil {
		return zero, err
	}
	v.publish(speculative, stale)
	v.persist(ctx, speculative)

	// phase 3
	result, err := m.Remote(ctx)
	if err != nil {
		v.publish(snapshot, stale)
		v.persist(ctx, snapshot)
		v.supersede()
		v.logger.Warn("mutation rolled back", "kind", m.Kind, "err", err)
		return zero, err
	}

	confirmed := speculative
	if m.Reconcile != nil {
		confirmed = m.Reconcile(slices.Clone(speculative), result)
	}
	v.publish(confirmed, stale)
	v.persist(ctx, confirmed)
	v.supersede()
	v.settle(ctx, confirmed)

	v.logger.Debug("mutation confirmed", "kind", m.Kind)
	return result, nil
}
