// Package optimistic keeps an in-memory view of one collection consistent
// with the local store while remote changes are in flight.
//
// Every change to a View goes through its FIFO task queue, so a mutation
// always snapshots the settled result of the one before it. A mutation runs
// in three phases:
//
//  1. snapshot the current records
//  2. publish and persist a speculative result before the remote call
//  3. on success publish the server-confirmed result, on failure restore
//     the snapshot exactly
//
// Refresh implements fetch-with-fallback: fresh remote data replaces the view
// and the local store, a failed fetch serves the local store instead. A
// refresh that is overtaken by a mutation is discarded.
package optimistic

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/steveljko/timetick/internal/store"
)

// View is the in-memory copy of one collection. It is the only writer of the
// collection's records and of its local store entry.
type View[T any] struct {
	name   string
	key    func(T) string
	cache  *store.Collection[T]
	logger *slog.Logger

	queue    taskQueue
	inflight atomic.Int32

	mu            sync.RWMutex
	records       []T
	stale         bool
	generation    uint64
	cancelRefresh context.CancelFunc
	listeners     []func([]T)
	settled       []func(context.Context, []T)
}

// New creates an empty view over cache. key returns a record's identifier.
func New[T any](cache *store.Collection[T], key func(T) string, logger *slog.Logger) *View[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &View[T]{
		name:    cache.Name(),
		key:     key,
		cache:   cache,
		logger:  logger.With("collection", cache.Name()),
		records: []T{},
	}
}

func (v *View[T]) Name() string { return v.name }

// Records returns a copy of the current records.
func (v *View[T]) Records() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.records)
}

func (v *View[T]) Find(id string) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i := v.IndexOf(v.records, id); i >= 0 {
		return v.records[i], true
	}
	var zero T
	return zero, false
}

// IndexOf returns the position of the record with identifier id, or -1.
func (v *View[T]) IndexOf(records []T, id string) int {
	return slices.IndexFunc(records, func(r T) bool { return v.key(r) == id })
}

// Stale reports whether the records came from the local store after a failed
// refresh.
func (v *View[T]) Stale() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stale
}

// Busy reports whether a mutation is running or queued.
func (v *View[T]) Busy() bool {
	return v.inflight.Load() > 0
}

// OnChange registers fn to receive a copy of the records after every change,
// speculative ones included.
func (v *View[T]) OnChange(fn func([]T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// OnSettle registers fn to run after a mutation is confirmed by the server or
// a refresh brings fresh data. fn runs before the next task on this view.
func (v *View[T]) OnSettle(fn func(ctx context.Context, records []T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settled = append(v.settled, fn)
}

// LoadCache replaces the view with the local store contents.
func (v *View[T]) LoadCache(ctx context.Context) ([]T, error) {
	if err := v.queue.acquire(ctx); err != nil {
		return nil, err
	}
	defer v.queue.release()

	records := v.cache.Load(ctx)
	v.publish(records, false)
	return slices.Clone(records), nil
}

// Transform applies a local-only change through the task queue and persists
// it when fn reports a change.
func (v *View[T]) Transform(ctx context.Context, fn func([]T) ([]T, bool)) error {
	if err := v.queue.acquire(ctx); err != nil {
		return err
	}
	defer v.queue.release()

	v.supersede()
	next, changed := fn(v.Records())
	if !changed {
		return nil
	}
	v.publish(next, v.Stale())
	v.persist(ctx, next)
	return nil
}

// publish swaps in records and notifies listeners.
func (v *View[T]) publish(records []T, stale bool) {
	if records == nil {
		records = []T{}
	}

	v.mu.Lock()
	v.records = records
	v.stale = stale
	listeners := slices.Clone(v.listeners)
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(records))
	}
}

// persist writes records to the local store. A failed write is logged only:
// the in-memory view stays authoritative for this process.
func (v *View[T]) persist(ctx context.Context, records []T) {
	if err := v.cache.Save(context.WithoutCancel(ctx), records); err != nil {
		v.logger.Warn("failed to persist collection", "err", err)
	}
}

func (v *View[T]) settle(ctx context.Context, records []T) {
	v.mu.RLock()
	fns := slices.Clone(v.settled)
	v.mu.RUnlock()

	for _, fn := range fns {
		fn(context.WithoutCancel(ctx), slices.Clone(records))
	}
}

// supersede invalidates any in-flight refresh.
func (v *View[T]) supersede() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	if v.cancelRefresh != nil {
		v.cancelRefresh()
		v.cancelRefresh = nil
	}
}

var tempSeq atomic.Uint64

// TempID returns an identifier for a provisional record. The nanosecond clock
// reading plus the collection name distinguishes concurrent creates; the
// sequence number covers clocks with coarse resolution.
func TempID(collection string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", collection, now.UnixNano(), tempSeq.Add(1))
}
