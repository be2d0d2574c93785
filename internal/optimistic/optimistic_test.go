package optimistic

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveljko/timetick/internal/store"
)

type item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Server bool   `json:"server"`
}

var errOffline = errors.New("offline")

func newTestView(t *testing.T) (*View[item], *store.Memory, *store.Collection[item]) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	cache := store.NewCollection[item](mem, "items", logger)
	return New(cache, func(i item) string { return i.ID }, logger), mem, cache
}

func seed(t *testing.T, v *View[item], records ...item) {
	t.Helper()
	res := v.Refresh(context.Background(), func(context.Context) ([]item, error) {
		return records, nil
	})
	require.False(t, res.Stale)
	require.False(t, res.Discarded)
}

func createItem(tempID, name, serverID string, remoteErr error) Mutation[item, item] {
	return Mutation[item, item]{
		Kind: "create",
		Apply: func(cur []item) ([]item, error) {
			return append([]item{{ID: tempID, Name: name}}, cur...), nil
		},
		Remote: func(context.Context) (item, error) {
			if remoteErr != nil {
				return item{}, remoteErr
			}
			return item{ID: serverID, Name: name, Server: true}, nil
		},
		Reconcile: func(speculative []item, confirmed item) []item {
			for i := range speculative {
				if speculative[i].ID == tempID {
					speculative[i] = confirmed
				}
			}
			return speculative
		},
	}
}

func TestMutateConfirms(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)
	seed(t, v, item{ID: "1", Name: "one", Server: true})

	var changes [][]item
	v.OnChange(func(records []item) { changes = append(changes, records) })

	var settled []item
	v.OnSettle(func(_ context.Context, records []item) { settled = records })

	got, err := Mutate(ctx, v, createItem("tmp", "two", "2", nil))
	require.NoError(t, err)
	assert.Equal(t, "2", got.ID)

	want := []item{{ID: "2", Name: "two", Server: true}, {ID: "1", Name: "one", Server: true}}
	assert.Equal(t, want, v.Records())
	assert.Equal(t, want, cache.Load(ctx))
	assert.Equal(t, want, settled)

	require.Len(t, changes, 2)
	assert.Equal(t, "tmp", changes[0][0].ID)
	assert.Equal(t, want, changes[1])
}

func TestMutateRollsBack(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)
	seed(t, v, item{ID: "1", Name: "one", Server: true})
	snapshot := v.Records()

	var changes [][]item
	v.OnChange(func(records []item) { changes = append(changes, records) })
	settleCalls := 0
	v.OnSettle(func(context.Context, []item) { settleCalls++ })

	_, err := Mutate(ctx, v, createItem("tmp", "two", "2", errOffline))
	require.ErrorIs(t, err, errOffline)

	assert.Equal(t, snapshot, v.Records())
	assert.Equal(t, snapshot, cache.Load(ctx))
	assert.Zero(t, settleCalls)

	require.Len(t, changes, 2)
	assert.Len(t, changes[0], 2)
	assert.Equal(t, snapshot, changes[1])
}

func TestMutateRollbackSurvivesStoreFailure(t *testing.T) {
	ctx := context.Background()
	v, mem, _ := newTestView(t)
	seed(t, v, item{ID: "1", Name: "one", Server: true})
	snapshot := v.Records()

	m := createItem("tmp", "two", "2", nil)
	m.Remote = func(context.Context) (item, error) {
		mem.Fail(errors.New("disk full"))
		return item{}, errOffline
	}

	_, err := Mutate(ctx, v, m)
	require.ErrorIs(t, err, errOffline)
	assert.Equal(t, snapshot, v.Records())
}

func TestMutateApplyErrorChangesNothing(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)
	seed(t, v, item{ID: "1", Name: "one", Server: true})

	changed := false
	v.OnChange(func([]item) { changed = true })

	errRejected := errors.New("rejected")
	remoteCalled := false
	_, err := Mutate(ctx, v, Mutation[item, struct{}]{
		Kind:  "delete",
		Apply: func([]item) ([]item, error) { return nil, errRejected },
		Remote: func(context.Context) (struct{}, error) {
			remoteCalled = true
			return struct{}{}, nil
		},
	})

	require.ErrorIs(t, err, errRejected)
	assert.False(t, remoteCalled)
	assert.False(t, changed)
	assert.Equal(t, []item{{ID: "1", Name: "one", Server: true}}, cache.Load(ctx))
}

func TestMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestView(t)

	release := make(chan struct{})
	started := make(chan struct{})

	first := createItem("tmp-a", "a", "A", nil)
	remote := first.Remote
	first.Remote = func(ctx context.Context) (item, error) {
		close(started)
		<-release
		return remote(ctx)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := Mutate(ctx, v, first)
		assert.NoError(t, err)
	}()
	<-started

	var observed []item
	second := createItem("tmp-b", "b", "B", nil)
	apply := second.Apply
	second.Apply = func(cur []item) ([]item, error) {
		observed = cur
		return apply(cur)
	}
	go func() {
		defer wg.Done()
		_, err := Mutate(ctx, v, second)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return v.queue.waiting() == 1 }, time.Second, time.Millisecond)
	assert.True(t, v.Busy())
	close(release)
	wg.Wait()

	assert.Equal(t, []item{{ID: "A", Name: "a", Server: true}}, observed)
	assert.Equal(t, []item{
		{ID: "B", Name: "b", Server: true},
		{ID: "A", Name: "a", Server: true},
	}, v.Records())
	assert.False(t, v.Busy())
}

func TestRefreshFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)
	stored := []item{{ID: "1", Name: "one", Server: true}, {ID: "2", Name: "two", Server: true}}
	require.NoError(t, cache.Save(ctx, stored))

	res := v.Refresh(ctx, func(context.Context) ([]item, error) { return nil, errOffline })

	assert.True(t, res.Stale)
	assert.ErrorIs(t, res.Err, errOffline)
	assert.Equal(t, stored, res.Records)
	assert.Equal(t, stored, v.Records())
	assert.Equal(t, stored, cache.Load(ctx))
	assert.True(t, v.Stale())

	res = v.Refresh(ctx, func(context.Context) ([]item, error) { return stored[:1], nil })
	assert.False(t, res.Stale)
	assert.False(t, v.Stale())
	assert.Equal(t, stored[:1], cache.Load(ctx))
}

func TestRefreshWithoutCacheIsEmpty(t *testing.T) {
	v, _, _ := newTestView(t)

	res := v.Refresh(context.Background(), func(context.Context) ([]item, error) { return nil, errOffline })

	assert.True(t, res.Stale)
	assert.Equal(t, []item{}, res.Records)
	assert.Equal(t, []item{}, v.Records())
}

func TestRefreshCancelledByMutation(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestView(t)

	fetching := make(chan struct{})
	done := make(chan RefreshResult[item])
	go func() {
		done <- v.Refresh(ctx, func(ctx context.Context) ([]item, error) {
			close(fetching)
			<-ctx.Done()
			return nil, ctx.Err()
		})
	}()
	<-fetching

	_, err := Mutate(ctx, v, createItem("tmp", "new", "N", nil))
	require.NoError(t, err)

	res := <-done
	assert.True(t, res.Discarded)
	assert.False(t, res.Stale)
	assert.Equal(t, []item{{ID: "N", Name: "new", Server: true}}, v.Records())
}

func TestRefreshResultDiscardedAfterMutation(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)

	fetching := make(chan struct{})
	release := make(chan struct{})
	done := make(chan RefreshResult[item])
	go func() {
		// ignores cancellation and answers with data from before the mutation
		done <- v.Refresh(ctx, func(context.Context) ([]item, error) {
			close(fetching)
			<-release
			return []item{{ID: "old", Server: true}}, nil
		})
	}()
	<-fetching

	_, err := Mutate(ctx, v, createItem("tmp", "new", "N", nil))
	require.NoError(t, err)
	close(release)

	res := <-done
	assert.True(t, res.Discarded)
	want := []item{{ID: "N", Name: "new", Server: true}}
	assert.Equal(t, want, v.Records())
	assert.Equal(t, want, cache.Load(ctx))
}

func TestNewerRefreshWins(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestView(t)

	fetching := make(chan struct{})
	done := make(chan RefreshResult[item])
	go func() {
		done <- v.Refresh(ctx, func(ctx context.Context) ([]item, error) {
			close(fetching)
			<-ctx.Done()
			return nil, ctx.Err()
		})
	}()
	<-fetching

	res := v.Refresh(ctx, func(context.Context) ([]item, error) { return []item{{ID: "fresh"}}, nil })
	assert.False(t, res.Discarded)

	old := <-done
	assert.True(t, old.Discarded)
	assert.Equal(t, []item{{ID: "fresh"}}, v.Records())
}

func TestTransform(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)
	seed(t, v, item{ID: "1", Name: "one"})

	require.NoError(t, v.Transform(ctx, func(cur []item) ([]item, bool) {
		cur[0].Name = "uno"
		return cur, true
	}))
	assert.Equal(t, "uno", v.Records()[0].Name)
	assert.Equal(t, "uno", cache.Load(ctx)[0].Name)

	calls := 0
	v.OnChange(func([]item) { calls++ })
	require.NoError(t, v.Transform(ctx, func(cur []item) ([]item, bool) { return cur, false }))
	assert.Zero(t, calls)
}

func TestLoadCache(t *testing.T) {
	ctx := context.Background()
	v, _, cache := newTestView(t)
	require.NoError(t, cache.Save(ctx, []item{{ID: "1"}}))

	records, err := v.LoadCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "1"}}, records)

	found, ok := v.Find("1")
	assert.True(t, ok)
	assert.Equal(t, "1", found.ID)
	_, ok = v.Find("2")
	assert.False(t, ok)
}

func TestTempIDsAreDistinct(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := TempID("projects", now)
	b := TempID("projects", now)
	c := TempID("timeEntries", now)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "projects")
}

func TestQueueAcquireHonoursContext(t *testing.T) {
	var q taskQueue
	require.NoError(t, q.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.acquire(ctx), context.DeadlineExceeded)
	assert.Zero(t, q.waiting())

	q.release()
	require.NoError(t, q.acquire(context.Background()))
	q.release()
}

func TestQueueIsFIFO(t *testing.T) {
	var q taskQueue
	require.NoError(t, q.acquire(context.Background()))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, q.acquire(context.Background()))
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			q.release()
		}()
		require.Eventually(t, func() bool { return q.waiting() == i+1 }, time.Second, time.Millisecond)
	}

	q.release()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2}, order)
}
