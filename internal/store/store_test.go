package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveljko/timetick/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEntries() []model.TimeEntry {
	start := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	return []model.TimeEntry{
		{
			ID:           "e2",
			ProjectName:  model.GeneralLabel,
			ProjectColor: model.DefaultColor,
			StartTime:    end.Add(time.Minute),
			Status:       model.StatusConfirmed,
		},
		{
			ID:           "e1",
			ProjectID:    "p1",
			ProjectName:  "Work",
			ProjectColor: "#111111",
			StartTime:    start,
			EndTime:      &end,
			Duration:     90 * time.Second,
			Status:       model.StatusConfirmed,
		},
	}
}

func TestRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepo(filepath.Join(t.TempDir(), "nested", "timetick.db"))
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Put(ctx, "projects", []byte(`[1]`)))
	require.NoError(t, repo.Put(ctx, "projects", []byte(`[2]`)))

	got, err := repo.Get(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(got))

	require.NoError(t, repo.Delete(ctx, "projects"))
	_, err = repo.Get(ctx, "projects")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepoSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timetick.db")

	repo, err := NewRepo(path)
	require.NoError(t, err)
	entries := NewCollection[model.TimeEntry](repo, TimeEntriesCollection, quietLogger())
	require.NoError(t, entries.Save(ctx, sampleEntries()))
	require.NoError(t, repo.Close())

	repo, err = NewRepo(path)
	require.NoError(t, err)
	defer repo.Close()

	entries = NewCollection[model.TimeEntry](repo, TimeEntriesCollection, quietLogger())
	assert.Equal(t, sampleEntries(), entries.Load(ctx))
}

func TestCollectionDatesRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[model.TimeEntry](NewMemory(), TimeEntriesCollection, quietLogger())

	require.NoError(t, c.Save(ctx, sampleEntries()))
	loaded := c.Load(ctx)

	require.Len(t, loaded, 2)
	assert.Nil(t, loaded[0].EndTime)
	require.NotNil(t, loaded[1].EndTime)
	assert.True(t, loaded[1].EndTime.Equal(loaded[1].StartTime.Add(90*time.Second)))
	assert.Equal(t, sampleEntries(), loaded)
}

func TestCollectionLoadDegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		c := NewCollection[model.Project](NewMemory(), ProjectsCollection, quietLogger())
		assert.Equal(t, []model.Project{}, c.Load(ctx))
	})

	t.Run("corrupt", func(t *testing.T) {
		mem := NewMemory()
		require.NoError(t, mem.Put(ctx, ProjectsCollection, []byte(`{not json`)))
		c := NewCollection[model.Project](mem, ProjectsCollection, quietLogger())
		assert.Equal(t, []model.Project{}, c.Load(ctx))
	})

	t.Run("null payload", func(t *testing.T) {
		mem := NewMemory()
		require.NoError(t, mem.Put(ctx, ProjectsCollection, []byte(`null`)))
		c := NewCollection[model.Project](mem, ProjectsCollection, quietLogger())
		assert.Equal(t, []model.Project{}, c.Load(ctx))
	})

	t.Run("backend failing", func(t *testing.T) {
		mem := NewMemory()
		mem.Fail(errors.New("disk gone"))
		c := NewCollection[model.Project](mem, ProjectsCollection, quietLogger())
		assert.Equal(t, []model.Project{}, c.Load(ctx))
		assert.Error(t, c.Save(ctx, []model.Project{{ID: "p1"}}))
	})

	t.Run("no backend", func(t *testing.T) {
		c := NewCollection[model.Project](nil, ProjectsCollection, quietLogger())
		assert.Equal(t, []model.Project{}, c.Load(ctx))
		assert.ErrorIs(t, c.Save(ctx, nil), ErrUnavailable)
		assert.ErrorIs(t, c.Clear(ctx), ErrUnavailable)
	})
}

func TestCollectionClear(t *testing.T) {
	ctx := context.Background()
	c := NewCollection[model.Project](NewMemory(), ProjectsCollection, quietLogger())

	require.NoError(t, c.Save(ctx, []model.Project{{ID: "p1", Name: "Work"}}))
	require.Len(t, c.Load(ctx), 1)

	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, c.Load(ctx))
}
