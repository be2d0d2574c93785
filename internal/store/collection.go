package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Collection names persisted by the app.
const (
	ProjectsCollection    = "projects"
	TimeEntriesCollection = "timeEntries"
	ProfileCollection     = "profile"
	LeaderboardCollection = "leaderboard"
)

// ErrUnavailable is returned when a Collection has no backend.
var ErrUnavailable = errors.New("local store unavailable")

// Collection is a typed, JSON-encoded list of records stored under one name.
// Reads never fail: a missing, unreadable or corrupt payload is an empty
// collection. Time values are stored as RFC 3339 text.
type Collection[T any] struct {
	backend Backend
	name    string
	logger  *slog.Logger
}

// NewCollection binds name to backend. A nil backend yields a collection
// that loads empty and refuses writes.
func NewCollection[T any](backend Backend, name string, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{
		backend: backend,
		name:    name,
		logger:  logger.With("collection", name),
	}
}

func (c *Collection[T]) Name() string { return c.name }

// Save overwrites the collection. Failures are logged and returned so the
// caller can decide whether they matter.
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	if c.backend == nil {
		return ErrUnavailable
	}
	if records == nil {
		records = []T{}
	}

	payload, err := json.Marshal(records)
	if err != nil {
		c.logger.Error("failed to encode collection", "err", err)
		return fmt.Errorf("error encoding %s: %w", c.name, err)
	}

	if err := c.backend.Put(ctx, c.name, payload); err != nil {
		c.logger.Error("failed to save collection", "err", err)
		return err
	}
	return nil
}

// Load returns the last saved records, or an empty slice.
func (c *Collection[T]) Load(ctx context.Context) []T {
	if c.backend == nil {
		return []T{}
	}

	payload, err := c.backend.Get(ctx, c.name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("failed to load collection, treating as empty", "err", err)
		}
		return []T{}
	}

	var records []T
	if err := json.Unmarshal(payload, &records); err != nil {
		c.logger.Warn("corrupt collection, treating as empty", "err", err)
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}

func (c *Collection[T]) Clear(ctx context.Context) error {
	if c.backend == nil {
		return ErrUnavailable
	}
	if err := c.backend.Delete(ctx, c.name); err != nil {
		c.logger.Error("failed to clear collection", "err", err)
		return err
	}
	return nil
}
