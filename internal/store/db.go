package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// migration queries
	createCollectionsTableSQL = `
  CREATE TABLE IF NOT EXISTS collections (
  name TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
  )`

	// collection queries
	getCollectionSQL    = `SELECT payload FROM collections WHERE name = ?`
	deleteCollectionSQL = `DELETE FROM collections WHERE name = ?`
	upsertCollectionSQL = `
  INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, ?)
  ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// ErrNotFound is returned by a Backend when a collection was never saved.
var ErrNotFound = errors.New("collection not found")

// Backend is durable key/value storage for serialized collections.
type Backend interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, payload []byte) error
	Delete(ctx context.Context, name string) error
}

// Repo is the sqlite Backend.
type Repo struct {
	db *sql.DB
}

func NewRepo(dbPath string) (*Repo, error) {
	// ensure directory exists
	err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// open database
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// verify connection with database
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	repo := &Repo{db: db}

	if err := repo.applyPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	// run migrations
	if err := repo.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) applyPragmas() error {
	for _, pragma := range pragmas {
		if _, err := r.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// runs migrations on initial start
func (r *Repo) runMigrations() error {
	tables := []string{
		createCollectionsTableSQL,
	}

	for _, tableSQL := range tables {
		if _, err := r.db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// +--------------------------+
// |                          |
// |    Collection Queries    |
// |                          |
// +--------------------------+

// get the serialized payload of a collection
func (r *Repo) Get(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, getCollectionSQL, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading collection %s: %w", name, err)
	}
	return []byte(payload), nil
}

// overwrite a collection
func (r *Repo) Put(ctx context.Context, name string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, upsertCollectionSQL, name, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error writing collection %s: %w", name, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, deleteCollectionSQL, name)
	if err != nil {
		return fmt.Errorf("error deleting collection %s: %w", name, err)
	}
	return nil
}
