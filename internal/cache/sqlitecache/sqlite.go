// Package sqlitecache stores classifications in a SQLite database.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/routemeta/internal/cache"
)

const (
	// DefaultBatchSize is the number of entries to buffer before flushing to the database.
	DefaultBatchSize = 100
)

var _ cache.Store = (*Store)(nil)

// Store persists classifications in a SQLite database so they survive
// process restarts. Writes are buffered and flushed in batches.
type Store struct {
	db        *sql.DB
	path      string
	batch     map[string]cache.Entry
	batchSize int
	mu        sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:        db,
		path:      path,
		batch:     make(map[string]cache.Entry, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

// createSchema creates the classification cache schema.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS classifications (
			cache_key TEXT NOT NULL PRIMARY KEY,
			category TEXT NOT NULL,
			surface TEXT,
			source TEXT,
			tags TEXT,
			updated_at INTEGER NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Get returns a buffered entry or reads it from the database.
func (s *Store) Get(ctx context.Context, key string) (cache.Entry, error) {
	s.mu.Lock()
	if e, ok := s.batch[key]; ok {
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	var (
		e       cache.Entry
		surface sql.NullString
		source  sql.NullString
		tags    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT category, surface, source, tags FROM classifications WHERE cache_key = ?",
		key,
	).Scan(&e.Category, &surface, &source, &tags)

	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, cache.ErrMiss
	}
	if err != nil {
		return cache.Entry{}, fmt.Errorf("failed to query classification: %w", err)
	}

	e.Surface = surface.String
	e.Source = source.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
			// A damaged tag column still leaves a usable category.
			e.Tags = nil
		}
	}
	return e, nil
}

// Put adds an entry to the batch. When the batch is full, it is automatically flushed.
func (s *Store) Put(ctx context.Context, key string, e cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch[key] = e
	if len(s.batch) >= s.batchSize {
		return s.flushLocked(ctx)
	}
	return nil
}

// Flush writes any buffered entries to the database.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// flushLocked writes buffered entries to the database. Must be called with lock held.
func (s *Store) flushLocked(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO classifications (cache_key, category, surface, source, tags, updated_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for key, e := range s.batch {
		var tags []byte
		if len(e.Tags) > 0 {
			if tags, err = json.Marshal(e.Tags); err != nil {
				return fmt.Errorf("failed to encode tags for %s: %w", key, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, key, e.Category, e.Surface, e.Source, string(tags), now); err != nil {
			return fmt.Errorf("failed to insert classification %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	clear(s.batch)
	return nil
}

// Len counts persisted and buffered entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := s.Flush(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM classifications").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return count, nil
}

// Close flushes any remaining entries and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(context.Background()); err != nil {
		s.db.Close()
		return err
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
