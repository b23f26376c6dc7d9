// Package store provides the durable local record store backing the
// offline-first inventory tracker.
//
// The store is the source of truth: every mutation lands here before any
// remote call is attempted. Records are kept as JSON payloads keyed by
// (collection, id), with dedicated tables for settings and the sync queue.
//
// The database runs on embedded SQLite (ncruces/go-sqlite3) with WAL mode
// so readers are never blocked by the orchestrator's writes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/raqeemx/aset1/internal/record"
)

// ErrNotFound is returned by Get and GetSetting when no row matches.
var ErrNotFound = errors.New("record not found")

// StorageFailure wraps a local persistence error. It is fatal to the
// operation that triggered it but never fatal to the process; the caller's
// in-memory state may diverge from storage until the call is retried.
type StorageFailure struct {
	Op         string
	Collection record.Collection
	Err        error
}

func (e *StorageFailure) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageFailure) Unwrap() error { return e.Err }

// PersistFunc observes successful Put calls. Observers are purely
// informational (the UI's autosave indicator); they must not mutate the
// store and their panics are not recovered.
type PersistFunc func(collection record.Collection, id string)

// Store is the durable local store. All operations are atomic per call.
type Store struct {
	conn *sql.DB
	path string

	observersMu sync.RWMutex
	observers   []PersistFunc
}

// Open creates a store at the given path, creating parent directories as
// needed. The caller MUST call Close when done.
//
// Example:
//
//	st, err := store.Open(".aset/inventory.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &Store{conn: conn, path: path}

	// WAL for concurrent reads during orchestrator writes.
	if _, err := st.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := st.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return st, nil
}

// RawDB returns the underlying sql.DB connection. The sync queue shares
// this connection so queue entries persist in the same database file.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the record, settings and sync queue tables.
// Idempotent, safe to call on every startup.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		collection TEXT NOT NULL,
		payload TEXT NOT NULL,
		enqueued_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	CREATE INDEX IF NOT EXISTS idx_sync_queue_order ON sync_queue(id);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return &StorageFailure{Op: "init", Err: err}
	}
	return nil
}

// OnPersist registers an observer fired after every successful Put.
func (s *Store) OnPersist(fn PersistFunc) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notifyPersist(collection record.Collection, id string) {
	s.observersMu.RLock()
	observers := make([]PersistFunc, len(s.observers))
	copy(observers, s.observers)
	s.observersMu.RUnlock()

	for _, fn := range observers {
		fn(collection, id)
	}
}

// Get returns the stored payload for (collection, id), or ErrNotFound.
func (s *Store) Get(collection record.Collection, id string) (json.RawMessage, error) {
	return s.GetContext(context.Background(), collection, id)
}

// GetContext returns the stored payload with context support.
func (s *Store) GetContext(ctx context.Context, collection record.Collection, id string) (json.RawMessage, error) {
	var payload []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE collection = ? AND id = ?`,
		string(collection), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageFailure{Op: "get", Collection: collection, Err: err}
	}
	return payload, nil
}

// GetAll returns every payload in a collection, in no particular order.
func (s *Store) GetAll(collection record.Collection) ([]json.RawMessage, error) {
	return s.GetAllContext(context.Background(), collection)
}

// GetAllContext returns every payload in a collection with context support.
func (s *Store) GetAllContext(ctx context.Context, collection record.Collection) ([]json.RawMessage, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT payload FROM records WHERE collection = ?`, string(collection))
	if err != nil {
		return nil, &StorageFailure{Op: "getAll", Collection: collection, Err: err}
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, &StorageFailure{Op: "getAll", Collection: collection, Err: err}
		}
		out = append(out, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageFailure{Op: "getAll", Collection: collection, Err: err}
	}
	return out, nil
}

// Put upserts a payload keyed by identity. There is no separate
// create/update path at the storage level.
func (s *Store) Put(collection record.Collection, id string, payload json.RawMessage) error {
	return s.PutContext(context.Background(), collection, id, payload)
}

// PutContext upserts a payload with context support. On success every
// registered persist observer fires.
func (s *Store) PutContext(ctx context.Context, collection record.Collection, id string, payload json.RawMessage) error {
	if id == "" {
		return &StorageFailure{Op: "put", Collection: collection, Err: errors.New("empty record id")}
	}
	query := `
	INSERT INTO records (collection, id, payload, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(collection, id) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`
	_, err := s.conn.ExecContext(ctx, query,
		string(collection), id, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &StorageFailure{Op: "put", Collection: collection, Err: err}
	}

	s.notifyPersist(collection, id)
	return nil
}

// Delete removes a record. Deleting an absent record is a no-op.
func (s *Store) Delete(collection record.Collection, id string) error {
	return s.DeleteContext(context.Background(), collection, id)
}

// DeleteContext removes a record with context support.
func (s *Store) DeleteContext(ctx context.Context, collection record.Collection, id string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, string(collection), id)
	if err != nil {
		return &StorageFailure{Op: "delete", Collection: collection, Err: err}
	}
	return nil
}

// Clear removes every record in a collection.
func (s *Store) Clear(collection record.Collection) error {
	return s.ClearContext(context.Background(), collection)
}

// ClearContext removes every record in a collection with context support.
func (s *Store) ClearContext(ctx context.Context, collection record.Collection) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ?`, string(collection))
	if err != nil {
		return &StorageFailure{Op: "clear", Collection: collection, Err: err}
	}
	return nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(collection record.Collection) (int, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM records WHERE collection = ?`, string(collection)).Scan(&n)
	if err != nil {
		return 0, &StorageFailure{Op: "count", Collection: collection, Err: err}
	}
	return n, nil
}

// GetSetting returns the value for a settings key, or ErrNotFound.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageFailure{Op: "getSetting", Err: err}
	}
	return value, nil
}

// PutSetting upserts a settings key. Settings live apart from the entity
// collections and never enter the sync queue.
func (s *Store) PutSetting(key, value string) error {
	query := `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.conn.Exec(query, key, value); err != nil {
		return &StorageFailure{Op: "putSetting", Err: err}
	}
	return nil
}
