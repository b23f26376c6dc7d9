// Package queue implements the durable FIFO log of pending mutations.
//
// Every write that could not be mirrored remotely lands here and is
// replayed later in enqueue order. Entries survive process restarts: they
// live in the same SQLite database as the record store, in a dedicated
// table keyed by an auto-incrementing id.
//
// There is deliberately no deduplication. Two queued writes to the same
// record id coexist and replay in enqueue order, which is what keeps
// last-writer-wins correct for a single client.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/raqeemx/aset1/internal/record"
)

// Entry is one pending mutation. For deletes the payload only needs to
// carry the record identity.
type Entry struct {
	ID         int64             `json:"id"`
	Action     record.Action     `json:"action"`
	Collection record.Collection `json:"collection"`
	Payload    json.RawMessage   `json:"payload"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
}

// Queue is the durable mutation log. The pending counter is maintained
// incrementally (enqueue +1, confirmed removal -1) rather than derived by
// counting, so a failed removal leaves both the entry and the counter
// untouched.
type Queue struct {
	conn *sql.DB

	mu      sync.Mutex
	pending int
}

// New wraps the sync_queue table of an open store database. The pending
// counter is seeded from the rows already present, so unsynced work from a
// previous run is picked up immediately.
func New(conn *sql.DB) (*Queue, error) {
	q := &Queue{conn: conn}
	n, err := q.count(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load queue length: %w", err)
	}
	q.pending = n
	return q, nil
}

// Enqueue appends a mutation and returns its entry id.
func (q *Queue) Enqueue(action record.Action, collection record.Collection, payload json.RawMessage) (int64, error) {
	return q.EnqueueContext(context.Background(), action, collection, payload)
}

// EnqueueContext appends a mutation with context support.
func (q *Queue) EnqueueContext(ctx context.Context, action record.Action, collection record.Collection, payload json.RawMessage) (int64, error) {
	if !action.Valid() {
		return 0, fmt.Errorf("invalid queue action %q", action)
	}
	if !collection.Valid() {
		return 0, fmt.Errorf("invalid queue collection %q", collection)
	}

	res, err := q.conn.ExecContext(ctx,
		`INSERT INTO sync_queue (action, collection, payload, enqueued_at) VALUES (?, ?, ?, ?)`,
		string(action), string(collection), string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s on %s: %w", action, collection, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue entry id: %w", err)
	}

	q.mu.Lock()
	q.pending++
	q.mu.Unlock()

	return id, nil
}

// Drain returns all entries oldest first. Entries are not removed; call
// Remove after each confirmed replay.
func (q *Queue) Drain() ([]Entry, error) {
	return q.DrainContext(context.Background())
}

// DrainContext returns all entries oldest first with context support.
func (q *Queue) DrainContext(ctx context.Context) ([]Entry, error) {
	rows, err := q.conn.QueryContext(ctx,
		`SELECT id, action, collection, payload, enqueued_at FROM sync_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to drain queue: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			action     string
			collection string
			payload    []byte
			enqueuedAt string
		)
		if err := rows.Scan(&e.ID, &action, &collection, &payload, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		e.Action = record.Action(action)
		e.Collection = record.Collection(collection)
		e.Payload = payload
		if t, err := time.Parse(time.RFC3339Nano, enqueuedAt); err == nil {
			e.EnqueuedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queue entries: %w", err)
	}
	return entries, nil
}

// Remove deletes an entry after its remote replay was acknowledged and
// decrements the pending counter. Removing an entry that no longer exists
// leaves the counter unchanged.
func (q *Queue) Remove(entryID int64) error {
	return q.RemoveContext(context.Background(), entryID)
}

// RemoveContext deletes an entry with context support.
func (q *Queue) RemoveContext(ctx context.Context, entryID int64) error {
	res, err := q.conn.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry %d: %w", entryID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		q.mu.Lock()
		if q.pending > 0 {
			q.pending--
		}
		q.mu.Unlock()
	}
	return nil
}

// PendingIDs returns the set of record identities with queued entries in
// a collection. The merge engine uses this to avoid clobbering local
// edits that have not flushed yet.
func (q *Queue) PendingIDs(collection record.Collection) (map[string]bool, error) {
	rows, err := q.conn.Query(
		`SELECT payload FROM sync_queue WHERE collection = ?`, string(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending ids for %s: %w", collection, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan queue payload: %w", err)
		}
		var ident struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &ident); err != nil {
			continue
		}
		if ident.ID != "" {
			ids[ident.ID] = true
		}
	}
	return ids, rows.Err()
}

// Pending returns the running counter of queued entries.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// RefreshPending recounts the queue from actual contents and resets the
// running counter. Called after a flush pass so the counter can never
// drift from reality for long.
func (q *Queue) RefreshPending() (int, error) {
	n, err := q.count(context.Background())
	if err != nil {
		return 0, err
	}
	q.mu.Lock()
	q.pending = n
	q.mu.Unlock()
	return n, nil
}

func (q *Queue) count(ctx context.Context) (int, error) {
	var n int
	if err := q.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return n, nil
}
