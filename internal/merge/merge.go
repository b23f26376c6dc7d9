// Package merge reconciles local and remote snapshots of a collection.
//
// The policy is last-writer-wins by source, not by time: a record present
// remotely overwrites the local copy at the same identity, with one
// exception. Identities that still have a pending sync queue entry keep
// their local copy, because the queued edit has not reached the remote yet
// and letting a stale remote copy win would silently drop it. The skip is
// counted in the result so callers can log how often it happens.
package merge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/store"
)

// Result summarizes one collection merge.
type Result struct {
	// Added counts records that existed only remotely.
	Added int

	// Overwritten counts local records replaced by their remote copy.
	Overwritten int

	// Skipped counts remote copies ignored because the identity still has
	// a pending queue entry.
	Skipped int

	// LocalOnly counts records present locally but not remotely, which are
	// preserved untouched (typically never-synced creations).
	LocalOnly int
}

func (r Result) String() string {
	return fmt.Sprintf("added=%d overwritten=%d skipped=%d localOnly=%d",
		r.Added, r.Overwritten, r.Skipped, r.LocalOnly)
}

// Engine merges remote snapshots into the local store.
type Engine struct {
	store *store.Store
}

// New creates a merge engine over the local store.
func New(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Merge applies a remote snapshot of one collection to the local store.
// pending holds the record identities that still have queued mutations;
// pass nil to apply the unconditional remote-wins policy.
func (e *Engine) Merge(ctx context.Context, collection record.Collection, remote []json.RawMessage, pending map[string]bool) (Result, error) {
	var res Result

	local, err := e.store.GetAllContext(ctx, collection)
	if err != nil {
		return res, fmt.Errorf("failed to read local snapshot of %s: %w", collection, err)
	}

	localIDs := make(map[string]bool, len(local))
	for _, payload := range local {
		if id := extractID(payload); id != "" {
			localIDs[id] = true
		}
	}

	seenRemote := make(map[string]bool, len(remote))
	for _, payload := range remote {
		id := extractID(payload)
		if id == "" {
			continue
		}
		seenRemote[id] = true

		if pending[id] {
			res.Skipped++
			continue
		}

		if err := e.store.PutContext(ctx, collection, id, payload); err != nil {
			return res, fmt.Errorf("failed to persist remote %s/%s: %w", collection, id, err)
		}
		if localIDs[id] {
			res.Overwritten++
		} else {
			res.Added++
		}
	}

	for id := range localIDs {
		if !seenRemote[id] {
			res.LocalOnly++
		}
	}
	return res, nil
}

func extractID(payload json.RawMessage) string {
	var ident struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &ident); err != nil {
		return ""
	}
	return ident.ID
}
