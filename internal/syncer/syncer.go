// Package syncer drives the offline-first write path: apply locally,
// attempt remote once, queue on failure, replay on reconnect.
//
// The orchestrator is a small state machine over one working set covering
// all collections:
//
//	Offline -> OnlineIdle    connectivity regained; a queue flush follows
//	OnlineIdle -> OnlineSyncing   on write, forced sync or scheduled flush
//	OnlineSyncing -> OnlineIdle   when the pass completes, failures included
//	any -> Offline           connectivity lost; in-flight calls abandoned
//
// The working set is the in-memory mirror of current collection contents.
// Only the orchestrator mutates it; everything else reads through Records
// and Get, so a write is visible immediately without waiting on network.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/raqeemx/aset1/internal/merge"
	"github.com/raqeemx/aset1/internal/queue"
	"github.com/raqeemx/aset1/internal/record"
	"github.com/raqeemx/aset1/internal/store"
)

// State is the orchestrator's connectivity/sync state.
type State string

const (
	StateOffline       State = "offline"
	StateOnlineIdle    State = "online-idle"
	StateOnlineSyncing State = "online-syncing"
)

// settingLastSync is the settings key holding the last successful sync
// time, RFC 3339.
const settingLastSync = "lastSync"

// Remote is the slice of the gateway the orchestrator needs. Implemented
// by gateway.Client; tests substitute fakes.
type Remote interface {
	List(ctx context.Context, collection record.Collection, limit int) ([]json.RawMessage, error)
	Create(ctx context.Context, collection record.Collection, payload json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, collection record.Collection, id string, payload json.RawMessage) (json.RawMessage, error)
	Patch(ctx context.Context, collection record.Collection, id string, partial json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, collection record.Collection, id string) error
}

// EventType labels orchestrator notifications for observers (the dashboard
// broadcast server and the CLI).
type EventType string

const (
	EventRecordUpdate EventType = "record_update"
	EventSyncComplete EventType = "sync_complete"
	EventConnectivity EventType = "connectivity"
)

// Event is an observer notification. Purely informational.
type Event struct {
	Type       EventType         `json:"type"`
	Collection record.Collection `json:"collection,omitempty"`
	RecordID   string            `json:"recordId,omitempty"`
	Action     record.Action     `json:"action,omitempty"`
	Online     bool              `json:"online"`
	Pending    int               `json:"pending"`
}

// Status is the orchestrator surface the UI layer renders.
type Status struct {
	State    State
	Online   bool
	Pending  int
	LastSync time.Time
}

// WriteResult tells the caller how a write ended: mirrored remotely, or
// saved locally with a queue entry awaiting replay.
type WriteResult struct {
	Synced  bool
	QueueID int64
}

// FlushResult summarizes one queue replay pass.
type FlushResult struct {
	Replayed int
	Failed   int
	Rejected int  // dropped: the remote refused the payload for good
	Aborted  bool // connectivity lost mid-pass
}

// Orchestrator applies writes locally first and reconciles with the remote
// API. Construct with New; methods are safe for concurrent use, though
// mutations are serialized internally.
type Orchestrator struct {
	store  *store.Store
	queue  *queue.Queue
	remote Remote
	merger *merge.Engine
	logger *log.Logger
	notify func(Event)

	mu         sync.Mutex
	state      State
	generation uint64
	lastSync   time.Time
	working    map[record.Collection]map[string]json.RawMessage
}

// New creates an orchestrator over an initialized store and queue. The
// working set is loaded from the store so reads work before any network
// activity; the initial state is Offline until the connectivity monitor
// reports otherwise.
//
// If logger is nil, a default logger writing to stderr is used.
func New(st *store.Store, q *queue.Queue, remote Remote, logger *log.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncer] ", log.LstdFlags)
	}

	o := &Orchestrator{
		store:   st,
		queue:   q,
		remote:  remote,
		merger:  merge.New(st),
		logger:  logger,
		state:   StateOffline,
		working: make(map[record.Collection]map[string]json.RawMessage),
	}

	if err := o.reloadWorkingSet(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}

	if v, err := st.GetSetting(settingLastSync); err == nil {
		if t, perr := time.Parse(time.RFC3339, v); perr == nil {
			o.lastSync = t
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load last sync time: %w", err)
	}

	return o, nil
}

// SetNotifier registers a single observer for orchestrator events. Call
// before the daemon starts; not synchronized against in-flight operations.
func (o *Orchestrator) SetNotifier(fn func(Event)) {
	o.notify = fn
}

func (o *Orchestrator) emit(ev Event) {
	if o.notify == nil {
		return
	}
	st := o.Status()
	ev.Online = st.Online
	ev.Pending = st.Pending
	o.notify(ev)
}

// Status returns the surface the UI renders: state, pending count and the
// last successful sync time.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:    o.state,
		Online:   o.state != StateOffline,
		Pending:  o.queue.Pending(),
		LastSync: o.lastSync,
	}
}

// Records returns a copy of the working set for one collection.
func (o *Orchestrator) Records(collection record.Collection) []json.RawMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]json.RawMessage, 0, len(o.working[collection]))
	for _, payload := range o.working[collection] {
		out = append(out, payload)
	}
	return out
}

// Get returns one record from the working set.
func (o *Orchestrator) Get(collection record.Collection, id string) (json.RawMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	payload, ok := o.working[collection][id]
	return payload, ok
}

// HandleOnline is the connectivity monitor's online entry point. Repeated
// online signals are idempotent. Returns true when the state actually
// changed, in which case the caller should schedule a queue flush.
func (o *Orchestrator) HandleOnline() bool {
	o.mu.Lock()
	if o.state != StateOffline {
		o.mu.Unlock()
		return false
	}
	o.state = StateOnlineIdle
	o.mu.Unlock()

	o.logger.Printf("Connectivity regained")
	o.emit(Event{Type: EventConnectivity})
	return true
}

// HandleOffline is the connectivity monitor's offline entry point, also
// idempotent. In-flight remote calls are abandoned: the generation counter
// is bumped so their late results are ignored and the triggering writes
// fall back to the queue.
func (o *Orchestrator) HandleOffline() bool {
	o.mu.Lock()
	if o.state == StateOffline {
		o.mu.Unlock()
		return false
	}
	o.state = StateOffline
	o.generation++
	o.mu.Unlock()

	o.logger.Printf("Connectivity lost, writes will queue locally")
	o.emit(Event{Type: EventConnectivity})
	return true
}

// RecordWrite applies one mutation: local store first (a storage failure
// aborts the whole operation), working set immediately after, then a
// single remote attempt when online. Any remote failure is absorbed by
// enqueueing; the caller only sees whether the record is synced or queued.
func (o *Orchestrator) RecordWrite(ctx context.Context, action record.Action, collection record.Collection, payload json.RawMessage) (WriteResult, error) {
	if !action.Valid() {
		return WriteResult{}, fmt.Errorf("invalid action %q", action)
	}
	if !collection.Valid() {
		return WriteResult{}, fmt.Errorf("invalid collection %q", collection)
	}
	id := extractID(payload)
	if id == "" {
		return WriteResult{}, fmt.Errorf("payload has no id")
	}

	// Step 1: local store. This either fully succeeds or the operation
	// fails fatally to the caller.
	if action == record.ActionDelete {
		if err := o.store.DeleteContext(ctx, collection, id); err != nil {
			return WriteResult{}, err
		}
	} else {
		if err := o.store.PutContext(ctx, collection, id, payload); err != nil {
			return WriteResult{}, err
		}
	}

	// Step 2: working set, so reads reflect the write without waiting on
	// the network.
	o.mu.Lock()
	if o.working[collection] == nil {
		o.working[collection] = make(map[string]json.RawMessage)
	}
	if action == record.ActionDelete {
		delete(o.working[collection], id)
	} else {
		o.working[collection][id] = payload
	}
	online := o.state != StateOffline
	gen := o.generation
	o.mu.Unlock()

	defer o.emit(Event{Type: EventRecordUpdate, Collection: collection, RecordID: id, Action: action})

	// Step 3: one remote attempt when believed online.
	if online {
		err := o.callRemote(ctx, action, collection, id, payload)

		o.mu.Lock()
		stale := o.generation != gen
		o.mu.Unlock()

		if err == nil && !stale {
			return WriteResult{Synced: true}, nil
		}
		if stale {
			// Went offline mid-call; whatever the call returned, treat the
			// write as unconfirmed and let the flush replay it.
			o.logger.Printf("Ignoring stale remote result for %s/%s", collection, id)
		} else {
			o.logger.Printf("Remote %s on %s/%s failed, queueing: %v", action, collection, id, err)
		}
	}

	// Step 4: queue for later replay.
	entryID, err := o.queue.EnqueueContext(ctx, action, collection, payload)
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to queue %s on %s/%s: %w", action, collection, id, err)
	}
	return WriteResult{QueueID: entryID}, nil
}

// RecordPatch applies a partial mutation, the status-only maintenance
// transition being the one user of it. The full updated record lands in
// the store and working set like any write, but the online fast-path
// sends only the changed fields through PATCH. The queue fallback stores
// the full record as a plain update, so replay never depends on patch
// support.
func (o *Orchestrator) RecordPatch(ctx context.Context, collection record.Collection, id string, partial, full json.RawMessage) (WriteResult, error) {
	if !collection.Valid() {
		return WriteResult{}, fmt.Errorf("invalid collection %q", collection)
	}
	if id == "" {
		return WriteResult{}, fmt.Errorf("empty record id")
	}

	if err := o.store.PutContext(ctx, collection, id, full); err != nil {
		return WriteResult{}, err
	}

	o.mu.Lock()
	if o.working[collection] == nil {
		o.working[collection] = make(map[string]json.RawMessage)
	}
	o.working[collection][id] = full
	online := o.state != StateOffline
	gen := o.generation
	o.mu.Unlock()

	defer o.emit(Event{Type: EventRecordUpdate, Collection: collection, RecordID: id, Action: record.ActionUpdate})

	if online {
		_, err := o.remote.Patch(ctx, collection, id, partial)

		o.mu.Lock()
		stale := o.generation != gen
		o.mu.Unlock()

		if err == nil && !stale {
			return WriteResult{Synced: true}, nil
		}
		if stale {
			o.logger.Printf("Ignoring stale remote result for %s/%s", collection, id)
		} else {
			o.logger.Printf("Remote patch on %s/%s failed, queueing full update: %v", collection, id, err)
		}
	}

	entryID, err := o.queue.EnqueueContext(ctx, record.ActionUpdate, collection, full)
	if err != nil {
		return WriteResult{}, fmt.Errorf("failed to queue patch on %s/%s: %w", collection, id, err)
	}
	return WriteResult{QueueID: entryID}, nil
}

// Flush drains the queue in FIFO order and replays each entry against the
// remote API. A failing entry is left in place and the pass continues, so
// one stuck entry never blocks unrelated ones. Going offline mid-pass
// aborts the remainder. After draining, the last-sync time is recorded and
// the pending counter is refreshed from actual queue contents.
func (o *Orchestrator) Flush(ctx context.Context) (FlushResult, error) {
	var res FlushResult

	o.mu.Lock()
	if o.state == StateOffline {
		o.mu.Unlock()
		return res, fmt.Errorf("cannot flush while offline")
	}
	if o.state == StateOnlineSyncing {
		o.mu.Unlock()
		return res, fmt.Errorf("flush already in progress")
	}
	o.state = StateOnlineSyncing
	gen := o.generation
	o.mu.Unlock()

	defer o.finishSyncPass()

	entries, err := o.queue.DrainContext(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to drain queue: %w", err)
	}
	if len(entries) == 0 {
		// Nothing to replay; the previous last-sync time stands.
		return res, nil
	}

	o.logger.Printf("Flushing %d queued entries", len(entries))

	for _, entry := range entries {
		o.mu.Lock()
		stale := o.generation != gen
		o.mu.Unlock()
		if stale {
			res.Aborted = true
			o.logger.Printf("Flush aborted by connectivity loss, %d entries left", len(entries)-res.Replayed-res.Failed-res.Rejected)
			break
		}

		id := extractID(entry.Payload)
		if err := o.callRemote(ctx, entry.Action, entry.Collection, id, entry.Payload); err != nil {
			// A rejected payload (4xx) will never succeed on replay;
			// drop it rather than retry forever. The record stays local
			// until the next merge settles it.
			var rf interface{ Retryable() bool }
			if errors.As(err, &rf) && !rf.Retryable() {
				res.Rejected++
				o.logger.Printf("WARNING: entry %d (%s %s/%s) rejected by remote, dropping: %v",
					entry.ID, entry.Action, entry.Collection, id, err)
				if rerr := o.queue.RemoveContext(ctx, entry.ID); rerr != nil {
					o.logger.Printf("WARNING: failed to remove rejected entry %d: %v", entry.ID, rerr)
				}
				continue
			}

			res.Failed++
			o.logger.Printf("WARNING: replay of entry %d (%s %s/%s) failed: %v",
				entry.ID, entry.Action, entry.Collection, id, err)
			continue
		}

		if err := o.queue.RemoveContext(ctx, entry.ID); err != nil {
			res.Failed++
			o.logger.Printf("WARNING: failed to remove replayed entry %d: %v", entry.ID, err)
			continue
		}
		res.Replayed++
	}

	if !res.Aborted {
		o.recordSyncTime()
	}
	if _, err := o.queue.RefreshPending(); err != nil {
		o.logger.Printf("WARNING: failed to refresh pending count: %v", err)
	}

	o.logger.Printf("Flush complete: replayed=%d failed=%d rejected=%d", res.Replayed, res.Failed, res.Rejected)
	o.emit(Event{Type: EventSyncComplete})
	return res, nil
}

// FetchAndMerge refreshes every collection from the remote API, merges
// each snapshot into the local store (remote wins, except identities with
// pending queue entries) and reloads the working set. Used at startup and
// on forced sync. A collection whose list call fails is logged and
// skipped; the others still merge.
func (o *Orchestrator) FetchAndMerge(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateOffline {
		o.mu.Unlock()
		return fmt.Errorf("cannot fetch while offline")
	}
	alreadySyncing := o.state == StateOnlineSyncing
	if !alreadySyncing {
		o.state = StateOnlineSyncing
	}
	o.mu.Unlock()

	if !alreadySyncing {
		defer o.finishSyncPass()
	}

	merged := 0
	for _, collection := range record.AllCollections {
		remote, err := o.remote.List(ctx, collection, listLimit(collection))
		if err != nil {
			o.logger.Printf("WARNING: list %s failed, keeping local snapshot: %v", collection, err)
			continue
		}

		pending, err := o.queue.PendingIDs(collection)
		if err != nil {
			return fmt.Errorf("failed to read pending ids for %s: %w", collection, err)
		}

		res, err := o.merger.Merge(ctx, collection, remote, pending)
		if err != nil {
			return fmt.Errorf("failed to merge %s: %w", collection, err)
		}
		if res.Skipped > 0 {
			o.logger.Printf("Merge %s kept %d locally edited records pending flush", collection, res.Skipped)
		}
		o.logger.Printf("Merged %s: %s", collection, res)
		merged++
	}

	if err := o.reloadWorkingSet(ctx); err != nil {
		return err
	}

	if merged > 0 {
		o.recordSyncTime()
	}
	o.emit(Event{Type: EventSyncComplete})
	return nil
}

// ForceSync replays the queue and then refreshes every collection. Bound
// to the UI's explicit "sync now" action.
func (o *Orchestrator) ForceSync(ctx context.Context) error {
	if _, err := o.Flush(ctx); err != nil {
		return err
	}
	return o.FetchAndMerge(ctx)
}

// finishSyncPass returns to OnlineIdle unless connectivity was lost during
// the pass.
func (o *Orchestrator) finishSyncPass() {
	o.mu.Lock()
	if o.state == StateOnlineSyncing {
		o.state = StateOnlineIdle
	}
	o.mu.Unlock()
}

func (o *Orchestrator) recordSyncTime() {
	now := time.Now()
	o.mu.Lock()
	o.lastSync = now
	o.mu.Unlock()
	if err := o.store.PutSetting(settingLastSync, now.Format(time.RFC3339)); err != nil {
		o.logger.Printf("WARNING: failed to persist last sync time: %v", err)
	}
}

// callRemote maps an action onto the matching gateway method.
func (o *Orchestrator) callRemote(ctx context.Context, action record.Action, collection record.Collection, id string, payload json.RawMessage) error {
	switch action {
	case record.ActionCreate:
		_, err := o.remote.Create(ctx, collection, payload)
		return err
	case record.ActionUpdate:
		_, err := o.remote.Update(ctx, collection, id, payload)
		return err
	case record.ActionDelete:
		return o.remote.Delete(ctx, collection, id)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (o *Orchestrator) reloadWorkingSet(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loadWorkingSet(ctx)
}

// loadWorkingSet rebuilds the in-memory mirror from the store. Caller
// holds o.mu.
func (o *Orchestrator) loadWorkingSet(ctx context.Context) error {
	working := make(map[record.Collection]map[string]json.RawMessage, len(record.AllCollections))
	for _, collection := range record.AllCollections {
		payloads, err := o.store.GetAllContext(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", collection, err)
		}
		working[collection] = make(map[string]json.RawMessage, len(payloads))
		for _, payload := range payloads {
			if id := extractID(payload); id != "" {
				working[collection][id] = payload
			}
		}
	}
	o.working = working
	return nil
}

// listLimit mirrors the remote page sizes the UI has always used: assets
// are the big collection, everything else stays small.
func listLimit(collection record.Collection) int {
	if collection == record.Assets {
		return 1000
	}
	return 100
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
