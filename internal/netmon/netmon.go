// Package netmon observes connectivity transitions and drives the sync
// orchestrator's online/offline entry points.
//
// The monitor never polls the network itself. It consumes transition
// notifications from whatever source the environment provides (a marker
// file, a platform hook, a test channel) and tolerates duplicate signals:
// repeated "online" or "offline" notifications are no-ops.
package netmon

import (
	"context"
	"log"
	"os"
)

// Orchestrator is the slice of the sync orchestrator the monitor drives.
// Both entry points must be idempotent and return whether the state
// actually changed.
type Orchestrator interface {
	HandleOnline() bool
	HandleOffline() bool
}

// Monitor forwards connectivity transitions to the orchestrator and
// schedules a queue flush on every genuine reconnect.
type Monitor struct {
	orch   Orchestrator
	logger *log.Logger
}

// FlushFunc is called after a genuine reconnect. Wired to the
// orchestrator's Flush by the daemon.
type FlushFunc func(ctx context.Context)

// New creates a monitor over the orchestrator's transition entry points.
// If logger is nil, a default logger writing to stderr is used.
func New(orch Orchestrator, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.New(os.Stderr, "[netmon] ", log.LstdFlags)
	}
	return &Monitor{orch: orch, logger: logger}
}

// Notify delivers one transition. Spurious duplicates are absorbed by the
// orchestrator's idempotent entry points. Returns true when the state
// actually changed.
func (m *Monitor) Notify(online bool) bool {
	if online {
		return m.orch.HandleOnline()
	}
	return m.orch.HandleOffline()
}

// Run consumes transitions from events until ctx is done or the channel
// closes. onReconnect fires after every genuine offline-to-online
// transition; nil disables it.
func (m *Monitor) Run(ctx context.Context, events <-chan bool, onReconnect FlushFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-events:
			if !ok {
				return
			}
			if !m.Notify(online) {
				continue
			}
			if online {
				m.logger.Printf("Reconnected, scheduling queue flush")
				if onReconnect != nil {
					onReconnect(ctx)
				}
			} else {
				m.logger.Printf("Connection lost")
			}
		}
	}
}
