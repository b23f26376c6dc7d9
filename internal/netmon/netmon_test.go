package netmon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// stubOrchestrator tracks the believed connectivity state like the real
// orchestrator: transitions report whether anything changed.
type stubOrchestrator struct {
	online   bool
	onlines  int
	offlines int
}

func (s *stubOrchestrator) HandleOnline() bool {
	if s.online {
		return false
	}
	s.online = true
	s.onlines++
	return true
}

func (s *stubOrchestrator) HandleOffline() bool {
	if !s.online {
		return false
	}
	s.online = false
	s.offlines++
	return true
}

func TestNotify_DuplicatesAbsorbed(t *testing.T) {
	orch := &stubOrchestrator{}
	m := New(orch, nil)

	if m.Notify(false) {
		t.Error("offline signal on offline orchestrator reported a change")
	}
	if !m.Notify(true) {
		t.Error("first online signal reported no change")
	}
	if m.Notify(true) {
		t.Error("duplicate online signal reported a change")
	}
	if orch.onlines != 1 {
		t.Errorf("onlines = %d, want 1", orch.onlines)
	}
}

func TestRun_FlushesOnGenuineReconnectOnly(t *testing.T) {
	orch := &stubOrchestrator{}
	m := New(orch, nil)

	events := make(chan bool)
	flushes := make(chan struct{}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, events, func(context.Context) { flushes <- struct{}{} })
	}()

	// online, duplicate online, offline, online again.
	events <- true
	events <- true
	events <- false
	events <- true
	close(events)
	<-done

	if got := len(flushes); got != 2 {
		t.Errorf("flush count = %d, want 2 (one per genuine reconnect)", got)
	}
	if orch.onlines != 2 || orch.offlines != 1 {
		t.Errorf("transitions = %d online / %d offline, want 2/1", orch.onlines, orch.offlines)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	m := New(&stubOrchestrator{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, make(chan bool), nil)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after context cancellation")
	}
}

func waitForEvent(t *testing.T, events <-chan bool, want bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got, ok := <-events:
			if !ok {
				t.Fatal("event channel closed while waiting")
			}
			if got == want {
				return
			}
			// Duplicate of the previous state, keep waiting.
		case <-deadline:
			t.Fatalf("timed out waiting for %v event", want)
		}
	}
}

func TestFileSource_EmitsTransitions(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "connectivity")

	src, err := NewFileSource(marker, nil)
	if err != nil {
		t.Fatalf("NewFileSource() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.Start(ctx)

	// Missing marker reads as offline.
	waitForEvent(t, src.Events(), false)

	if err := os.WriteFile(marker, []byte("online\n"), 0644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}
	waitForEvent(t, src.Events(), true)

	if err := os.WriteFile(marker, []byte("offline"), 0644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}
	waitForEvent(t, src.Events(), false)

	// Removal means offline too.
	if err := os.WriteFile(marker, []byte("online"), 0644); err != nil {
		t.Fatalf("failed to write marker: %v", err)
	}
	waitForEvent(t, src.Events(), true)
	if err := os.Remove(marker); err != nil {
		t.Fatalf("failed to remove marker: %v", err)
	}
	waitForEvent(t, src.Events(), false)
}

func TestFileSource_MissingDirectoryFails(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "no-such-dir", "marker"), nil)
	if err == nil {
		t.Error("NewFileSource() with missing parent directory succeeded")
	}
}
