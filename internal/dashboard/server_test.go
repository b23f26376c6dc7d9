package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/raqeemx/aset1/internal/syncer"
)

// stubStatus is a fixed StatusProvider.
type stubStatus struct {
	st syncer.Status
}

func (s *stubStatus) Status() syncer.Status { return s.st }

func startTestServer(t *testing.T, status StatusProvider) *Server {
	t.Helper()
	// Port 0 picks a free port.
	srv := NewServer(status, &Config{Port: 0})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv
}

// testAddr pins the ephemeral listener port to the loopback interface.
func testAddr(t *testing.T, srv *Server) string {
	t.Helper()
	_, port, err := net.SplitHostPort(srv.GetAddr())
	if err != nil {
		t.Fatalf("failed to parse server address %q: %v", srv.GetAddr(), err)
	}
	return net.JoinHostPort("127.0.0.1", port)
}

func TestHandleStatus(t *testing.T) {
	lastSync := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	srv := startTestServer(t, &stubStatus{st: syncer.Status{
		State:    syncer.StateOnlineIdle,
		Online:   true,
		Pending:  3,
		LastSync: lastSync,
	}})

	resp, err := http.Get(fmt.Sprintf("http://%s/status", testAddr(t, srv)))
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		State    string `json:"state"`
		Online   bool   `json:"online"`
		Pending  int    `json:"pending"`
		LastSync string `json:"lastSync"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode status body: %v", err)
	}

	if body.State != "online-idle" || !body.Online || body.Pending != 3 {
		t.Errorf("status body = %+v", body)
	}
	if body.LastSync != lastSync.Format(time.RFC3339) {
		t.Errorf("lastSync = %q, want %q", body.LastSync, lastSync.Format(time.RFC3339))
	}
}

func TestHandleStatus_ZeroLastSyncEmpty(t *testing.T) {
	srv := startTestServer(t, &stubStatus{st: syncer.Status{State: syncer.StateOffline}})

	resp, err := http.Get(fmt.Sprintf("http://%s/status", testAddr(t, srv)))
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode status body: %v", err)
	}
	if body["lastSync"] != "" {
		t.Errorf("lastSync = %v, want empty string for never-synced", body["lastSync"])
	}
}

func TestHandleHealth(t *testing.T) {
	srv := startTestServer(t, &stubStatus{})

	resp, err := http.Get(fmt.Sprintf("http://%s/health", testAddr(t, srv)))
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebSocket_InitialSnapshotAndBroadcast(t *testing.T) {
	srv := startTestServer(t, &stubStatus{st: syncer.Status{
		State:   syncer.StateOnlineIdle,
		Online:  true,
		Pending: 2,
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", testAddr(t, srv)), nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is the connectivity snapshot.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var snapshot Message
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("malformed snapshot: %v", err)
	}
	if snapshot.Event.Type != syncer.EventConnectivity || !snapshot.Event.Online || snapshot.Event.Pending != 2 {
		t.Errorf("snapshot event = %+v", snapshot.Event)
	}

	// Broadcast reaches the connected client.
	srv.Broadcast(syncer.Event{
		Type:       syncer.EventRecordUpdate,
		Collection: "assets",
		RecordID:   "a1",
		Online:     true,
	})

	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("malformed broadcast: %v", err)
	}
	if msg.Event.Type != syncer.EventRecordUpdate || msg.Event.RecordID != "a1" {
		t.Errorf("broadcast event = %+v", msg.Event)
	}
}

func TestClientCount_TracksConnections(t *testing.T) {
	srv := startTestServer(t, &stubStatus{})

	if n := srv.ClientCount(); n != 0 {
		t.Fatalf("ClientCount() = %d before any connection, want 0", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", testAddr(t, srv)), nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}

	// Connection registration races the dial return slightly.
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := srv.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d with one client, want 1", n)
	}

	conn.Close(websocket.StatusNormalClosure, "")
	deadline = time.Now().Add(2 * time.Second)
	for srv.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := srv.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d after disconnect, want 0", n)
	}
}
