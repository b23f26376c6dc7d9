package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raqeemx/aset1/internal/record"
)

func TestList_ParsesEnvelope(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data":[{"id":"a1"},{"id":"a2"}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	records, err := c.List(context.Background(), record.Assets, 1000)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	if gotPath != "/assets" {
		t.Errorf("path = %q, want /assets", gotPath)
	}
	if gotQuery != "limit=1000" {
		t.Errorf("query = %q, want limit=1000", gotQuery)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if string(records[0]) != `{"id":"a1"}` {
		t.Errorf("first record = %s", records[0])
	}
}

func TestList_MalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.List(context.Background(), record.Assets, 10)
	if err == nil {
		t.Fatal("List() succeeded on malformed body, want error")
	}
	if _, ok := AsRemoteFailure(err); !ok {
		t.Errorf("error type = %T, want *RemoteFailure", err)
	}
}

func TestCreate_PostsPayloadWithAuth(t *testing.T) {
	var gotMethod, gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(gotBody)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "secret"})
	payload := json.RawMessage(`{"id":"a1","name":"Desk"}`)
	got, err := c.Create(context.Background(), record.Assets, payload)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if string(gotBody) != string(payload) {
		t.Errorf("body = %s, want %s", gotBody, payload)
	}
	if string(got) != string(payload) {
		t.Errorf("Create() returned %s", got)
	}
}

func TestUpdateDelete_TargetRecordPath(t *testing.T) {
	var gotMethods []string
	var gotPaths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethods = append(gotMethods, r.Method)
		gotPaths = append(gotPaths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	if _, err := c.Update(ctx, record.Maintenance, "m1", json.RawMessage(`{"id":"m1"}`)); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if _, err := c.Patch(ctx, record.Maintenance, "m1", json.RawMessage(`{"status":"completed"}`)); err != nil {
		t.Fatalf("Patch() failed: %v", err)
	}
	if err := c.Delete(ctx, record.Maintenance, "m1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	wantMethods := []string{http.MethodPut, http.MethodPatch, http.MethodDelete}
	for i, want := range wantMethods {
		if gotMethods[i] != want {
			t.Errorf("call %d method = %s, want %s", i, gotMethods[i], want)
		}
		if gotPaths[i] != "/maintenance/m1" {
			t.Errorf("call %d path = %q, want /maintenance/m1", i, gotPaths[i])
		}
	}
}

func TestDo_StatusCodeOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Create(context.Background(), record.Assets, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("Create() succeeded, want error")
	}

	rf, ok := AsRemoteFailure(err)
	if !ok {
		t.Fatalf("error type = %T, want *RemoteFailure", err)
	}
	if rf.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", rf.StatusCode)
	}
}

func TestRetryable_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, true},    // network error
		{400, false}, // payload problem
		{404, false},
		{422, false},
		{500, true}, // server trouble, worth replaying
		{503, true},
	}
	for _, tt := range tests {
		rf := &RemoteFailure{StatusCode: tt.status}
		if got := rf.Retryable(); got != tt.want {
			t.Errorf("Retryable() with status %d = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDo_NetworkErrorHasZeroStatus(t *testing.T) {
	// Point at a closed server to force a connection error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	_, err := c.List(context.Background(), record.Assets, 10)
	if err == nil {
		t.Fatal("List() against closed server succeeded")
	}

	rf, ok := AsRemoteFailure(err)
	if !ok {
		t.Fatalf("error type = %T, want *RemoteFailure", err)
	}
	if rf.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for network error", rf.StatusCode)
	}
	if !rf.Retryable() {
		t.Error("network failure should be retryable")
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx, record.Assets, 10)
	if err == nil {
		t.Fatal("List() with canceled context succeeded")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}
