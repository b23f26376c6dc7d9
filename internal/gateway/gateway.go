// Package gateway wraps the remote table API with one stateless
// request/response client per process.
//
// The gateway never retries, queues or caches: every method maps to exactly
// one outbound request and every failure surfaces as a single
// RemoteFailure. Retry policy belongs to the sync orchestrator, which
// decides whether to replay through the queue.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raqeemx/aset1/internal/record"
)

// DefaultTimeout bounds every remote call so a hung request can never
// stall the orchestrator.
const DefaultTimeout = 15 * time.Second

// RemoteFailure is any network error or non-2xx response from the remote
// API. During a write it is absorbed by queueing, never shown to the user
// as a hard error.
type RemoteFailure struct {
	Op         string
	Collection record.Collection
	StatusCode int // 0 for network-level failures
	Err        error
}

func (e *RemoteFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s on %s: status %d", e.Op, e.Collection, e.StatusCode)
	}
	return fmt.Sprintf("remote %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteFailure) Unwrap() error { return e.Err }

// Retryable reports whether replaying the same request later could
// succeed. 4xx responses indicate a payload problem and are not worth
// retrying; network errors and 5xx responses are.
func (e *RemoteFailure) Retryable() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500
}

// Config configures the gateway client.
type Config struct {
	// BaseURL is the remote API root, e.g. "https://office.example.com/tables".
	BaseURL string

	// Token is an optional bearer token added to every request.
	Token string

	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the remote table API. Safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// New creates a gateway client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http:    httpClient,
	}
}

// List fetches up to limit records from a collection.
func (c *Client) List(ctx context.Context, collection record.Collection, limit int) ([]json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s?limit=%d", c.baseURL, collection, limit)
	body, err := c.do(ctx, "list", collection, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &RemoteFailure{Op: "list", Collection: collection,
			Err: fmt.Errorf("malformed list response: %w", err)}
	}
	return envelope.Data, nil
}

// Create posts a new record and returns the created payload.
func (c *Client) Create(ctx context.Context, collection record.Collection, payload json.RawMessage) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, collection)
	return c.do(ctx, "create", collection, http.MethodPost, url, payload)
}

// Update replaces a record by id and returns the updated payload.
func (c *Client) Update(ctx context.Context, collection record.Collection, id string, payload json.RawMessage) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, collection, id)
	return c.do(ctx, "update", collection, http.MethodPut, url, payload)
}

// Patch applies a partial update, used for status-only maintenance
// transitions.
func (c *Client) Patch(ctx context.Context, collection record.Collection, id string, partial json.RawMessage) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, collection, id)
	return c.do(ctx, "patch", collection, http.MethodPatch, url, partial)
}

// Delete removes a record by id. The remote returns no body.
func (c *Client) Delete(ctx context.Context, collection record.Collection, id string) error {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, collection, id)
	_, err := c.do(ctx, "delete", collection, http.MethodDelete, url, nil)
	return err
}

// do issues a single bounded request. Network errors carry StatusCode 0,
// non-2xx responses carry the status.
func (c *Client) do(ctx context.Context, op string, collection record.Collection, method, url string, payload json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &RemoteFailure{Op: op, Collection: collection, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteFailure{Op: op, Collection: collection, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteFailure{Op: op, Collection: collection, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteFailure{Op: op, Collection: collection,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s %s returned %s", method, url, resp.Status)}
	}
	return data, nil
}

// AsRemoteFailure unwraps err into a RemoteFailure if it is one.
func AsRemoteFailure(err error) (*RemoteFailure, bool) {
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		return rf, true
	}
	return nil, false
}
