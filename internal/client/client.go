// Package client is the Go client for the council API: credential handling,
// session CRUD and the streaming turn request.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Sentinel errors forming the client-side error taxonomy. A 401 from any
// endpoint yields ErrUnauthorized after the stored credential has been
// cleared; ErrNotFound is produced only by the single-session operations.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Credential is the shared-secret pair attached to every request.
type Credential struct {
	Password string
	Email    string
}

// Client talks to one council server. Safe for concurrent use; the
// credential is guarded because a 401 on any in-flight request clears it.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger

	mu   sync.RWMutex
	cred *Credential
}

// New creates a client for the given server base URL.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: the council stream stays open for the whole
		// deliberation. Callers bound requests with their context.
		httpc:  &http.Client{},
		logger: logger,
	}
}

// HasCredential reports whether a credential pair is currently held.
func (c *Client) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred != nil
}

// SetCredential stores a credential pair for subsequent requests.
func (c *Client) SetCredential(password, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = &Credential{Password: password, Email: email}
}

// ClearCredential drops the stored credential pair.
func (c *Client) ClearCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = nil
}

// Verify issues a harmless authenticated request and reports whether the
// server accepted the stored credential.
func (c *Client) Verify(ctx context.Context) (bool, error) {
	_, err := c.Models(ctx)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}

	c.mu.RLock()
	if c.cred != nil {
		req.Header.Set("X-Auth-Password", c.cred.Password)
		req.Header.Set("X-Auth-Email", c.cred.Email)
	}
	c.mu.RUnlock()

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes a request and maps the status code onto the error taxonomy.
// The caller owns the body only when the returned error is nil.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	message := readErrorMessage(resp.Body)
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		// Credential invalidation is global: no later request may reuse it.
		c.ClearCredential()
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
