package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elazargur/llm-council/internal/domain"
)

func newAuthedClient(url string) *Client {
	c := New(url, nil)
	c.SetCredential("hunter2", "alice@example.com")
	return c
}

func TestRequestsCarryCredentialHeaders(t *testing.T) {
	var gotPassword, gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPassword = r.Header.Get("X-Auth-Password")
		gotEmail = r.Header.Get("X-Auth-Email")
		_ = json.NewEncoder(w).Encode(domain.ModelCatalog{})
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)
	_, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", gotPassword)
	assert.Equal(t, "alice@example.com", gotEmail)
}

func TestUnauthorizedClearsCredentialEverywhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid password"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	ops := map[string]func(c *Client) error{
		"models": func(c *Client) error { _, err := c.Models(context.Background()); return err },
		"list":   func(c *Client) error { _, err := c.ListSessions(context.Background()); return err },
		"create": func(c *Client) error { _, err := c.CreateSession(context.Background()); return err },
		"get":    func(c *Client) error { _, err := c.GetSession(context.Background(), "id"); return err },
		"delete": func(c *Client) error { return c.DeleteSession(context.Background(), "id") },
		"council": func(c *Client) error {
			_, err := c.Council(context.Background(), "q", domain.ModelConfig{}, "")
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			c := newAuthedClient(srv.URL)
			err := op(c)
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.False(t, c.HasCredential(), "401 must clear the stored credential")
		})
	}
}

func TestNotFoundTaxonomy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Session not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)

	_, err := c.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.DeleteSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	// The 404 taxonomy never touches the credential.
	assert.True(t, c.HasCredential())
}

func TestServerErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)
	_, err := c.CreateSession(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestVerify(t *testing.T) {
	authorized := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorized {
			http.Error(w, `{"error":"Invalid password"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.ModelCatalog{})
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)

	ok, err := c.Verify(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	authorized = false
	c.SetCredential("wrong", "alice@example.com")
	ok, err = c.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCouncilRequestBodyOmitsEmptyOptionals(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"type\":\"complete\"}\n"))
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)
	stream, err := c.Council(context.Background(), "q", domain.ModelConfig{}, "")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "q", body["content"])
	assert.NotContains(t, body, "council_models")
	assert.NotContains(t, body, "chairman_model")
	assert.NotContains(t, body, "session_id")
}

func TestCouncilStreamsEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"type\":\"stage1_start\",\"models\":[\"m1\"]}\n\n"))
		_, _ = w.Write([]byte("data: {\"type\":\"complete\"}\n\n"))
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)
	stream, err := c.Council(context.Background(), "q",
		domain.ModelConfig{CouncilModels: []string{"m1"}, ChairmanModel: "m1"}, "sess-1")
	require.NoError(t, err)
	defer stream.Close()

	events := drain(stream)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventStage1Start, events[0].Type)
	assert.Equal(t, domain.EventComplete, events[1].Type)
	assert.NoError(t, stream.Err())
}

func TestListSessionsDecodesSummaries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"s1","title":"First","message_count":4,"created_at":"2026-08-30T12:00:00Z"}]`))
	}))
	defer srv.Close()

	c := newAuthedClient(srv.URL)
	list, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, 4, list[0].MessageCount)
}
