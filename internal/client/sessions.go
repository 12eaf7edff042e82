package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elazargur/llm-council/internal/domain"
)

// Models fetches the available model catalog and server defaults.
func (c *Client) Models(ctx context.Context) (domain.ModelCatalog, error) {
	var catalog domain.ModelCatalog
	err := c.getJSON(ctx, "/api/models", &catalog)
	return catalog, err
}

// ListSessions fetches session summaries, newest first. Every call is a
// fresh round trip; the client holds no cache.
func (c *Client) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	var summaries []domain.SessionSummary
	if err := c.getJSON(ctx, "/api/sessions", &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// CreateSession asks the server for a fresh empty session.
func (c *Client) CreateSession(ctx context.Context) (domain.SessionSummary, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/sessions", nil)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	defer resp.Body.Close()

	var summary domain.SessionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return domain.SessionSummary{}, fmt.Errorf("decode created session: %w", err)
	}
	return summary, nil
}

// GetSession fetches one session with its full message sequence.
func (c *Client) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	if err := c.getJSON(ctx, "/api/sessions/"+id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes one session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/sessions/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

type councilRequest struct {
	Content       string   `json:"content"`
	CouncilModels []string `json:"council_models,omitempty"`
	ChairmanModel string   `json:"chairman_model,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// Council opens the streaming turn request. The returned stream yields the
// deliberation events lazily; the caller must drain or Close it.
func (c *Client) Council(ctx context.Context, content string, cfg domain.ModelConfig, sessionID string) (*EventStream, error) {
	payload, err := json.Marshal(councilRequest{
		Content:       content,
		CouncilModels: cfg.CouncilModels,
		ChairmanModel: cfg.ChairmanModel,
		SessionID:     sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode council request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/council", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return newEventStream(resp.Body, c.logger), nil
}
