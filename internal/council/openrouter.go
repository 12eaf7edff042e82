// Package council runs the three-stage deliberation: independent answers,
// anonymized peer ranking, and chairman synthesis.
package council

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatMessage is one turn of a model prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Querier issues a single chat completion against one model.
type Querier interface {
	QueryModel(ctx context.Context, model string, messages []ChatMessage) (string, error)
}

// OpenRouterClient queries models through the OpenRouter chat completions API.
type OpenRouterClient struct {
	apiKey string
	url    string
	httpc  *http.Client
}

// NewOpenRouterClient creates a client for the given endpoint and key.
// timeout bounds each individual model query.
func NewOpenRouterClient(url, apiKey string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey: apiKey,
		url:    url,
		httpc:  &http.Client{Timeout: timeout},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// QueryModel sends one prompt to one model and returns its answer text.
func (c *OpenRouterClient) QueryModel(ctx context.Context, model string, messages []ChatMessage) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("query %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("query %s: status %d: %s", model, resp.StatusCode, bytes.TrimSpace(body))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode completion from %s: %w", model, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("query %s: empty choices", model)
	}
	return completion.Choices[0].Message.Content, nil
}
