// Package llm provides the chat-completion client used for recap synthesis.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mindmap-app/mindmap-api/internal/config"
	prommetrics "github.com/mindmap-app/mindmap-api/internal/metrics"
	"github.com/mindmap-app/mindmap-api/pkg/logger"
)

// Completer is the completion interface consumed by services.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new LLM client.
func NewClient(cfg *config.LLMConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		log:        log,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one prompt and returns the model's text. There is no retry;
// callers treat a failure as fatal for the request.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		prommetrics.RecordLLMRequest("error", time.Since(start))
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		prommetrics.RecordLLMRequest("error", time.Since(start))
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		prommetrics.RecordLLMRequest("error", time.Since(start))
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		prommetrics.RecordLLMRequest("error", time.Since(start))
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if parsed.Error != nil {
		prommetrics.RecordLLMRequest("error", time.Since(start))
		return "", fmt.Errorf("completion endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		prommetrics.RecordLLMRequest("error", time.Since(start))
		return "", fmt.Errorf("completion response contained no choices")
	}

	prommetrics.RecordLLMRequest("success", time.Since(start))

	c.log.Debug().
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Msg("Completion request finished")

	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
