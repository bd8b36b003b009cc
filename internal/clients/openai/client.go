// Package openai is a minimal chat-completions client for OpenAI-compatible
// APIs. The base URL is configurable so any compatible provider works.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/retry"
)

// Config holds client configuration.
type Config struct {
	APIKey  string
	BaseURL string // e.g. https://api.openai.com/v1
	Model   string
}

// Client calls the chat-completions endpoint.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	retryPolicy *retry.Policy
	log         zerolog.Logger
}

// New creates a client. Configured reports false when no API key is set;
// Generate then fails fast without a network call.
func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		retryPolicy: retry.Default(),
		log:         log.With().Str("client", "openai").Logger(),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends a system and user prompt and returns the model's text.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("text generation provider not configured: %w", domain.ErrExternalService)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var content string
	err = c.retryPolicy.Do(ctx, func() error {
		var callErr error
		content, callErr = c.complete(ctx, body)
		return callErr
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w: %w", err, domain.ErrExternalService)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w: %w", err, domain.ErrExternalService)
	}

	// Client errors are not retryable, server errors and rate limits are
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return "", retry.Permanent(fmt.Errorf("chat request rejected with status %d: %w", resp.StatusCode, domain.ErrExternalService))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat request returned status %d: %w", resp.StatusCode, domain.ErrExternalService)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", retry.Permanent(fmt.Errorf("chat response decode failed: %w: %w", err, domain.ErrMalformedResponse))
	}
	if parsed.Error != nil {
		return "", retry.Permanent(fmt.Errorf("provider error %s: %w", parsed.Error.Type, domain.ErrExternalService))
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", retry.Permanent(fmt.Errorf("empty completion: %w", domain.ErrMalformedResponse))
	}

	return parsed.Choices[0].Message.Content, nil
}
