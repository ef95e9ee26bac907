// internal/common/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("GENAI_NOT_CONFIGURED")
	ErrTimeout       = errors.New("GENAI_TIMEOUT")
	ErrCallFailed    = errors.New("GENAI_CALL_FAILED")
	ErrEmptyReply    = errors.New("GENAI_EMPTY_REPLY")
)

// Logger interface definition
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Config holds connection settings for an OpenAI-compatible chat service.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int // extra attempts beyond the first; 0 means single attempt
}

// Options are per-call generation settings.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Client is a minimal chat-completions client. It owns its timeout and retry
// policy so callers can rely on a bounded, single-shot call by default.
type Client struct {
	config Config
	client *http.Client
	logger Logger
}

func NewClient(config Config, log Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			// rely on context timeouts only
		},
		logger: log,
	}
}

// Configured reports whether the client has an API key to call with.
func (c *Client) Configured() bool {
	return c != nil && c.config.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a system+user message pair and returns the assistant reply
// text. The context deadline bounds the whole call including retries.
func (c *Client) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	body, _ := json.Marshal(payload)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrTimeout
			}
		}

		// fresh request each attempt, the body reader is single-use
		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCallFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrTimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrCallFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrCallFailed)
	}
	defer resp.Body.Close()

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrCallFailed, err)
	}

	if len(decoded.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	c.logger.Debug("chat completion ok", map[string]interface{}{
		"model": c.config.Model,
		"chars": len(reply),
	})

	return reply, nil
}
