// Package proxy is a client for the OpenRouter chat completions API.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxRetryAfter  = 30 * time.Second
)

// Client sends completions to OpenRouter on behalf of nutriwheel.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		backoff:    initialBackoff,
	}
}

// NewClientWithBaseURL points the client at another OpenAI-compatible
// endpoint, such as a test server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// APIError is a non-200 completion response.
type APIError struct {
	Status     int
	Message    string
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	what := "request failed"
	if e.Status == http.StatusTooManyRequests {
		what = "rate limited"
	}
	if e.Message == "" {
		return fmt.Sprintf("openrouter: %s (status %d)", what, e.Status)
	}
	return fmt.Sprintf("openrouter: %s (status %d): %s", what, e.Status, e.Message)
}

// Temporary reports whether the same request may succeed later: rate limits
// and an unavailable upstream provider.
func (e *APIError) Temporary() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Complete sends a non-streaming chat completion and returns the first
// choice's content. Temporary failures are retried with exponential backoff,
// or after the server's Retry-After when it sends one.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	wait := c.backoff
	var apiErr *APIError
	for attempt := 1; ; attempt++ {
		out, err := c.post(ctx, body)
		if err == nil {
			return out, nil
		}
		if !errors.As(err, &apiErr) || !apiErr.Temporary() {
			return "", err
		}
		if attempt == maxRetries {
			return "", fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		delay := wait
		if apiErr.retryAfter > 0 {
			delay = apiErr.retryAfter
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		wait *= 2
	}
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	// Attribution headers used by OpenRouter's app rankings.
	req.Header.Set("HTTP-Referer", "https://github.com/kalambet/nutriwheel")
	req.Header.Set("X-Title", "nutriwheel")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding completion: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("openrouter: completion has no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// newAPIError reads {"error":{"message":...}} when present, otherwise the
// start of the raw body.
func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	e := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		e.Message = envelope.Error.Message
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}

	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.retryAfter = min(time.Duration(secs)*time.Second, maxRetryAfter)
	}
	return e
}
