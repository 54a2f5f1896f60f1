// Package gemini calls the Gemini generateContent API through the official
// Go SDK. Request shaping stays in this package's small types so callers do
// not depend on the SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Part is a single text fragment of a Content.
type Part struct {
	Text string `json:"text"`
}

// Content is one turn. Role is "user" or "model"; it is omitted for the
// system instruction.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes a request. ResponseMimeType "application/json"
// makes the model emit a bare JSON document.
type GenerationConfig struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// Request is one generateContent call.
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("gemini returned no content")

// Client calls the Gemini API with an API key. A client that failed to
// initialise reports that error from every call.
type Client struct {
	sdk     *genai.Client
	initErr error
}

func New(apiKey string) *Client {
	return newClient(apiKey, genai.HTTPOptions{})
}

// NewWithBaseURL points the client at another endpoint, such as a test
// server. Requests go to {baseURL}/v1beta/models/{model}:generateContent.
func NewWithBaseURL(apiKey, baseURL string) *Client {
	return newClient(apiKey, genai.HTTPOptions{BaseURL: strings.TrimRight(baseURL, "/"), APIVersion: "v1beta"})
}

func newClient(apiKey string, opts genai.HTTPOptions) *Client {
	sdk, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: opts,
	})
	if err != nil {
		return &Client{initErr: fmt.Errorf("gemini client: %w", err)}
	}
	return &Client{sdk: sdk}
}

// GenerateContent runs model on req and returns the text of the first
// candidate.
func (c *Client) GenerateContent(ctx context.Context, model string, req Request) (string, error) {
	if c.initErr != nil {
		return "", c.initErr
	}
	if model == "" {
		model = DefaultModel
	}

	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, turn := range req.Contents {
		contents = append(contents, toSDK(turn))
	}
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != nil {
		cfg.SystemInstruction = toSDK(*req.SystemInstruction)
	}
	if gc := req.GenerationConfig; gc != nil {
		cfg.ResponseMIMEType = gc.ResponseMimeType
		if gc.Temperature != nil {
			cfg.Temperature = genai.Ptr(float32(*gc.Temperature))
		}
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini %s (HTTP %d): %s", apiErr.Status, apiErr.Code, apiErr.Message)
		}
		return "", fmt.Errorf("gemini: %w", err)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func toSDK(c Content) *genai.Content {
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, &genai.Part{Text: p.Text})
	}
	return &genai.Content{Role: c.Role, Parts: parts}
}
