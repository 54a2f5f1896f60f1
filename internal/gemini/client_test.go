package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c := NewWithBaseURL("secret", srv.URL)
	out, err := c.GenerateContent(context.Background(), "", Request{
		Contents:          []Content{{Role: "user", Parts: []Part{{Text: "hi"}}}},
		SystemInstruction: &Content{Parts: []Part{{Text: "be brief"}}},
		GenerationConfig:  &GenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if out != `{"a":1}` {
		t.Errorf("text = %q", out)
	}
	if !strings.HasSuffix(gotPath, "/v1beta/models/gemini-2.5-flash:generateContent") {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q", gotKey)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("systemInstruction = %+v", got.SystemInstruction)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("generationConfig = %+v", got.GenerationConfig)
	}
}

var oneTurn = Request{Contents: []Content{{Role: "user", Parts: []Part{{Text: "hi"}}}}}

func TestGenerateContent_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	_, err := NewWithBaseURL("bad", srv.URL).GenerateContent(context.Background(), "m", oneTurn)
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("err = %v, want API message", err)
	}
}

func TestGenerateContent_Empty(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates":[]}`,
		"blank text":    `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			_, err := NewWithBaseURL("k", srv.URL).GenerateContent(context.Background(), "m", oneTurn)
			if !errors.Is(err, ErrEmptyResponse) {
				t.Errorf("err = %v, want ErrEmptyResponse", err)
			}
		})
	}
}

func TestGenerateContent_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	_, err := NewWithBaseURL("k", srv.URL).GenerateContent(context.Background(), "m", oneTurn)
	if err == nil || !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("err = %v, want SAFETY block", err)
	}
}
