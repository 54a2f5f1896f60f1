package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/nutriwheel/internal/gemini"
	"github.com/kalambet/nutriwheel/internal/proxy"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DetectConfig
		want    string
		wantErr error
	}{
		{"default is gemini", DetectConfig{GeminiAPIKey: "k"}, "gemini", nil},
		{"gemini without key", DetectConfig{Provider: "gemini"}, "", ErrNoAPIKey},
		{"openrouter", DetectConfig{Provider: "OpenRouter", OpenRouterAPIKey: "k"}, "openrouter", nil},
		{"openrouter without key", DetectConfig{Provider: "openrouter", GeminiAPIKey: "k"}, "", ErrNoAPIKey},
		{"ollama needs no key", DetectConfig{Provider: "ollama"}, "ollama", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Detect(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if e.Name() != tt.want {
				t.Errorf("Name = %q, want %q", e.Name(), tt.want)
			}
		})
	}

	if _, err := Detect(DetectConfig{Provider: "claude"}); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestDetect_DefaultModels(t *testing.T) {
	e, _ := Detect(DetectConfig{GeminiAPIKey: "k"})
	if e.DefaultModel() != gemini.DefaultModel {
		t.Errorf("gemini default = %q", e.DefaultModel())
	}
	e, _ = Detect(DetectConfig{Provider: "ollama", Model: "qwen2.5"})
	if e.DefaultModel() != "qwen2.5" {
		t.Errorf("ollama model override = %q", e.DefaultModel())
	}
}

func TestGeminiRequest_MapsRoles(t *testing.T) {
	req := geminiRequest([]Message{
		{Role: RoleSystem, Content: "You are Nutri Advisor"},
		{Role: RoleUser, Content: "menu"},
		{Role: RoleAssistant, Content: " "},
	}, true)

	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "You are Nutri Advisor" {
		t.Errorf("systemInstruction = %+v", req.SystemInstruction)
	}
	if len(req.Contents) != 2 || req.Contents[0].Role != "user" || req.Contents[1].Role != "model" {
		t.Errorf("contents = %+v", req.Contents)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("generationConfig = %+v", req.GenerationConfig)
	}

	plain := geminiRequest([]Message{{Role: RoleUser, Content: "x"}}, false)
	if plain.GenerationConfig != nil || plain.SystemInstruction != nil {
		t.Errorf("plain request = %+v", plain)
	}
}

func TestGeminiEngine_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"{}"}]}}]}`)
	}))
	defer srv.Close()

	e := NewGeminiEngine(gemini.NewWithBaseURL("k", srv.URL), "")
	out, err := e.Chat(context.Background(), "", []Message{{Role: RoleUser, Content: "hi"}}, true)
	if err != nil || out != "{}" {
		t.Errorf("Chat = %q, %v", out, err)
	}
}

func TestOpenRouterEngine_Chat(t *testing.T) {
	var got proxy.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{}"}}]}`)
	}))
	defer srv.Close()

	e := NewOpenRouterEngine(proxy.NewClientWithBaseURL("k", srv.URL), "")
	if _, err := e.Chat(context.Background(), "", []Message{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "u"}}, true); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Model != DefaultOpenRouterModel {
		t.Errorf("model = %q", got.Model)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("messages = %+v", got.Messages)
	}
}

// --- EnsureReady ---

type mockLocal struct {
	running bool
	models  map[string]bool
	pulled  []string
	chatErr error
	chats   int
}

func (m *mockLocal) Name() string         { return "mock" }
func (m *mockLocal) DefaultModel() string { return "llama3.1" }
func (m *mockLocal) Chat(context.Context, string, []Message, bool) (string, error) {
	m.chats++
	return "pong", m.chatErr
}
func (m *mockLocal) IsRunning(context.Context) bool             { return m.running }
func (m *mockLocal) HasModel(_ context.Context, name string) bool { return m.models[name] }
func (m *mockLocal) PullModel(_ context.Context, name string, cb func(PullProgress)) error {
	m.pulled = append(m.pulled, name)
	if cb != nil {
		cb(PullProgress{Status: "downloading", Total: 10, Completed: 5})
		cb(PullProgress{Status: "success"})
	}
	return nil
}

type hosted struct{}

func (hosted) Name() string         { return "hosted" }
func (hosted) DefaultModel() string { return "x" }
func (hosted) Chat(context.Context, string, []Message, bool) (string, error) {
	return "", errors.New("should not be called")
}

func TestEnsureReady_ModelPresent(t *testing.T) {
	m := &mockLocal{running: true, models: map[string]bool{"llama3.1": true}}
	if err := EnsureReady(context.Background(), m, io.Discard); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 0 {
		t.Errorf("unexpected pulls %v", m.pulled)
	}
	if m.chats != 1 {
		t.Errorf("warm-up chats = %d, want 1", m.chats)
	}
}

func TestEnsureReady_PullsMissing(t *testing.T) {
	var out bytes.Buffer
	m := &mockLocal{running: true, models: map[string]bool{}, chatErr: errors.New("cold")}
	if err := EnsureReady(context.Background(), m, &out); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if len(m.pulled) != 1 || m.pulled[0] != "llama3.1" {
		t.Errorf("pulled = %v", m.pulled)
	}
	for _, want := range []string{"pulling", "downloading 50%", "warm-up failed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestEnsureReady_NotRunning(t *testing.T) {
	m := &mockLocal{running: false}
	if err := EnsureReady(context.Background(), m, io.Discard); err == nil {
		t.Fatal("expected error when engine is down")
	}
}

func TestEnsureReady_HostedIsNoop(t *testing.T) {
	if err := EnsureReady(context.Background(), hosted{}, io.Discard); err != nil {
		t.Errorf("EnsureReady(hosted) = %v", err)
	}
}
