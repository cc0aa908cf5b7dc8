package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenRouterProvider_Complete_Success(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Expected chat completions path, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %s", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-1",
			"model": "openai/gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"summary\": \"ok\", \"accuracyScore\": 55}"}}]
		}`))
	}))
	defer server.Close()

	provider, err := NewOpenRouterProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	schema := MustSchemaFor(testVerdict{})
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		System: "You are a fact checker.",
		User:   "Coffee causes cancer",
		Schema: schema,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	format, ok := raw["response_format"].(map[string]any)
	if !ok || format["type"] != "json_schema" {
		t.Errorf("Expected json_schema response format, got %v", raw["response_format"])
	}
	if raw["model"] != openrouterDefaultModel {
		t.Errorf("Expected default model, got %v", raw["model"])
	}

	var verdict testVerdict
	if err := DecodeStrict(schema, resp.Text, &verdict); err != nil {
		t.Fatalf("DecodeStrict failed: %v", err)
	}
	if verdict.AccuracyScore != 55 {
		t.Errorf("Expected 55, got %v", verdict.AccuracyScore)
	}
	if resp.TokensUsed != 0 {
		t.Errorf("Expected 0 tokens without usage, got %d", resp.TokensUsed)
	}
}

func TestOpenRouterProvider_Complete_TokensUsed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-2",
			"model": "openai/gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "OK"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer server.Close()

	provider, err := NewOpenRouterProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{User: "ping"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.TokensUsed != 150 {
		t.Errorf("Expected 150 tokens, got %d", resp.TokensUsed)
	}
	if resp.Text != "OK" {
		t.Errorf("Expected OK, got %q", resp.Text)
	}
}

func TestOpenRouterProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream failed", "code": 502}}`))
	}))
	defer server.Close()

	provider, err := NewOpenRouterProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Complete(context.Background(), CompletionRequest{User: "x"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOpenRouterProvider_MissingKey(t *testing.T) {
	if _, err := NewOpenRouterProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestToOpenRouterSchema(t *testing.T) {
	converted, err := toOpenRouterSchema(MustSchemaFor(testVerdict{}))
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if len(converted.Required) != 2 {
		t.Errorf("expected required fields to survive conversion, got %v", converted.Required)
	}
	if _, ok := converted.Properties["summary"]; !ok {
		t.Error("expected summary property")
	}
}
