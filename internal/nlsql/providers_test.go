package nlsql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/askdb/askdb/internal/schema"
)

var testTables = []schema.Table{
	{Name: "customers", Columns: []schema.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: true},
		{Name: "name", Type: "TEXT", NotNull: true},
	}},
}

func TestAnthropicTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}

		var payload struct {
			Model    string `json:"model"`
			System   string `json:"system"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if !strings.Contains(payload.System, "### Table: customers") {
			t.Error("system prompt missing schema context")
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Content != "How many customers are there?" {
			t.Errorf("messages = %+v", payload.Messages)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": `{"is_answerable": true, "sql": "SELECT COUNT(*) AS total_customers FROM customers", "explanation": ""}`},
			},
		})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(AnthropicConfig{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	if !provider.Available(context.Background()) {
		t.Fatal("provider with key should be available")
	}

	result, err := provider.Translate(context.Background(), Request{
		Question: "How many customers are there?",
		Tables:   testTables,
	})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT COUNT(*) AS total_customers FROM customers" {
		t.Fatalf("sql = %q", result.SQL)
	}
	if result.Provider != "anthropic" {
		t.Fatalf("provider = %q", result.Provider)
	}
}

func TestAnthropicUnavailableWithoutKey(t *testing.T) {
	provider, err := NewAnthropicProvider(AnthropicConfig{BaseURL: "https://api.anthropic.com"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider() error = %v", err)
	}
	if provider.Available(context.Background()) {
		t.Fatal("provider without key should be unavailable")
	}
}

func TestGroqTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer groq-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{
					"content": `{"is_answerable": false, "sql": "", "explanation": "No weather data."}`,
				}},
			},
		})
	}))
	defer server.Close()

	provider, err := NewGroqProvider(GroqConfig{BaseURL: server.URL, APIKey: "groq-key"})
	if err != nil {
		t.Fatalf("NewGroqProvider() error = %v", err)
	}

	result, err := provider.Translate(context.Background(), Request{Question: "What is the weather?", Tables: testTables})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.Answerable {
		t.Fatal("expected unanswerable result")
	}
	if result.Explanation != "No weather data." {
		t.Fatalf("explanation = %q", result.Explanation)
	}
}

func TestGroqTranslateSurfacesUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limit"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := NewGroqProvider(GroqConfig{BaseURL: server.URL, APIKey: "groq-key"})
	if err != nil {
		t.Fatalf("NewGroqProvider() error = %v", err)
	}
	_, err = provider.Translate(context.Background(), Request{Question: "q", Tables: testTables})
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("error = %v", err)
	}
}

func TestOllamaAvailabilityProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models": []}`))
	}))

	provider, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, ProbeTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewOllamaProvider() error = %v", err)
	}
	if !provider.Available(context.Background()) {
		t.Fatal("running daemon should be available")
	}

	server.Close()
	if provider.Available(context.Background()) {
		t.Fatal("stopped daemon should be unavailable")
	}
}

func TestOllamaTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload struct {
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Stream {
			t.Error("streaming should be disabled")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{
				"content": "```sql\nSELECT name FROM customers\n```",
			},
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewOllamaProvider() error = %v", err)
	}

	result, err := provider.Translate(context.Background(), Request{Question: "list customer names", Tables: testTables})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT name FROM customers" {
		t.Fatalf("sql = %q", result.SQL)
	}
}
