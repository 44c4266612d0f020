package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatCompletionJSON(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4.1-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 3,
			"total_tokens":      15,
		},
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletionJSON("7"))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: -1,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "answer with a page number"},
				{Role: "user", Content: "where is 2.1?"},
			},
			MaxTokens: 16,
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success || result.Content != "7" {
			t.Errorf("result = %+v", result)
		}
		if result.TotalTokens != 15 {
			t.Errorf("TotalTokens = %d, want 15", result.TotalTokens)
		}
		if result.Provider != OpenAIName {
			t.Errorf("Provider = %s", result.Provider)
		}
		if got["model"] != openAIDefaultModel {
			t.Errorf("model = %v, want %s", got["model"], openAIDefaultModel)
		}
		if msgs, _ := got["messages"].([]any); len(msgs) != 2 {
			t.Errorf("sent %d messages, want 2", len(msgs))
		}
	})

	t.Run("structured output", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletionJSON(`[{"number":"1","title":"Intro","page":3}]`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, MaxRetries: -1})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "outline"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(`{"type":"array"}`)},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if len(result.ParsedJSON) == 0 {
			t.Error("expected ParsedJSON")
		}
	})

	t.Run("structured output mismatch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletionJSON(`{"not":"an array"}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, MaxRetries: -1})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "outline"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(`{"type":"array"}`)},
		})
		if err == nil {
			t.Fatal("expected schema error")
		}
		if result.ErrorType != "json_parse" {
			t.Errorf("ErrorType = %s, want json_parse", result.ErrorType)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, MaxRetries: -1})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if _, ok := IsRateLimitError(err); !ok {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
	})
}

func TestOpenAIClient_Config(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	if client.Name() != OpenAIName {
		t.Errorf("Name() = %s", client.Name())
	}
	if client.defaultModel != openAIDefaultModel {
		t.Errorf("defaultModel = %s", client.defaultModel)
	}
	if client.RequestsPerSecond() != 8.0 {
		t.Errorf("RequestsPerSecond() = %f, want 8", client.RequestsPerSecond())
	}
}
