package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mistralServer answers /ocr with the given pages and records the request.
func mistralServer(t *testing.T, got *ocrRequest, pages ...ocrPage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ocr" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ocrResponse{Model: MistralOCRModel, Pages: pages, Usage: &ocrUsage{PagesProcessed: len(pages)}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMistralOCRClient_ProcessImage(t *testing.T) {
	t.Run("reads the page markdown", func(t *testing.T) {
		var req ocrRequest
		srv := mistralServer(t, &req, ocrPage{
			Markdown:   "CONTENTS\n\n1 Introduction ..... 3",
			Dimensions: ocrPageSize{Width: 1700, Height: 2200, DPI: 300},
		})
		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: srv.URL})

		result, err := client.ProcessImage(context.Background(), []byte("png"), 2)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if req.Document.Type != "image_url" || req.Document.ImageURL == nil {
			t.Errorf("document = %+v", req.Document)
		}
		if !result.Success || !strings.Contains(result.Text, "Introduction") {
			t.Errorf("result = %+v", result)
		}
		if result.CostUSD != MistralOCRCostPerPage {
			t.Errorf("CostUSD = %f", result.CostUSD)
		}
		if result.Metadata["page_num"] != 2 || result.Metadata["pages_processed"] != 1 {
			t.Errorf("metadata = %v", result.Metadata)
		}
	})

	t.Run("no pages is an error", func(t *testing.T) {
		srv := mistralServer(t, nil)
		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: srv.URL})

		result, err := client.ProcessImage(context.Background(), []byte("png"), 1)
		if err == nil || result.Success {
			t.Errorf("want failure, got %+v, %v", result, err)
		}
	})

	t.Run("context deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer srv.Close()
		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: 1})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if _, err := client.ProcessImage(ctx, []byte("png"), 1); err == nil {
			t.Error("expected context error")
		}
	})
}

func TestMistralOCRClient_Retries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		failFirst int32 // requests answered with status before succeeding
		wantCalls int32
		wantErr   string
	}{
		{"bad request is final", http.StatusBadRequest, `{"error":{"message":"Invalid image format"}}`, 99, 1, "Invalid image format"},
		{"unavailable is retried", http.StatusServiceUnavailable, "", 2, 3, ""},
		{"gives up after max retries", http.StatusBadGateway, "upstream", 99, 3, "status 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.failFirst {
					w.WriteHeader(tt.status)
					w.Write([]byte(tt.body))
					return
				}
				json.NewEncoder(w).Encode(ocrResponse{Pages: []ocrPage{{Markdown: "ok"}}})
			}))
			defer srv.Close()

			client := NewMistralOCRClient(MistralOCRConfig{
				APIKey:     "test-key",
				BaseURL:    srv.URL,
				MaxRetries: 3,
				RetryDelay: time.Millisecond,
			})
			result, err := client.ProcessImage(context.Background(), []byte("png"), 1)
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ProcessImage() error = %v", err)
				}
				if result.RetryCount != int(tt.wantCalls)-1 {
					t.Errorf("RetryCount = %d", result.RetryCount)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestMistralOCRClient_Convert(t *testing.T) {
	t.Run("joins pages of a document", func(t *testing.T) {
		var req ocrRequest
		srv := mistralServer(t, &req,
			ocrPage{Index: 0, Markdown: "| No | Title | Page |\n|---|---|---|\n| 1 | Intro | 3 |\n"},
			ocrPage{Index: 1, Markdown: "| 2 | Geology | 7 |"},
		)
		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: srv.URL})

		md, err := client.Convert(context.Background(), []byte("%PDF-1.7"))
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if req.Document.Type != "document_url" || !strings.HasPrefix(req.Document.DocumentURL, "data:application/pdf;base64,") {
			t.Errorf("document = %+v", req.Document)
		}
		if !strings.Contains(md, "| 1 | Intro | 3 |\n\n| 2 | Geology | 7 |") {
			t.Errorf("markdown = %q", md)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key"})
		if _, err := client.Convert(context.Background(), nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:     "test-key",
			BaseURL:    srv.URL,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		})
		_, err := client.Convert(context.Background(), []byte("%PDF"))
		if _, ok := IsRateLimitError(err); !ok {
			t.Fatalf("expected RateLimitError, got %T: %v", err, err)
		}
	})
}
