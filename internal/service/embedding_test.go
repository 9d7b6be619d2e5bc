package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minkyo/topiko/internal/config"
	"github.com/minkyo/topiko/internal/domain"
)

func newTestEmbeddingClient(baseURL string, dims, retries int) *EmbeddingClient {
	return NewEmbeddingClient(&config.EmbeddingConfig{
		Provider:     "jina",
		Model:        "jina-embeddings-v3",
		APIKey:       "test-key",
		BaseURL:      baseURL,
		Dimensions:   dims,
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	})
}

func embeddingResponse(vector []float32) map[string]interface{} {
	return map[string]interface{}{
		"data": []map[string]interface{}{
			{"embedding": vector, "index": 0},
		},
		"usage": map[string]int{"total_tokens": 3},
	}
}

func TestEmbeddingClient_Embed(t *testing.T) {
	var gotBody embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse([]float32{0.1, 0.2, 0.3}))
	}))
	defer server.Close()

	client := newTestEmbeddingClient(server.URL, 3, 0)
	vector, err := client.Embed(context.Background(), "machine learning", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vector.Equal(domain.Vector{0.1, 0.2, 0.3}) {
		t.Errorf("unexpected vector: %v", vector)
	}

	if len(gotBody.Input) != 1 || gotBody.Input[0].Text != "machine learning" {
		t.Fatalf("unexpected request input: %+v", gotBody.Input)
	}
	// Empty title defaults to the text itself.
	if gotBody.Input[0].Title != "machine learning" {
		t.Errorf("expected title to default to text, got %q", gotBody.Input[0].Title)
	}
}

func TestEmbeddingClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"server error", http.StatusInternalServerError, domain.ErrServiceUnavailable},
		{"bad request", http.StatusBadRequest, domain.ErrInvalidResponse},
		{"unauthorized", http.StatusUnauthorized, domain.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestEmbeddingClient(server.URL, 3, 0)
			_, err := client.Embed(context.Background(), "machine learning", "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEmbeddingClient_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse([]float32{1, 0, 0}))
	}))
	defer server.Close()

	client := newTestEmbeddingClient(server.URL, 3, 3)
	vector, err := client.Embed(context.Background(), "machine learning", "")
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}
	if len(vector) != 3 {
		t.Errorf("unexpected vector: %v", vector)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestEmbeddingClient_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"empty data", map[string]interface{}{"data": []interface{}{}}},
		{"dimension mismatch", embeddingResponse([]float32{1, 2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer server.Close()

			client := newTestEmbeddingClient(server.URL, 3, 0)
			_, err := client.Embed(context.Background(), "machine learning", "")
			if !errors.Is(err, domain.ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}
