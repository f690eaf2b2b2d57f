package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognidesk/idea-vault/internal/config"
)

func embedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func vectorOf(dim int) []float32 {
	return make([]float32, dim)
}

func TestEmbedSuccess(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vectorOf(768)})
	})

	svc := NewEmbeddingService(&config.OllamaConfig{
		BaseURL:    srv.URL,
		EmbedModel: "nomic-embed-text",
	}, 768)
	svc.retryDelay = time.Millisecond

	vec, err := svc.Embed(context.Background(), "some chunk text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("vector length = %d", len(vec))
	}
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	var calls atomic.Int32
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vectorOf(512)})
	})

	svc := NewEmbeddingService(&config.OllamaConfig{
		BaseURL:      srv.URL,
		EmbedModel:   "nomic-embed-text",
		EmbedRetries: 3,
	}, 768)
	svc.retryDelay = time.Millisecond

	if _, err := svc.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestEmbedRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model loading"})
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vectorOf(768)})
	})

	svc := NewEmbeddingService(&config.OllamaConfig{
		BaseURL:      srv.URL,
		EmbedModel:   "nomic-embed-text",
		EmbedRetries: 3,
	}, 768)
	svc.retryDelay = time.Millisecond

	vec, err := svc.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("vector length = %d", len(vec))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGenerationStreamTokens(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if !req.Stream {
			t.Error("stream flag not set")
		}
		enc := json.NewEncoder(w)
		enc.Encode(ollamaGenerateChunk{Response: "Hello"})
		enc.Encode(ollamaGenerateChunk{Response: " world"})
		enc.Encode(ollamaGenerateChunk{Done: true})
	})

	svc := NewGenerationService(&config.OllamaConfig{
		BaseURL:       srv.URL,
		GenerateModel: "tinyllama",
	})

	var tokens []string
	err := svc.Stream(context.Background(), "prompt", func(tok string) error {
		tokens = append(tokens, tok)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != "Hello" || tokens[1] != " world" {
		t.Errorf("tokens = %#v", tokens)
	}
}

func TestGenerationStreamError(t *testing.T) {
	srv := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaGenerateChunk{Response: "partial"})
		enc.Encode(ollamaGenerateChunk{Error: "model crashed"})
	})

	svc := NewGenerationService(&config.OllamaConfig{
		BaseURL:       srv.URL,
		GenerateModel: "tinyllama",
	})

	var tokens []string
	err := svc.Stream(context.Background(), "prompt", func(tok string) error {
		tokens = append(tokens, tok)
		return nil
	})
	if err == nil {
		t.Fatal("expected stream error")
	}
	if len(tokens) != 1 || tokens[0] != "partial" {
		t.Errorf("tokens before error = %#v", tokens)
	}
}
