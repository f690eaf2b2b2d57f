package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/logger"
)

// EmbeddingService generates text embeddings through a local Ollama server.
type EmbeddingService struct {
	client     *resty.Client
	baseURL    string
	model      string
	dimension  int
	retries    int
	retryDelay time.Duration
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg *config.OllamaConfig, dimension int) *EmbeddingService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}

	retries := cfg.EmbedRetries
	if retries <= 0 {
		retries = 3
	}

	return &EmbeddingService{
		client:     client,
		baseURL:    cfg.BaseURL,
		model:      cfg.EmbedModel,
		dimension:  dimension,
		retries:    retries,
		retryDelay: time.Second,
	}
}

// GetModel returns the model name being used.
func (s *EmbeddingService) GetModel() string {
	return s.model
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed generates an embedding for one text. Transient failures are retried
// with an increasing delay; a vector of the wrong dimension counts as a
// failure because the collection would reject or silently corrupt it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for attempt := 1; attempt <= s.retries; attempt++ {
		vector, err := s.embedOnce(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err

		if attempt < s.retries {
			logger.FromContext(ctx).WithError(err).
				WithField(logger.FieldAttempt, attempt).
				Warn("embedding attempt failed, retrying")
			select {
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", s.retries, lastErr)
}

func (s *EmbeddingService) embedOnce(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaEmbedResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(ollamaEmbedRequest{Model: s.model, Prompt: text}).
		SetResult(&resp).
		Post(s.baseURL + "/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Error != "" {
			return nil, fmt.Errorf("Ollama error: %s", resp.Error)
		}
		return nil, fmt.Errorf("Ollama error: status %d", httpResp.StatusCode())
	}

	if len(resp.Embedding) != s.dimension {
		return nil, fmt.Errorf("invalid vector size: got %d, expected %d", len(resp.Embedding), s.dimension)
	}

	return resp.Embedding, nil
}
