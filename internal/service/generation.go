package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/cognidesk/idea-vault/internal/config"
)

// GenerationService streams completions from a local Ollama server.
type GenerationService struct {
	client  *resty.Client
	baseURL string
	model   string
}

// NewGenerationService creates a new generation service. Streaming responses
// are read raw, so no client-level timeout is set; callers bound the stream
// with their context.
func NewGenerationService(cfg *config.OllamaConfig) *GenerationService {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")

	return &GenerationService{
		client:  client,
		baseURL: cfg.BaseURL,
		model:   cfg.GenerateModel,
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Stream generates a completion and invokes onToken for every token as it
// arrives. A non-nil error from onToken aborts the stream.
func (s *GenerationService) Stream(ctx context.Context, prompt string, onToken func(token string) error) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(ollamaGenerateRequest{Model: s.model, Prompt: prompt, Stream: true}).
		SetDoNotParseResponse(true).
		Post(s.baseURL + "/api/generate")
	if err != nil {
		return fmt.Errorf("failed to call Ollama: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Ollama error: status %d", resp.StatusCode())
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaGenerateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// partial or malformed line, same as the upstream behavior
			continue
		}
		if chunk.Error != "" {
			return fmt.Errorf("Ollama stream error: %s", chunk.Error)
		}
		if chunk.Response != "" {
			if err := onToken(chunk.Response); err != nil {
				return err
			}
		}
		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
