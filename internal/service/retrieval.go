package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/logger"
	"github.com/cognidesk/idea-vault/internal/prompts"
	"github.com/cognidesk/idea-vault/internal/repository"
)

// Searcher is the vector search surface the retrieval service needs.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]repository.SearchResult, error)
}

// Generator streams completion tokens for a prompt.
type Generator interface {
	Stream(ctx context.Context, prompt string, onToken func(token string) error) error
}

// RetrievalService answers questions over the embedded content, streaming
// tokens to the caller.
type RetrievalService struct {
	searcher  Searcher
	embedder  Embedder
	generator Generator
	logger    *logger.Logger

	topK             int
	summaryTopK      int
	summaryThreshold float32
	flushTokens      int
}

// NewRetrievalService creates the retrieval service.
func NewRetrievalService(
	searcher Searcher,
	embedder Embedder,
	generator Generator,
	log *logger.Logger,
	cfg *config.RetrievalConfig,
) *RetrievalService {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	summaryTopK := cfg.SummaryTopK
	if summaryTopK <= 0 {
		summaryTopK = 20
	}
	threshold := cfg.SummaryThreshold
	if threshold <= 0 {
		threshold = 0.66
	}
	flushTokens := cfg.FlushTokens
	if flushTokens <= 0 {
		flushTokens = 5
	}

	return &RetrievalService{
		searcher:         searcher,
		embedder:         embedder,
		generator:        generator,
		logger:           log,
		topK:             topK,
		summaryTopK:      summaryTopK,
		summaryThreshold: threshold,
		flushTokens:      flushTokens,
	}
}

func (s *RetrievalService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// IsSummaryRequest classifies a question as a summarization request.
func IsSummaryRequest(question string) bool {
	lowered := strings.ToLower(question)
	return strings.Contains(lowered, "summarize") ||
		strings.Contains(lowered, "summary") ||
		strings.HasPrefix(lowered, "summary of")
}

// Answer retrieves context for the question and streams the generated answer
// through emit. When the index holds nothing relevant the fixed sentinel is
// emitted instead of an error.
func (s *RetrievalService) Answer(ctx context.Context, question string, emit func(text string) error) error {
	ctx = logger.WithField(ctx, logger.FieldComponent, "retrieval")
	log := s.log(ctx)

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("embed question: %w", err)
	}

	summary := IsSummaryRequest(question)

	var prompt string
	if summary {
		results, err := s.searcher.Search(ctx, vector, s.summaryTopK)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		chunks := s.summaryChunks(results)
		log.WithField(logger.FieldCount, len(chunks)).Info("summary context selected")
		if len(chunks) == 0 {
			return emit(prompts.NotAvailableSentinel)
		}
		prompt = prompts.FormatSummary(chunks)
	} else {
		results, err := s.searcher.Search(ctx, vector, s.topK)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		chunks := qaChunks(results)
		log.WithField(logger.FieldCount, len(chunks)).Info("qa context selected")
		if len(chunks) == 0 {
			return emit(prompts.NotAvailableSentinel)
		}
		prompt = prompts.FormatQA(chunks, question)
	}

	return s.streamBuffered(ctx, prompt, emit)
}

// summaryChunks keeps only results scoring at or above the threshold.
func (s *RetrievalService) summaryChunks(results []repository.SearchResult) []prompts.ContextChunk {
	var chunks []prompts.ContextChunk
	for _, r := range results {
		if r.Payload == nil || r.Payload.OriginalText == "" {
			continue
		}
		if r.Score < s.summaryThreshold {
			continue
		}
		chunks = append(chunks, prompts.ContextChunk{
			FileName: r.Payload.FileName,
			Text:     r.Payload.OriginalText,
		})
	}
	return chunks
}

func qaChunks(results []repository.SearchResult) []prompts.ContextChunk {
	var chunks []prompts.ContextChunk
	for _, r := range results {
		if r.Payload == nil || r.Payload.OriginalText == "" {
			continue
		}
		chunks = append(chunks, prompts.ContextChunk{
			FileName: r.Payload.FileName,
			Text:     r.Payload.OriginalText,
		})
	}
	return chunks
}

// streamBuffered forwards generation output, coalescing tokens so the client
// sees fewer, larger writes. The tail is always flushed, even when the
// stream errors mid-way.
func (s *RetrievalService) streamBuffered(ctx context.Context, prompt string, emit func(text string) error) error {
	var buf strings.Builder
	count := 0

	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		out := buf.String()
		buf.Reset()
		count = 0
		return emit(out)
	}

	streamErr := s.generator.Stream(ctx, prompt, func(token string) error {
		buf.WriteString(token)
		count++
		if count >= s.flushTokens {
			return flush()
		}
		return nil
	})

	if err := flush(); err != nil {
		return err
	}
	return streamErr
}
