package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/domain"
	"github.com/cognidesk/idea-vault/internal/extract"
	"github.com/cognidesk/idea-vault/internal/logger"
	"github.com/cognidesk/idea-vault/internal/repository"
	"github.com/cognidesk/idea-vault/internal/textproc"
)

// IdeaStore is the persistence surface the ingestion pipeline needs.
type IdeaStore interface {
	GetByID(ctx context.Context, id string) (*domain.Idea, error)
	UpdateEmbeddingStatus(ctx context.Context, ideaID string, status domain.EmbeddingStatus) error
	UpdateFileEmbeddingStatus(ctx context.Context, ideaID, fileName string, status domain.EmbeddingStatus) error
	MarkIdeaFailed(ctx context.Context, ideaID string) error
}

// VectorStore is the vector index surface the ingestion pipeline needs.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	UpsertChunk(ctx context.Context, vector []float32, payload *repository.ChunkPayload) error
	CountByFileName(ctx context.Context, ideaID, fileName string) (uint64, error)
}

// Embedder generates one embedding per text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FileExtractor extracts text from resolved local sources.
type FileExtractor interface {
	Extract(src extract.Source) (string, error)
}

// URLExtractor extracts text from a remote source.
type URLExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// IngestService embeds an idea's attachments and references into the vector
// index, driving per-file state through the idea store.
type IngestService struct {
	ideas       IdeaStore
	vectors     VectorStore
	embedder    Embedder
	documents   FileExtractor
	web         URLExtractor
	transcripts URLExtractor
	logger      *logger.Logger

	maxAttempts   int
	retryDelay    time.Duration
	chunkMaxWords int
	ideaDeadline  time.Duration
	stagingDir    string
	convertedDir  string
}

// NewIngestService creates the ingestion orchestrator.
func NewIngestService(
	ideas IdeaStore,
	vectors VectorStore,
	embedder Embedder,
	documents FileExtractor,
	web URLExtractor,
	transcripts URLExtractor,
	log *logger.Logger,
	cfg *config.IngestConfig,
) *IngestService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	chunkMaxWords := cfg.ChunkMaxWords
	if chunkMaxWords <= 0 {
		chunkMaxWords = textproc.DefaultChunkMaxWords
	}
	ideaDeadline := cfg.IdeaDeadline
	if ideaDeadline <= 0 {
		ideaDeadline = 10 * time.Minute
	}

	return &IngestService{
		ideas:         ideas,
		vectors:       vectors,
		embedder:      embedder,
		documents:     documents,
		web:           web,
		transcripts:   transcripts,
		logger:        log,
		maxAttempts:   maxAttempts,
		retryDelay:    cfg.RetryDelay,
		chunkMaxWords: chunkMaxWords,
		ideaDeadline:  ideaDeadline,
		stagingDir:    cfg.StagingDir,
		convertedDir:  cfg.ConvertedDir,
	}
}

func (s *IngestService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// HandleEvent processes one broker event end to end. Idea-level failures are
// swallowed after the statuses are written: the consumer must survive any
// single event.
func (s *IngestService) HandleEvent(ctx context.Context, event *domain.ProcessingEvent) error {
	if event.Event != domain.EventIdeaCreated {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.ideaDeadline)
	defer cancel()

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "ingest",
		logger.FieldIdeaID:    event.IdeaID,
		logger.FieldUserID:    event.UserID,
	})
	log := s.log(ctx)

	idea, err := s.ideas.GetByID(ctx, event.IdeaID)
	if err != nil {
		if errors.Is(err, repository.ErrIdeaNotFound) {
			log.Warn("idea row missing, marking event failed")
			if markErr := s.ideas.MarkIdeaFailed(ctx, event.IdeaID); markErr != nil {
				log.WithError(markErr).Error("failed to mark missing idea failed")
			}
			return nil
		}
		return fmt.Errorf("load idea %s: %w", event.IdeaID, err)
	}

	if err := s.vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	for _, file := range event.Files {
		s.processFile(ctx, idea, file)
	}

	// the event carries the references as published at creation time; fall
	// back to it when the idea row was stored without its reference rows
	refs := idea.ExternalReferences
	if len(refs) == 0 && len(event.ExternalReferences) > 0 {
		refs = make([]domain.ExternalReference, 0, len(event.ExternalReferences))
		for _, desc := range event.ExternalReferences {
			refs = append(refs, desc.Reference(idea.ID))
		}
	}
	for i := range refs {
		s.processReference(ctx, idea, &refs[i])
	}

	// completed means "every source was attempted"; per-file rows carry the
	// individual outcomes
	if err := s.ideas.UpdateEmbeddingStatus(ctx, idea.ID, domain.EmbeddingStatusCompleted); err != nil {
		return fmt.Errorf("finalize embedding status: %w", err)
	}

	log.Info("idea processing finished")
	return nil
}

// processFile drives one attachment through the bounded retry loop and
// records the terminal per-file status.
func (s *IngestService) processFile(ctx context.Context, idea *domain.Idea, desc domain.FileDescriptor) {
	ctx = logger.WithField(ctx, logger.FieldFileName, desc.FileName)
	log := s.log(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.attemptFile(ctx, idea, desc)
		if err == nil {
			if markErr := s.ideas.UpdateFileEmbeddingStatus(ctx, idea.ID, desc.FileName, domain.EmbeddingStatusCompleted); markErr != nil {
				log.WithError(markErr).Error("failed to record file success")
			}
			extract.RemoveStagingCopy(s.stagingDir, desc.Path)
			extract.RemoveConvertedCopy(s.convertedDir, desc.FileName)
			log.WithField(logger.FieldOutcome, "completed").Info("file embedded")
			return
		}
		lastErr = err

		if extract.IsPermanent(err) {
			log.WithError(err).WithField(logger.FieldOutcome, "permanent").Warn("file permanently unprocessable")
			break
		}

		log.WithError(err).WithField(logger.FieldAttempt, attempt).Warn("file attempt failed")
		if attempt < s.maxAttempts && s.retryDelay > 0 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	if markErr := s.ideas.UpdateFileEmbeddingStatus(ctx, idea.ID, desc.FileName, domain.EmbeddingStatusFailed); markErr != nil {
		log.WithError(markErr).Error("failed to record file failure")
	}
	extract.RemoveStagingCopy(s.stagingDir, desc.Path)
	log.WithError(lastErr).WithField(logger.FieldOutcome, "failed").Error("file embedding failed")
}

// attemptFile runs one full extract-chunk-embed-store pass for a file.
func (s *IngestService) attemptFile(ctx context.Context, idea *domain.Idea, desc domain.FileDescriptor) error {
	src, err := extract.ResolveFile(desc, s.convertedDir)
	if err != nil {
		return err
	}

	// redelivered events must not double-embed
	count, err := s.vectors.CountByFileName(ctx, idea.ID, desc.FileName)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if count > 0 {
		s.log(ctx).WithField(logger.FieldCount, count).Info("file already embedded, skipping")
		return nil
	}

	text, err := s.documents.Extract(src)
	if err != nil {
		return fmt.Errorf("extract %s: %w", src.Name, err)
	}

	return s.embedText(ctx, idea, desc.FileName, text, true)
}

// processReference handles one external reference best-effort; references
// carry no persisted status, so failures are only logged.
func (s *IngestService) processReference(ctx context.Context, idea *domain.Idea, ref *domain.ExternalReference) {
	name := ref.DisplayName()
	ctx = logger.WithField(ctx, logger.FieldFileName, name)
	log := s.log(ctx)

	src, err := extract.ResolveReference(ref)
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, "resolve").Warn("skipping reference")
		return
	}

	count, err := s.vectors.CountByFileName(ctx, idea.ID, name)
	if err != nil {
		log.WithError(err).Error("reference dedup check failed")
		return
	}
	if count > 0 {
		log.Info("reference already embedded, skipping")
		return
	}

	var text string
	switch src.Kind {
	case extract.KindVideo:
		text, err = s.transcripts.Extract(ctx, src.URL)
	case extract.KindWebPage:
		text, err = s.web.Extract(ctx, src.URL)
	default:
		log.Warn("unsupported reference kind")
		return
	}
	if err != nil {
		log.WithError(err).WithField(logger.FieldStage, "extract").Warn("reference extraction failed")
		return
	}

	if err := s.embedText(ctx, idea, name, text, false); err != nil {
		log.WithError(err).Warn("reference embedding failed")
		return
	}
	log.WithField(logger.FieldOutcome, "completed").Info("reference embedded")
}

// embedText cleans, chunks, embeds and upserts one source's text under the
// given name. writeArtifact keeps a converted-text copy so a later retry can
// skip extraction.
func (s *IngestService) embedText(ctx context.Context, idea *domain.Idea, name, text string, writeArtifact bool) error {
	cleaned := textproc.Clean(text)
	if cleaned == "" {
		return extract.Permanent("extraction yielded no text", nil)
	}

	if writeArtifact {
		if err := extract.WriteConvertedCopy(s.convertedDir, name, cleaned); err != nil {
			s.log(ctx).WithError(err).Warn("failed to write converted copy")
		}
	}

	chunks := textproc.Chunk(cleaned, s.chunkMaxWords)
	if len(chunks) == 0 {
		return extract.Permanent("no chunks produced", nil)
	}
	md := textproc.ExtractMetadata(cleaned)

	embedded := 0
	for i, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			s.log(ctx).WithError(err).
				WithField(logger.FieldStage, "embed").
				WithField("chunk_index", i).
				Warn("chunk embedding failed, dropping chunk")
			continue
		}

		payload := &repository.ChunkPayload{
			IdeaID:       idea.ID,
			UserID:       idea.CreatedByUserID,
			FileName:     name,
			ChunkIndex:   i,
			OriginalText: chunk,
			ArxivID:      md.ArxivID,
			Year:         md.Year,
			AuthorsRaw:   md.AuthorsRaw,
		}
		if err := s.vectors.UpsertChunk(ctx, vector, payload); err != nil {
			s.log(ctx).WithError(err).
				WithField(logger.FieldStage, "store").
				WithField("chunk_index", i).
				Warn("chunk upsert failed, dropping chunk")
			continue
		}
		embedded++
	}

	if embedded == 0 {
		return fmt.Errorf("no chunk of %d embedded for %q", len(chunks), name)
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldStage: "store",
		logger.FieldCount: embedded,
		"chunks_total":    len(chunks),
	}).Info("chunks stored")
	return nil
}

// normalize whitespace in titles the same way upload folder names do
func safeTitle(title string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return "Untitled"
	}
	return strings.Join(strings.Fields(t), "_")
}
