package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/domain"
	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) *IdeaRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return NewIdeaRepository(db)
}

func seedIdea(t *testing.T, repo *IdeaRepository) *domain.Idea {
	t.Helper()
	idea := &domain.Idea{
		ID:              uuid.NewString(),
		Title:           "Sparse attention survey",
		Description:     "collect recent papers",
		Category:        "research",
		Tags:            domain.StringArray{"ml", "attention"},
		CreatedByUserID: uuid.NewString(),
		AttachedFiles: []domain.AttachedFile{
			{FileName: "survey.pdf", OriginalName: "Survey.pdf", MimeType: "application/pdf"},
			{FileName: "notes.txt", OriginalName: "notes.txt", MimeType: "text/plain"},
		},
		ExternalReferences: []domain.ExternalReference{
			{YoutubeLink: "https://youtu.be/dQw4w9WgXcQ", Label: "talk"},
		},
	}
	if err := repo.Create(context.Background(), idea); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return idea
}

func TestGetByIDLoadsAssociations(t *testing.T) {
	repo := newTestRepo(t)
	idea := seedIdea(t, repo)

	got, err := repo.GetByID(context.Background(), idea.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.AttachedFiles) != 2 {
		t.Errorf("AttachedFiles = %d, want 2", len(got.AttachedFiles))
	}
	if len(got.ExternalReferences) != 1 {
		t.Errorf("ExternalReferences = %d, want 1", len(got.ExternalReferences))
	}
	if got.EmbeddingStatus != domain.EmbeddingStatusPending {
		t.Errorf("EmbeddingStatus = %q, want pending default", got.EmbeddingStatus)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ml" {
		t.Errorf("Tags round-trip failed: %#v", got.Tags)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByID(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrIdeaNotFound) {
		t.Errorf("expected ErrIdeaNotFound, got %v", err)
	}
}

func TestStatusUpdates(t *testing.T) {
	repo := newTestRepo(t)
	idea := seedIdea(t, repo)
	ctx := context.Background()

	if err := repo.UpdateEmbeddingStatus(ctx, idea.ID, domain.EmbeddingStatusCompleted); err != nil {
		t.Fatalf("UpdateEmbeddingStatus: %v", err)
	}
	if err := repo.UpdateFileStatus(ctx, idea.ID, domain.FileStatusUploaded); err != nil {
		t.Fatalf("UpdateFileStatus: %v", err)
	}
	if err := repo.UpdateFileEmbeddingStatus(ctx, idea.ID, "survey.pdf", domain.EmbeddingStatusFailed); err != nil {
		t.Fatalf("UpdateFileEmbeddingStatus: %v", err)
	}

	got, err := repo.GetByID(ctx, idea.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.EmbeddingStatus != domain.EmbeddingStatusCompleted {
		t.Errorf("idea EmbeddingStatus = %q", got.EmbeddingStatus)
	}
	if got.FileStatus != domain.FileStatusUploaded {
		t.Errorf("idea FileStatus = %q", got.FileStatus)
	}

	file, err := repo.GetAttachedFile(ctx, idea.ID, "survey.pdf")
	if err != nil {
		t.Fatalf("GetAttachedFile: %v", err)
	}
	if file.EmbeddingStatus != domain.EmbeddingStatusFailed {
		t.Errorf("file EmbeddingStatus = %q, want failed", file.EmbeddingStatus)
	}

	other, err := repo.GetAttachedFile(ctx, idea.ID, "notes.txt")
	if err != nil {
		t.Fatalf("GetAttachedFile: %v", err)
	}
	if other.EmbeddingStatus != domain.EmbeddingStatusPending {
		t.Errorf("untouched file EmbeddingStatus = %q, want pending", other.EmbeddingStatus)
	}
}

func TestMarkIdeaFailedSetsBothStatuses(t *testing.T) {
	repo := newTestRepo(t)
	idea := seedIdea(t, repo)

	if err := repo.MarkIdeaFailed(context.Background(), idea.ID); err != nil {
		t.Fatalf("MarkIdeaFailed: %v", err)
	}

	got, err := repo.GetByID(context.Background(), idea.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.EmbeddingStatus != domain.EmbeddingStatusFailed || got.FileStatus != domain.FileStatusFailed {
		t.Errorf("statuses = (%q, %q), want both failed", got.EmbeddingStatus, got.FileStatus)
	}
}

func TestDeleteCascadesToAttachmentsAndReferences(t *testing.T) {
	repo := newTestRepo(t)
	idea := seedIdea(t, repo)
	ctx := context.Background()

	if err := repo.Delete(ctx, idea.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := repo.GetByID(ctx, idea.ID); !errors.Is(err, ErrIdeaNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrIdeaNotFound", err)
	}

	var files int64
	if err := repo.db.Model(&domain.AttachedFile{}).Where("idea_id = ?", idea.ID).Count(&files).Error; err != nil {
		t.Fatalf("count attached files: %v", err)
	}
	if files != 0 {
		t.Errorf("attached files left after delete = %d, want 0", files)
	}

	var refs int64
	if err := repo.db.Model(&domain.ExternalReference{}).Where("idea_id = ?", idea.ID).Count(&refs).Error; err != nil {
		t.Fatalf("count references: %v", err)
	}
	if refs != 0 {
		t.Errorf("references left after delete = %d, want 0", refs)
	}
}

func TestRecordFileUpload(t *testing.T) {
	repo := newTestRepo(t)
	idea := seedIdea(t, repo)

	err := repo.RecordFileUpload(context.Background(), idea.ID, "survey.pdf", FileUpload{
		StorageFileID: "drive-file-id",
		StorageLink:   "https://drive.google.com/file/d/drive-file-id/view",
		FileCategory:  "document",
		FileType:      ".pdf",
	})
	if err != nil {
		t.Fatalf("RecordFileUpload: %v", err)
	}

	file, err := repo.GetAttachedFile(context.Background(), idea.ID, "survey.pdf")
	if err != nil {
		t.Fatalf("GetAttachedFile: %v", err)
	}
	if file.StorageFileID != "drive-file-id" {
		t.Errorf("StorageFileID = %q", file.StorageFileID)
	}
	if file.UploadedAt == nil {
		t.Error("UploadedAt not stamped")
	}
}
