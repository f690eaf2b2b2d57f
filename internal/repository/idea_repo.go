package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cognidesk/idea-vault/internal/domain"
	"gorm.io/gorm"
)

// ErrIdeaNotFound is returned when an idea id has no row.
var ErrIdeaNotFound = errors.New("idea not found")

// IdeaRepository handles idea and attachment data operations.
type IdeaRepository struct {
	db *gorm.DB
}

// NewIdeaRepository creates a new IdeaRepository.
func NewIdeaRepository(db *gorm.DB) *IdeaRepository {
	return &IdeaRepository{db: db}
}

// Create inserts a new idea with its attachments and references.
func (r *IdeaRepository) Create(ctx context.Context, idea *domain.Idea) error {
	return r.db.WithContext(ctx).Create(idea).Error
}

// GetByID retrieves an idea with its files and references.
func (r *IdeaRepository) GetByID(ctx context.Context, id string) (*domain.Idea, error) {
	var idea domain.Idea
	err := r.db.WithContext(ctx).
		Preload("AttachedFiles").
		Preload("ExternalReferences").
		First(&idea, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdeaNotFound
		}
		return nil, err
	}
	return &idea, nil
}

// Delete removes an idea; attached files and references cascade.
func (r *IdeaRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Idea{}, "id = ?", id).Error
}

// UpdateEmbeddingStatus sets the idea-level embedding status.
func (r *IdeaRepository) UpdateEmbeddingStatus(ctx context.Context, ideaID string, status domain.EmbeddingStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("id = ?", ideaID).
		Update("embedding_status", status).Error
}

// UpdateFileStatus sets the idea-level upload status. One failed upload fails
// the whole idea, so this is the only upload-status write path.
func (r *IdeaRepository) UpdateFileStatus(ctx context.Context, ideaID string, status domain.FileStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("id = ?", ideaID).
		Update("file_status", status).Error
}

// MarkIdeaFailed sets both idea-level statuses to failed in one write. Used
// when the idea row exists but processing cannot start at all.
func (r *IdeaRepository) MarkIdeaFailed(ctx context.Context, ideaID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("id = ?", ideaID).
		Updates(map[string]interface{}{
			"embedding_status": domain.EmbeddingStatusFailed,
			"file_status":      domain.FileStatusFailed,
		}).Error
}

// SetStorageFolder records the cloud folder created for the idea's uploads.
func (r *IdeaRepository) SetStorageFolder(ctx context.Context, ideaID, folderID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Idea{}).
		Where("id = ?", ideaID).
		Update("storage_folder_id", folderID).Error
}

// UpdateFileEmbeddingStatus sets the per-file embedding status, addressing
// the row by its (idea_id, file_name) unique key.
func (r *IdeaRepository) UpdateFileEmbeddingStatus(ctx context.Context, ideaID, fileName string, status domain.EmbeddingStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.AttachedFile{}).
		Where("idea_id = ? AND file_name = ?", ideaID, fileName).
		Update("embedding_status", status).Error
}

// FileUpload captures the storage result recorded onto an attached file row.
type FileUpload struct {
	StorageFileID string
	StorageLink   string
	FileCategory  string
	FileType      string
}

// RecordFileUpload writes the storage identifiers onto the matching
// attachment row and stamps the upload time.
func (r *IdeaRepository) RecordFileUpload(ctx context.Context, ideaID, fileName string, up FileUpload) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.AttachedFile{}).
		Where("idea_id = ? AND file_name = ?", ideaID, fileName).
		Updates(map[string]interface{}{
			"storage_file_id": up.StorageFileID,
			"storage_link":    up.StorageLink,
			"file_category":   up.FileCategory,
			"file_type":       up.FileType,
			"uploaded_at":     &now,
		}).Error
}

// GetAttachedFile retrieves one attachment by its (idea_id, file_name) key.
func (r *IdeaRepository) GetAttachedFile(ctx context.Context, ideaID, fileName string) (*domain.AttachedFile, error) {
	var file domain.AttachedFile
	err := r.db.WithContext(ctx).
		First(&file, "idea_id = ? AND file_name = ?", ideaID, fileName).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}
