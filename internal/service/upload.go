package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/domain"
	"github.com/cognidesk/idea-vault/internal/logger"
	"github.com/cognidesk/idea-vault/internal/repository"
	"github.com/cognidesk/idea-vault/internal/storage"
)

// UploadStore is the persistence surface the upload pipeline needs.
type UploadStore interface {
	GetByID(ctx context.Context, id string) (*domain.Idea, error)
	UpdateFileStatus(ctx context.Context, ideaID string, status domain.FileStatus) error
	SetStorageFolder(ctx context.Context, ideaID, folderID string) error
	RecordFileUpload(ctx context.Context, ideaID, fileName string, up repository.FileUpload) error
	MarkIdeaFailed(ctx context.Context, ideaID string) error
}

// TokenRefresher obtains a fresh storage access token for a user.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, userID string) (string, error)
}

// UploadService mirrors an idea's staged attachments into cloud storage.
// Upload failure is idea-granular: one failed file fails the whole idea.
type UploadService struct {
	store      UploadStore
	tokens     TokenRefresher
	storage    storage.Factory
	logger     *logger.Logger
	rootFolder string
}

// NewUploadService creates the upload orchestrator.
func NewUploadService(
	store UploadStore,
	tokens TokenRefresher,
	factory storage.Factory,
	log *logger.Logger,
	cfg *config.StorageConfig,
) *UploadService {
	rootFolder := cfg.RootFolder
	if rootFolder == "" {
		rootFolder = "CogniDesk"
	}
	return &UploadService{
		store:      store,
		tokens:     tokens,
		storage:    factory,
		logger:     log,
		rootFolder: rootFolder,
	}
}

func (s *UploadService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// HandleEvent uploads every staged file of one event. Failures are written to
// the idea row and swallowed so the consumer commits and moves on.
func (s *UploadService) HandleEvent(ctx context.Context, event *domain.ProcessingEvent) error {
	if event.Event != domain.EventIdeaCreated {
		return nil
	}

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "upload",
		logger.FieldIdeaID:    event.IdeaID,
		logger.FieldUserID:    event.UserID,
	})
	log := s.log(ctx)

	if err := s.uploadIdea(ctx, event); err != nil {
		log.WithError(err).WithField(logger.FieldOutcome, "failed").Error("idea upload failed")
		if errors.Is(err, repository.ErrIdeaNotFound) {
			if markErr := s.store.MarkIdeaFailed(ctx, event.IdeaID); markErr != nil {
				log.WithError(markErr).Error("failed to mark missing idea failed")
			}
			return nil
		}
		if markErr := s.store.UpdateFileStatus(ctx, event.IdeaID, domain.FileStatusFailed); markErr != nil {
			log.WithError(markErr).Error("failed to record upload failure")
		}
		return nil
	}

	if err := s.store.UpdateFileStatus(ctx, event.IdeaID, domain.FileStatusUploaded); err != nil {
		return fmt.Errorf("record upload success: %w", err)
	}
	log.WithField(logger.FieldOutcome, "uploaded").Info("idea uploaded")
	return nil
}

func (s *UploadService) uploadIdea(ctx context.Context, event *domain.ProcessingEvent) error {
	idea, err := s.store.GetByID(ctx, event.IdeaID)
	if err != nil {
		return err
	}

	token, err := s.tokens.RefreshToken(ctx, idea.CreatedByUserID)
	if err != nil {
		return fmt.Errorf("refresh storage token: %w", err)
	}

	store, err := s.storage.Open(ctx, token)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	rootID, err := store.FindFolder(ctx, s.rootFolder)
	if err != nil {
		return fmt.Errorf("find root folder: %w", err)
	}
	if rootID == "" {
		rootID, err = store.CreateFolder(ctx, s.rootFolder, "")
		if err != nil {
			return fmt.Errorf("create root folder: %w", err)
		}
	}

	folderName := fmt.Sprintf("Idea-%s-%d", safeTitle(idea.Title), time.Now().UnixMilli())
	folderID, err := store.CreateFolder(ctx, folderName, rootID)
	if err != nil {
		return fmt.Errorf("create idea folder: %w", err)
	}
	if err := s.store.SetStorageFolder(ctx, idea.ID, folderID); err != nil {
		return fmt.Errorf("record storage folder: %w", err)
	}

	for _, desc := range event.Files {
		if err := s.uploadFile(ctx, store, idea, folderID, desc); err != nil {
			return fmt.Errorf("upload %s: %w", desc.FileName, err)
		}
	}

	return nil
}

func (s *UploadService) uploadFile(ctx context.Context, store storage.FileStorage, idea *domain.Idea, folderID string, desc domain.FileDescriptor) error {
	log := s.log(ctx).WithField(logger.FieldFileName, desc.FileName)

	f, err := os.Open(desc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// the embedding consumer may have finished and cleaned staging
			// first; nothing left to upload for this file
			log.WithField(logger.FieldStage, "upload").Warn("staging copy gone, skipping upload")
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), desc.OriginalName)
	result, err := store.Upload(ctx, folderID, name, desc.MimeType, f, info.Size())
	if err != nil {
		return err
	}

	return s.store.RecordFileUpload(ctx, idea.ID, desc.FileName, repository.FileUpload{
		StorageFileID: result.FileID,
		StorageLink:   result.FileLink,
		FileCategory:  fileCategory(desc.MimeType),
		FileType:      strings.TrimPrefix(filepath.Ext(desc.OriginalName), "."),
	})
}

// fileCategory buckets a MIME type into the coarse categories the UI shows.
func fileCategory(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return "Video"
	case strings.HasPrefix(mimeType, "image/"):
		return "Image"
	case mimeType == "application/pdf",
		strings.HasPrefix(mimeType, "text/"),
		strings.Contains(mimeType, "document"),
		strings.Contains(mimeType, "msword"):
		return "Document"
	default:
		return "Other"
	}
}

// UserServiceClient refreshes Google access tokens through the user service.
type UserServiceClient struct {
	client  *resty.Client
	baseURL string
}

// NewUserServiceClient creates a client for the user service.
func NewUserServiceClient(baseURL string) *UserServiceClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	return &UserServiceClient{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// RefreshToken asks the user service for a fresh Google access token.
func (c *UserServiceClient) RefreshToken(ctx context.Context, userID string) (string, error) {
	var resp tokenResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(fmt.Sprintf("%s/api/users/%s/revoke/google", c.baseURL, userID))
	if err != nil {
		return "", fmt.Errorf("failed to call user service: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		return "", fmt.Errorf("user service error: status %d", httpResp.StatusCode())
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("user service returned no access token")
	}
	return resp.AccessToken, nil
}
