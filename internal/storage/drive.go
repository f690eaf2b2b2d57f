package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStorage implements FileStorage on the user's Google Drive.
type DriveStorage struct {
	svc *drive.Service
}

// NewDriveStorage creates a Drive client authenticated with a user access
// token obtained from the user service.
func NewDriveStorage(ctx context.Context, accessToken string) (*DriveStorage, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveStorage{svc: svc}, nil
}

// FindFolder returns the first non-trashed folder matching name, or "".
func (s *DriveStorage) FindFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false",
		folderMimeType, escapeQueryValue(name))

	list, err := s.svc.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name)").
		Spaces("drive").
		Do()
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// CreateFolder creates a folder, optionally under parentID.
func (s *DriveStorage) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	folder, err := s.svc.Files.Create(meta).
		Context(ctx).
		Fields("id").
		Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return folder.Id, nil
}

// Upload stores a file in the given folder and returns shareable links.
func (s *DriveStorage) Upload(ctx context.Context, folderID, name, contentType string, reader io.Reader, size int64) (*UploadResult, error) {
	meta := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	file, err := s.svc.Files.Create(meta).
		Context(ctx).
		Media(reader, googleapi.ContentType(contentType)).
		Fields("id").
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, err)
	}

	return &UploadResult{
		FileID:     file.Id,
		FileLink:   fmt.Sprintf("https://drive.google.com/file/d/%s/view", file.Id),
		FolderLink: fmt.Sprintf("https://drive.google.com/drive/folders/%s", folderID),
	}, nil
}

// Delete removes a file or folder by id.
func (s *DriveStorage) Delete(ctx context.Context, id string) error {
	if err := s.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// escapeQueryValue escapes single quotes in Drive query string literals.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

// DriveFactory opens per-user Drive sessions.
type DriveFactory struct{}

// Open implements Factory.
func (DriveFactory) Open(ctx context.Context, accessToken string) (FileStorage, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("drive storage requires an access token")
	}
	return NewDriveStorage(ctx, accessToken)
}
