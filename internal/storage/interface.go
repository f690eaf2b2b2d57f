// Package storage abstracts the cloud destination for idea attachments.
// Google Drive stores files in real folders owned by the user; the S3 backend
// maps folders to key prefixes behind the same interface.
package storage

import (
	"context"
	"io"
)

// UploadResult identifies an uploaded file and where to view it.
type UploadResult struct {
	FileID     string
	FileLink   string
	FolderLink string
}

// FileStorage defines folder-oriented file storage operations.
type FileStorage interface {
	// FindFolder returns the id of a root-level folder by name, or "" when
	// no such folder exists.
	FindFolder(ctx context.Context, name string) (string, error)

	// CreateFolder creates a folder, optionally under a parent, and returns
	// its id.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)

	// Upload stores a file inside a folder and returns its id and links.
	Upload(ctx context.Context, folderID, name, contentType string, reader io.Reader, size int64) (*UploadResult, error)

	// Delete removes a file or folder by id.
	Delete(ctx context.Context, id string) error
}

// Factory opens a FileStorage session. Backends that act on behalf of a user
// (Drive) need the per-user access token; backends with static credentials
// ignore it.
type Factory interface {
	Open(ctx context.Context, accessToken string) (FileStorage, error)
}
