package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/domain"
	"github.com/cognidesk/idea-vault/internal/logger"
	"github.com/cognidesk/idea-vault/internal/repository"
	"github.com/cognidesk/idea-vault/internal/storage"
)

type fakeUploadStore struct {
	idea         *domain.Idea
	fileStatus   domain.FileStatus
	folderID     string
	uploads      map[string]repository.FileUpload
	markedFailed bool
}

func newFakeUploadStore(idea *domain.Idea) *fakeUploadStore {
	return &fakeUploadStore{idea: idea, uploads: map[string]repository.FileUpload{}}
}

func (f *fakeUploadStore) GetByID(_ context.Context, id string) (*domain.Idea, error) {
	if f.idea == nil || f.idea.ID != id {
		return nil, repository.ErrIdeaNotFound
	}
	return f.idea, nil
}

func (f *fakeUploadStore) UpdateFileStatus(_ context.Context, _ string, status domain.FileStatus) error {
	f.fileStatus = status
	return nil
}

func (f *fakeUploadStore) SetStorageFolder(_ context.Context, _, folderID string) error {
	f.folderID = folderID
	return nil
}

func (f *fakeUploadStore) RecordFileUpload(_ context.Context, _, fileName string, up repository.FileUpload) error {
	f.uploads[fileName] = up
	return nil
}

func (f *fakeUploadStore) MarkIdeaFailed(context.Context, string) error {
	f.markedFailed = true
	return nil
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) RefreshToken(context.Context, string) (string, error) {
	return f.token, f.err
}

type fakeFileStorage struct {
	folders   map[string]string // name -> id
	created   []string
	uploaded  []string
	uploadErr error
}

func newFakeFileStorage() *fakeFileStorage {
	return &fakeFileStorage{folders: map[string]string{}}
}

func (f *fakeFileStorage) FindFolder(_ context.Context, name string) (string, error) {
	return f.folders[name], nil
}

func (f *fakeFileStorage) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	id := "folder-" + name
	f.folders[name] = id
	f.created = append(f.created, name)
	return id, nil
}

func (f *fakeFileStorage) Upload(_ context.Context, folderID, name, _ string, reader io.Reader, _ int64) (*storage.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	io.Copy(io.Discard, reader)
	f.uploaded = append(f.uploaded, name)
	return &storage.UploadResult{
		FileID:   "file-" + name,
		FileLink: "https://drive.google.com/file/d/file-" + name + "/view",
	}, nil
}

func (f *fakeFileStorage) Delete(context.Context, string) error { return nil }

type fakeStorageFactory struct {
	store     *fakeFileStorage
	openToken string
}

func (f *fakeStorageFactory) Open(_ context.Context, token string) (storage.FileStorage, error) {
	f.openToken = token
	return f.store, nil
}

type uploadHarness struct {
	svc     *UploadService
	store   *fakeUploadStore
	files   *fakeFileStorage
	factory *fakeStorageFactory
	staging string
}

func newUploadHarness(t *testing.T, idea *domain.Idea) *uploadHarness {
	t.Helper()
	h := &uploadHarness{
		store:   newFakeUploadStore(idea),
		files:   newFakeFileStorage(),
		staging: t.TempDir(),
	}
	h.factory = &fakeStorageFactory{store: h.files}
	h.svc = NewUploadService(
		h.store,
		&fakeTokens{token: "fresh-token"},
		h.factory,
		logger.New(&logger.Config{Level: "error", Output: os.Stderr}),
		&config.StorageConfig{RootFolder: "CogniDesk"},
	)
	return h
}

func (h *uploadHarness) stageFile(t *testing.T, name, content string) domain.FileDescriptor {
	t.Helper()
	path := filepath.Join(h.staging, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return domain.FileDescriptor{
		FileName:     name,
		OriginalName: name,
		Path:         path,
		MimeType:     "application/pdf",
	}
}

func TestUploadHappyPath(t *testing.T) {
	h := newUploadHarness(t, testIdea())
	file := h.stageFile(t, "paper.pdf", "%PDF content")

	err := h.svc.HandleEvent(context.Background(), &domain.ProcessingEvent{
		IdeaID: "idea-1",
		UserID: "user-1",
		Files:  []domain.FileDescriptor{file},
		Event:  domain.EventIdeaCreated,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if h.factory.openToken != "fresh-token" {
		t.Errorf("storage opened with token %q", h.factory.openToken)
	}
	if len(h.files.created) != 2 || h.files.created[0] != "CogniDesk" {
		t.Errorf("folders created = %#v, want root then idea folder", h.files.created)
	}
	if !strings.HasPrefix(h.files.created[1], "Idea-Test_Idea-") {
		t.Errorf("idea folder name = %q", h.files.created[1])
	}
	if h.store.folderID == "" {
		t.Error("idea folder id not recorded")
	}
	if len(h.files.uploaded) != 1 || !strings.HasSuffix(h.files.uploaded[0], "_paper.pdf") {
		t.Errorf("uploaded = %#v", h.files.uploaded)
	}
	up, ok := h.store.uploads["paper.pdf"]
	if !ok {
		t.Fatal("upload not recorded on attachment row")
	}
	if up.FileCategory != "Document" || up.FileType != "pdf" {
		t.Errorf("upload metadata = %+v", up)
	}
	if h.store.fileStatus != domain.FileStatusUploaded {
		t.Errorf("file status = %q, want uploaded", h.store.fileStatus)
	}
}

func TestUploadReusesExistingRootFolder(t *testing.T) {
	h := newUploadHarness(t, testIdea())
	h.files.folders["CogniDesk"] = "existing-root"
	file := h.stageFile(t, "paper.pdf", "%PDF")

	err := h.svc.HandleEvent(context.Background(), &domain.ProcessingEvent{
		IdeaID: "idea-1",
		Files:  []domain.FileDescriptor{file},
		Event:  domain.EventIdeaCreated,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	for _, name := range h.files.created {
		if name == "CogniDesk" {
			t.Error("root folder recreated instead of reused")
		}
	}
}

func TestUploadFailureIsIdeaGranular(t *testing.T) {
	h := newUploadHarness(t, testIdea())
	h.files.uploadErr = errors.New("drive quota exceeded")
	file := h.stageFile(t, "paper.pdf", "%PDF")

	err := h.svc.HandleEvent(context.Background(), &domain.ProcessingEvent{
		IdeaID: "idea-1",
		Files:  []domain.FileDescriptor{file},
		Event:  domain.EventIdeaCreated,
	})
	if err != nil {
		t.Fatalf("upload failure must be swallowed, got %v", err)
	}
	if h.store.fileStatus != domain.FileStatusFailed {
		t.Errorf("file status = %q, want failed", h.store.fileStatus)
	}
}

func TestUploadSkipsMissingStagingFile(t *testing.T) {
	h := newUploadHarness(t, testIdea())
	missing := domain.FileDescriptor{
		FileName:     "gone.pdf",
		OriginalName: "gone.pdf",
		Path:         filepath.Join(h.staging, "gone.pdf"),
		MimeType:     "application/pdf",
	}

	err := h.svc.HandleEvent(context.Background(), &domain.ProcessingEvent{
		IdeaID: "idea-1",
		Files:  []domain.FileDescriptor{missing},
		Event:  domain.EventIdeaCreated,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(h.files.uploaded) != 0 {
		t.Errorf("uploaded = %#v, want none", h.files.uploaded)
	}
	if h.store.fileStatus != domain.FileStatusUploaded {
		t.Errorf("file status = %q, want uploaded when nothing is left to upload", h.store.fileStatus)
	}
}

func TestUploadIgnoresOtherEvents(t *testing.T) {
	h := newUploadHarness(t, testIdea())

	err := h.svc.HandleEvent(context.Background(), &domain.ProcessingEvent{
		IdeaID: "idea-1",
		Event:  "IDEA_DELETED",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(h.files.created) != 0 {
		t.Error("other events must not touch storage")
	}
}

func TestFileCategory(t *testing.T) {
	tests := []struct {
		mime     string
		expected string
	}{
		{"video/mp4", "Video"},
		{"image/png", "Image"},
		{"application/pdf", "Document"},
		{"text/plain", "Document"},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "Document"},
		{"application/octet-stream", "Other"},
	}
	for _, tt := range tests {
		if got := fileCategory(tt.mime); got != tt.expected {
			t.Errorf("fileCategory(%q) = %q, want %q", tt.mime, got, tt.expected)
		}
	}
}

func TestUserServiceClientRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/user-1/revoke/google" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"refreshed"}`))
	}))
	defer srv.Close()

	client := NewUserServiceClient(srv.URL)
	token, err := client.RefreshToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if token != "refreshed" {
		t.Errorf("token = %q", token)
	}
}

func TestUserServiceClientMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewUserServiceClient(srv.URL)
	if _, err := client.RefreshToken(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error for empty token response")
	}
}
