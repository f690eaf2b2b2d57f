package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// FileStatus represents the cloud-upload state of an idea's attachments.
// The status is idea-granular: one failed upload fails the whole idea.
type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusUploaded FileStatus = "uploaded"
	FileStatusFailed   FileStatus = "failed"
)

// EmbeddingStatus represents the embedding-pipeline state of an idea or of a
// single attached file.
//
// At the idea level, EmbeddingStatusCompleted means every attached file and
// external reference has been attempted at least once — it denotes
// "processing finished", not "processing succeeded". The per-file status
// carries the actual outcome.
type EmbeddingStatus string

const (
	EmbeddingStatusPending   EmbeddingStatus = "pending"
	EmbeddingStatusCompleted EmbeddingStatus = "completed"
	EmbeddingStatusFailed    EmbeddingStatus = "failed"
)

// StringArray stores a string slice as a JSON column.
type StringArray []string

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Idea is the aggregate root for one unit of captured knowledge and its
// attached source material.
type Idea struct {
	ID              string          `gorm:"type:text;primaryKey" json:"id"`
	Title           string          `gorm:"type:text;not null" json:"idea_title"`
	Description     string          `gorm:"type:text" json:"idea_description"`
	Category        string          `gorm:"type:text;index:idx_ideas_category" json:"category"`
	SubCategory     string          `gorm:"type:text" json:"sub_category,omitempty"`
	CuriosityLevel  string          `gorm:"type:text" json:"curiosity_level,omitempty"`
	PriorityReason  string          `gorm:"type:text" json:"priority_reason,omitempty"`
	Source          string          `gorm:"type:text" json:"source,omitempty"`
	Tags            StringArray     `gorm:"type:text" json:"tags"`
	CreatedByUserID string          `gorm:"type:text;not null;index:idx_ideas_owner" json:"created_by_user_id"`
	FileStatus      FileStatus      `gorm:"type:text;default:pending" json:"file_status"`
	EmbeddingStatus EmbeddingStatus `gorm:"type:text;default:pending" json:"embedding_status"`
	StorageFolderID string          `gorm:"type:text" json:"storage_folder_id,omitempty"`

	AttachedFiles      []AttachedFile      `gorm:"foreignKey:IdeaID;constraint:OnDelete:CASCADE" json:"attached_files"`
	ExternalReferences []ExternalReference `gorm:"foreignKey:IdeaID;constraint:OnDelete:CASCADE" json:"external_references"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Idea.
func (Idea) TableName() string {
	return "ideas"
}

// AttachedFile is one uploaded source document belonging to an idea.
//
// FileName is the normalized storage-safe name. It is unique within an idea
// and is the join key used by the dedup check that prevents double-embedding.
type AttachedFile struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"-"`
	IdeaID          string          `gorm:"type:text;not null;index:idx_files_idea,unique" json:"idea_id"`
	FileName        string          `gorm:"type:text;not null;index:idx_files_idea,unique" json:"file_name"`
	OriginalName    string          `gorm:"type:text" json:"originalname"`
	MimeType        string          `gorm:"type:text" json:"mimetype"`
	StagingPath     string          `gorm:"type:text" json:"path,omitempty"`
	FileCategory    string          `gorm:"type:text" json:"file_category,omitempty"`
	FileType        string          `gorm:"type:text" json:"file_type,omitempty"`
	StorageFileID   string          `gorm:"type:text" json:"storage_file_id,omitempty"`
	StorageLink     string          `gorm:"type:text" json:"storage_link,omitempty"`
	EmbeddingStatus EmbeddingStatus `gorm:"type:text;default:pending" json:"embedding_status"`
	UploadedAt      *time.Time      `json:"uploaded_at,omitempty"`
}

// TableName returns the database table name for AttachedFile.
func (AttachedFile) TableName() string {
	return "attached_files"
}

// ReferenceKind identifies how an external reference should be turned into
// text.
type ReferenceKind string

const (
	ReferenceKindVideo   ReferenceKind = "video"
	ReferenceKindWeb     ReferenceKind = "web"
	ReferenceKindUnknown ReferenceKind = "unknown"
)

// ExternalReference is a link-based source attached to an idea instead of an
// uploaded file. References carry no persisted processing status; they are
// handled best-effort.
type ExternalReference struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	IdeaID      string `gorm:"type:text;not null;index:idx_refs_idea" json:"idea_id"`
	Label       string `gorm:"type:text" json:"label,omitempty"`
	YoutubeLink string `gorm:"type:text" json:"youtube_link,omitempty"`
	WebsiteURL  string `gorm:"type:text" json:"website_url,omitempty"`
	URL         string `gorm:"type:text" json:"url,omitempty"`
	Title       string `gorm:"type:text" json:"title,omitempty"`
}

// TableName returns the database table name for ExternalReference.
func (ExternalReference) TableName() string {
	return "external_references"
}

// Kind resolves the reference kind from whichever link fields are set.
func (r *ExternalReference) Kind() ReferenceKind {
	switch {
	case r.YoutubeLink != "":
		return ReferenceKindVideo
	case r.WebsiteURL != "" || r.URL != "":
		return ReferenceKindWeb
	default:
		return ReferenceKindUnknown
	}
}

// TargetURL returns the URL the reference points at.
func (r *ExternalReference) TargetURL() string {
	if r.YoutubeLink != "" {
		return r.YoutubeLink
	}
	if r.WebsiteURL != "" {
		return r.WebsiteURL
	}
	return r.URL
}

// DisplayName returns the name that stands in for a file name when the
// reference's chunks are written to the vector index.
func (r *ExternalReference) DisplayName() string {
	if r.Label != "" {
		return r.Label
	}
	if r.Title != "" {
		return r.Title
	}
	return r.TargetURL()
}
