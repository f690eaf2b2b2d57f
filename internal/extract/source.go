// Package extract turns idea attachments and external references into plain
// text. Local files go through docconv, web pages through a longest-block
// scrape, and video links through a transcript API.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cognidesk/idea-vault/internal/domain"
)

// PermanentError marks a failure that retrying cannot fix: unsupported file
// type, missing source, or a source that yields no text. The orchestrator
// stops the attempt loop when it sees one.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err as a permanent failure.
func Permanent(reason string, err error) *PermanentError {
	return &PermanentError{Reason: reason, Err: err}
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// SourceKind identifies how a source's text is obtained.
type SourceKind int

const (
	KindDocument SourceKind = iota // .docx/.doc via docconv
	KindPDF                        // .pdf via docconv
	KindPlainText                  // .txt/.md read directly
	KindWebPage                    // scraped
	KindVideo                      // transcript API
)

func (k SourceKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindPDF:
		return "pdf"
	case KindPlainText:
		return "plain_text"
	case KindWebPage:
		return "web_page"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Source is a resolved, extractable input. Exactly one of Path or URL is set
// depending on Kind.
type Source struct {
	Kind SourceKind
	Name string // normalized file name or reference display name
	Path string // local kinds
	URL  string // web/video kinds
}

var nonWordRe = regexp.MustCompile(`\W+`)

// SafeName normalizes an arbitrary name into the storage-safe form used for
// converted-text artifacts.
func SafeName(name string) string {
	return strings.ToLower(nonWordRe.ReplaceAllString(name, "_"))
}

// ConvertedPath returns the path of the converted-text artifact for a file.
func ConvertedPath(convertedDir, fileName string) string {
	return filepath.Join(convertedDir, SafeName(fileName)+".txt")
}

// ResolveFile maps an event file descriptor to a concrete source. When the
// staging copy is gone it falls back to a previously written converted-text
// artifact; with neither present the file is permanently unprocessable.
func ResolveFile(desc domain.FileDescriptor, convertedDir string) (Source, error) {
	name := desc.FileName
	if name == "" {
		name = desc.OriginalName
	}

	ext := strings.ToLower(filepath.Ext(desc.Path))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}

	var kind SourceKind
	switch ext {
	case ".docx", ".doc":
		kind = KindDocument
	case ".pdf":
		kind = KindPDF
	case ".txt", ".md":
		kind = KindPlainText
	default:
		return Source{}, Permanent(fmt.Sprintf("unsupported file type %q", ext), nil)
	}

	if desc.Path != "" {
		if _, err := os.Stat(desc.Path); err == nil {
			return Source{Kind: kind, Name: name, Path: desc.Path}, nil
		}
	}

	converted := ConvertedPath(convertedDir, name)
	if _, err := os.Stat(converted); err == nil {
		return Source{Kind: KindPlainText, Name: name, Path: converted}, nil
	}

	return Source{}, Permanent(fmt.Sprintf("no staging or converted copy for %q", name), nil)
}

// ResolveReference maps an external reference to a source.
func ResolveReference(ref *domain.ExternalReference) (Source, error) {
	switch ref.Kind() {
	case domain.ReferenceKindVideo:
		return Source{Kind: KindVideo, Name: ref.DisplayName(), URL: ref.TargetURL()}, nil
	case domain.ReferenceKindWeb:
		return Source{Kind: KindWebPage, Name: ref.DisplayName(), URL: ref.TargetURL()}, nil
	default:
		return Source{}, Permanent("reference has no usable link", nil)
	}
}
