package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
)

// DocumentExtractor extracts plain text from local files.
type DocumentExtractor struct{}

// NewDocumentExtractor creates a document extractor.
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{}
}

// Extract returns the text content of a local source.
func (e *DocumentExtractor) Extract(src Source) (string, error) {
	switch src.Kind {
	case KindPlainText:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", src.Path, err)
		}
		return string(data), nil
	case KindDocument, KindPDF:
		res, err := docconv.ConvertPath(src.Path)
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", src.Path, err)
		}
		return res.Body, nil
	default:
		return "", fmt.Errorf("document extractor cannot handle %s source", src.Kind)
	}
}

// WriteConvertedCopy persists extracted text under the converted dir so a
// retried event can pick up where extraction already succeeded.
func WriteConvertedCopy(convertedDir, fileName, text string) error {
	if err := os.MkdirAll(convertedDir, 0o755); err != nil {
		return fmt.Errorf("create converted dir: %w", err)
	}
	path := ConvertedPath(convertedDir, fileName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write converted copy: %w", err)
	}
	return nil
}

// RemoveConvertedCopy deletes the converted-text artifact, if present.
func RemoveConvertedCopy(convertedDir, fileName string) {
	_ = os.Remove(ConvertedPath(convertedDir, fileName))
}

// RemoveStagingCopy deletes the staged upload, if present. Paths outside the
// staging tree are left alone.
func RemoveStagingCopy(stagingDir, path string) {
	if path == "" {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	stagingAbs, err := filepath.Abs(stagingDir)
	if err != nil {
		return
	}
	if !strings.HasPrefix(abs, stagingAbs+string(filepath.Separator)) {
		return
	}
	_ = os.Remove(abs)
}
