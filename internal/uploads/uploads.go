// Package uploads stores chat image attachments.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edchat-io/edchat/internal/config"
	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for content types outside the allowlist.
var ErrUnsupportedType = errors.New("uploads: unsupported content type")

// ErrTooLarge is returned when the upload exceeds the size cap.
var ErrTooLarge = errors.New("uploads: file too large")

// SavedFile describes a stored attachment.
type SavedFile struct {
	URL      string // Public URL to serve the attachment from.
	MIMEType string // Normalized content type.
	Size     int64  // Stored size in bytes.
}

// Storage persists attachment bodies.
type Storage interface {
	Save(ctx context.Context, contentType string, body io.Reader) (*SavedFile, error)
}

// allowedTypes maps accepted content types to the stored file extension.
var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// normalizeContentType strips parameters and lowercases the media type.
func normalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// checkType validates the content type against the allowlist and returns
// the normalized type plus its file extension.
func checkType(contentType string) (string, string, error) {
	normalized := normalizeContentType(contentType)
	ext, ok := allowedTypes[normalized]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return normalized, ext, nil
}

// DiskStorage writes attachments to the local filesystem.
type DiskStorage struct {
	dir      string
	urlBase  string
	maxBytes int64
}

// NewDiskStorage constructs a DiskStorage rooted at cfg.Dir. Files are
// served under urlBase, typically /uploads/chat_images.
func NewDiskStorage(cfg config.UploadConfig, urlBase string) (*DiskStorage, error) {
	if errMkdir := os.MkdirAll(cfg.Dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("uploads: create dir: %w", errMkdir)
	}
	return &DiskStorage{
		dir:      cfg.Dir,
		urlBase:  strings.TrimRight(urlBase, "/"),
		maxBytes: cfg.MaxSizeBytes,
	}, nil
}

// Save streams the body to disk under a random name. The size cap is
// enforced during the copy so an oversized body never lands fully on disk.
func (s *DiskStorage) Save(_ context.Context, contentType string, body io.Reader) (*SavedFile, error) {
	normalized, ext, errType := checkType(contentType)
	if errType != nil {
		return nil, errType
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, errCreate := os.Create(path)
	if errCreate != nil {
		return nil, fmt.Errorf("uploads: create file: %w", errCreate)
	}

	// Read one byte past the cap to detect oversize without trusting
	// any client-supplied length.
	written, errCopy := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	closeErr := f.Close()
	if errCopy != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("uploads: write file: %w", errCopy)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("uploads: close file: %w", closeErr)
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return nil, ErrTooLarge
	}

	return &SavedFile{
		URL:      s.urlBase + "/" + name,
		MIMEType: normalized,
		Size:     written,
	}, nil
}
