package uploads

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edchat-io/edchat/internal/config"
)

func testStorage(t *testing.T, maxBytes int64) *DiskStorage {
	t.Helper()
	cfg := config.UploadConfig{Dir: t.TempDir(), MaxSizeBytes: maxBytes}
	storage, err := NewDiskStorage(cfg, "/uploads/chat_images")
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	return storage
}

func TestDiskStorageSave(t *testing.T) {
	storage := testStorage(t, 1024)

	body := bytes.NewReader([]byte("fake png bytes"))
	saved, err := storage.Save(context.Background(), "image/png", body)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.MIMEType != "image/png" {
		t.Fatalf("mime = %q", saved.MIMEType)
	}
	if saved.Size != 14 {
		t.Fatalf("size = %d", saved.Size)
	}
	if !strings.HasPrefix(saved.URL, "/uploads/chat_images/") || !strings.HasSuffix(saved.URL, ".png") {
		t.Fatalf("url = %q", saved.URL)
	}

	data, errRead := os.ReadFile(filepath.Join(storage.dir, filepath.Base(saved.URL)))
	if errRead != nil {
		t.Fatalf("read back: %v", errRead)
	}
	if string(data) != "fake png bytes" {
		t.Fatalf("stored %q", data)
	}
}

func TestDiskStorageContentTypeParameters(t *testing.T) {
	storage := testStorage(t, 1024)

	saved, err := storage.Save(context.Background(), "Image/JPEG; charset=binary", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.MIMEType != "image/jpeg" {
		t.Fatalf("mime = %q", saved.MIMEType)
	}
	if !strings.HasSuffix(saved.URL, ".jpg") {
		t.Fatalf("url = %q", saved.URL)
	}
}

func TestDiskStorageRejectsUnsupportedType(t *testing.T) {
	storage := testStorage(t, 1024)

	for _, contentType := range []string{"application/pdf", "text/html", "image/svg+xml", ""} {
		if _, err := storage.Save(context.Background(), contentType, bytes.NewReader([]byte("x"))); err != ErrUnsupportedType {
			t.Fatalf("%q: expected ErrUnsupportedType, got %v", contentType, err)
		}
	}
}

func TestDiskStorageRejectsOversized(t *testing.T) {
	storage := testStorage(t, 16)

	_, err := storage.Save(context.Background(), "image/png", bytes.NewReader(make([]byte, 17)))
	if err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// No partial file may survive a rejected upload.
	entries, errList := os.ReadDir(storage.dir)
	if errList != nil {
		t.Fatalf("list dir: %v", errList)
	}
	if len(entries) != 0 {
		t.Fatalf("%d files left after rejected upload", len(entries))
	}
}

func TestDiskStorageExactCapAccepted(t *testing.T) {
	storage := testStorage(t, 16)

	saved, err := storage.Save(context.Background(), "image/webp", bytes.NewReader(make([]byte, 16)))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Size != 16 {
		t.Fatalf("size = %d", saved.Size)
	}
}
