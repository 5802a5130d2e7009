package storage

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

type mockStoreConfig struct {
	ttlMinutes int
}

func (c *mockStoreConfig) GetServerPort() string       { return "8080" }
func (c *mockStoreConfig) GetUploadPath() string       { return "/uploads" }
func (c *mockStoreConfig) GetOutputPath() string       { return "/outputs" }
func (c *mockStoreConfig) GetMaxFileSize() int64       { return 1 << 20 }
func (c *mockStoreConfig) GetMaxConcurrentJobs() int64 { return 2 }
func (c *mockStoreConfig) GetOperationTimeout() int    { return 5 }
func (c *mockStoreConfig) GetAdapterTimeout() int      { return 5 }
func (c *mockStoreConfig) GetArtifactTTLMinutes() int  { return c.ttlMinutes }
func (c *mockStoreConfig) GetLogLevel() string         { return "info" }

// MockStoreLogger is the logger used by storage tests
type MockStoreLogger struct{}

func NewMockStoreLogger() *MockStoreLogger { return &MockStoreLogger{} }

func (m *MockStoreLogger) Info(msg string, fields ...interface{})             {}
func (m *MockStoreLogger) Error(msg string, err error, fields ...interface{}) {}
func (m *MockStoreLogger) Debug(msg string, fields ...interface{})            {}
func (m *MockStoreLogger) Warn(msg string, fields ...interface{})             {}

func newTestStore(t *testing.T, ttlMinutes int) (*FileArtifactStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewFileArtifactStore(fs, &mockStoreConfig{ttlMinutes: ttlMinutes}, NewMockStoreLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, fs
}

func TestArtifactStore_SaveAndOpen(t *testing.T) {
	store, _ := newTestStore(t, 60)
	artifacts := []domain.Artifact{
		{Name: "merged.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7 fake")},
		{Name: "page 1.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nrest")},
	}

	names, err := store.SaveArtifacts(artifacts)
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 stored names, got %d", len(names))
	}
	if !strings.HasSuffix(names[0], "_merged.pdf") {
		t.Fatalf("expected a uuid-prefixed name, got %q", names[0])
	}
	if strings.Contains(names[1], " ") {
		t.Fatalf("expected spaces to be sanitized, got %q", names[1])
	}

	data, contentType, err := store.Open(names[0])
	if err != nil {
		t.Fatalf("expected open to succeed, got %v", err)
	}
	if !bytes.Equal(data, artifacts[0].Data) {
		t.Fatal("stored bytes do not round-trip")
	}
	if contentType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", contentType)
	}
}

func TestArtifactStore_Open_RejectsTraversal(t *testing.T) {
	store, _ := newTestStore(t, 60)
	for _, name := range []string{"../secret", "a/b.pdf", ".hidden"} {
		if _, _, err := store.Open(name); !apperrors.IsKind(err, apperrors.KindInvalidRequest) {
			t.Fatalf("expected invalid_request for %q, got %v", name, err)
		}
	}
}

func TestArtifactStore_Open_NotFound(t *testing.T) {
	store, _ := newTestStore(t, 60)
	if _, _, err := store.Open("nope.pdf"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestArtifactStore_Zip(t *testing.T) {
	store, _ := newTestStore(t, 60)
	names, err := store.SaveArtifacts([]domain.Artifact{
		{Name: "a.pdf", Data: []byte("first")},
		{Name: "b.pdf", Data: []byte("second")},
	})
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	zipName, err := store.Zip(names)
	if err != nil {
		t.Fatalf("expected zip to succeed, got %v", err)
	}
	data, contentType, err := store.Open(zipName)
	if err != nil {
		t.Fatalf("expected to open the zip, got %v", err)
	}
	if contentType != "application/zip" {
		t.Fatalf("expected application/zip, got %q", contentType)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("stored zip is not readable: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
}

func TestArtifactStore_Zip_EmptyList(t *testing.T) {
	store, _ := newTestStore(t, 60)
	if _, err := store.Zip(nil); !apperrors.IsKind(err, apperrors.KindInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestArtifactStore_Zip_MissingEntry(t *testing.T) {
	store, _ := newTestStore(t, 60)
	if _, err := store.Zip([]string{"ghost.pdf"}); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestArtifactStore_Cleanup_RemovesExpired(t *testing.T) {
	store, fs := newTestStore(t, 60)
	names, err := store.SaveArtifacts([]domain.Artifact{
		{Name: "old.pdf", Data: []byte("old")},
		{Name: "fresh.pdf", Data: []byte("fresh")},
	})
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}

	// age the first file past the TTL
	stale := time.Now().Add(-2 * time.Hour)
	if err := fs.Chtimes(filepath.Join("/outputs", names[0]), stale, stale); err != nil {
		t.Fatalf("failed to age file: %v", err)
	}

	removed, err := store.Cleanup()
	if err != nil {
		t.Fatalf("expected cleanup to succeed, got %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed file, got %d", removed)
	}
	if _, _, err := store.Open(names[0]); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected the expired artifact to be gone, got %v", err)
	}
	if _, _, err := store.Open(names[1]); err != nil {
		t.Fatalf("expected the fresh artifact to survive, got %v", err)
	}
}

func TestArtifactStore_SaveUpload(t *testing.T) {
	store, fs := newTestStore(t, 60)
	name, err := store.SaveUpload("report final.pdf", []byte("upload bytes"))
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if !strings.HasSuffix(name, "_report_final.pdf") {
		t.Fatalf("expected a sanitized uuid-prefixed name, got %q", name)
	}
	data, err := afero.ReadFile(fs, filepath.Join("/uploads", name))
	if err != nil {
		t.Fatalf("expected the upload on disk, got %v", err)
	}
	if !bytes.Equal(data, []byte("upload bytes")) {
		t.Fatal("upload bytes do not round-trip")
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"plain.pdf":      "plain.pdf",
		"with space.pdf": "with_space.pdf",
		"../../etc":      "etc",
		"":               "artifact",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Fatalf("sanitizeName(%q): expected %q, got %q", in, want, got)
		}
	}
}
