package storage

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// FileArtifactStore persists operation artifacts on a filesystem under
// collision-free names and sweeps out anything older than the TTL.
type FileArtifactStore struct {
	fs         afero.Fs
	uploadPath string
	outputPath string
	ttl        time.Duration
	logger     domain.Logger
}

// NewFileArtifactStore creates the artifact store and its directories
func NewFileArtifactStore(fs afero.Fs, config domain.Config, logger domain.Logger) (*FileArtifactStore, error) {
	s := &FileArtifactStore{
		fs:         fs,
		uploadPath: config.GetUploadPath(),
		outputPath: config.GetOutputPath(),
		ttl:        time.Duration(config.GetArtifactTTLMinutes()) * time.Minute,
		logger:     logger,
	}
	for _, dir := range []string{s.uploadPath, s.outputPath} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return s, nil
}

// SaveArtifacts writes each artifact under a uuid-prefixed name and returns
// the stored names in artifact order.
func (s *FileArtifactStore) SaveArtifacts(artifacts []domain.Artifact) ([]string, error) {
	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		name := uuid.New().String() + "_" + sanitizeName(a.Name)
		path := filepath.Join(s.outputPath, name)
		if err := afero.WriteFile(s.fs, path, a.Data, 0o644); err != nil {
			return nil, apperrors.NewInternal("failed to store artifact", err)
		}
		s.logger.Debug("stored artifact", "name", name, "size", humanize.Bytes(uint64(len(a.Data))))
		names = append(names, name)
	}
	return names, nil
}

// Open reads a stored artifact back by name, returning its bytes and sniffed
// content type. Names with path separators are rejected.
func (s *FileArtifactStore) Open(name string) ([]byte, string, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, "", apperrors.NewInvalidRequest("invalid artifact name")
	}
	data, err := afero.ReadFile(s.fs, filepath.Join(s.outputPath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", apperrors.NewNotFound(fmt.Sprintf("artifact %s not found", name))
		}
		return nil, "", apperrors.NewInternal("failed to read artifact", err)
	}
	return data, mimetype.Detect(data).String(), nil
}

// Zip bundles the named artifacts into one stored zip and returns its name.
func (s *FileArtifactStore) Zip(names []string) (string, error) {
	if len(names) == 0 {
		return "", apperrors.NewInvalidRequest("no files to bundle")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		data, _, err := s.Open(name)
		if err != nil {
			return "", err
		}
		w, err := zw.Create(name)
		if err != nil {
			return "", apperrors.NewInternal("failed to build zip", err)
		}
		if _, err := w.Write(data); err != nil {
			return "", apperrors.NewInternal("failed to build zip", err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", apperrors.NewInternal("failed to finish zip", err)
	}

	zipName := uuid.New().String() + "_download.zip"
	if err := afero.WriteFile(s.fs, filepath.Join(s.outputPath, zipName), buf.Bytes(), 0o644); err != nil {
		return "", apperrors.NewInternal("failed to store zip", err)
	}
	s.logger.Info("bundled artifacts", "count", len(names), "size", humanize.Bytes(uint64(buf.Len())))
	return zipName, nil
}

// Cleanup removes stored files older than the TTL from both directories and
// returns how many were deleted.
func (s *FileArtifactStore) Cleanup() (int, error) {
	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, dir := range []string{s.uploadPath, s.outputPath} {
		infos, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			return removed, apperrors.NewInternal("failed to scan "+dir, err)
		}
		for _, info := range infos {
			if info.IsDir() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := s.fs.Remove(filepath.Join(dir, info.Name())); err != nil {
				s.logger.Warn("failed to remove expired file", "name", info.Name(), "error", err.Error())
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("cleanup sweep finished", "removed", removed)
	}
	return removed, nil
}

// SaveUpload keeps a copy of an incoming file in the upload directory.
func (s *FileArtifactStore) SaveUpload(name string, data []byte) (string, error) {
	stored := uuid.New().String() + "_" + sanitizeName(name)
	if err := afero.WriteFile(s.fs, filepath.Join(s.uploadPath, stored), data, 0o644); err != nil {
		return "", apperrors.NewInternal("failed to store upload", err)
	}
	return stored, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "artifact"
	}
	return name
}
