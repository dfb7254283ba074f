package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docmesh/docman-service/internal/core/port"
)

// LocalStore keeps file content on the local filesystem, one file per id.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the storage directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(fileID string) (string, error) {
	// File ids are uuids; reject anything that could traverse outside the
	// storage directory.
	if fileID == "" || strings.ContainsAny(fileID, `/\`) || strings.Contains(fileID, "..") {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	return filepath.Join(s.dir, fileID), nil
}

// Put writes the content to a temporary file and renames it into place.
func (s *LocalStore) Put(ctx context.Context, fileID string, content io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest, err := s.path(fileID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, fileID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if size > 0 && written != size {
		return fmt.Errorf("short write: expected %d bytes, wrote %d", size, written)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("store file content: %w", err)
	}
	return nil
}

// Get opens the stored content for reading.
func (s *LocalStore) Get(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(fileID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file content: %w", err)
	}
	return f, nil
}

// Delete removes the stored content. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(fileID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file content: %w", err)
	}
	return nil
}

var _ port.FileStore = (*LocalStore)(nil)
