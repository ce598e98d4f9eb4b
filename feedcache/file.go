package feedcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore keeps one file per key in a directory.
type FileStore struct {
	storageDir string
}

// NewFileStore creates a file store, creating the directory if needed.
func NewFileStore(storageDir string) (*FileStore, error) {
	if storageDir == "" {
		return nil, errors.New("cache directory is required")
	}

	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{storageDir: storageDir}, nil
}

// path returns the file of key. Keys contain slashes, so they are escaped
// into a single file name.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.storageDir, url.PathEscape(key)+".xml")
}

// Get returns the feed stored under key.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cached feed: %w", err)
	}
	return string(data), nil
}

// Put stores value under key, replacing any previous value. The file is
// written next to its final name and renamed so readers never see a partial
// feed.
func (s *FileStore) Put(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(s.storageDir, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to write cached feed: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cached feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cached feed: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("failed to write cached feed: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
