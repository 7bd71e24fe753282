package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each value in <dir>/<namespace>/<key>.json, readable only by
// the owner.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. Directories are created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(namespace, key string) string {
	return filepath.Join(s.dir, namespace, key+".json")
}

func (s *FileStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	if err := checkName(namespace, key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.path(namespace, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kvstore.Get: %w", err)
	}
	return data, true, nil
}

func (s *FileStore) Set(_ context.Context, namespace, key string, value []byte) error {
	if err := checkName(namespace, key); err != nil {
		return err
	}
	dir := filepath.Join(s.dir, namespace)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("kvstore.Set: create dir: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial blob.
	tmp, err := os.CreateTemp(dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore.Set: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("kvstore.Set: chmod: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("kvstore.Set: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kvstore.Set: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path(namespace, key)); err != nil {
		return fmt.Errorf("kvstore.Set: rename: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, namespace, key string) error {
	if err := checkName(namespace, key); err != nil {
		return err
	}
	err := os.Remove(s.path(namespace, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("kvstore.Delete: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
