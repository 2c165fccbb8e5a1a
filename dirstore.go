package imagedup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirBlobStore keeps image blobs as flat files under a root directory,
// one file per record ID. Writes go through a temp file plus rename so a
// crashed write never leaves a half-written blob behind.
type DirBlobStore struct {
	root string
}

// NewDirBlobStore creates root (and parents) if needed and returns a store
// over it.
func NewDirBlobStore(root string) (*DirBlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", root, err)
	}
	return &DirBlobStore{root: root}, nil
}

// Root returns the directory blobs are stored under.
func (s *DirBlobStore) Root() string { return s.root }

func (s *DirBlobStore) path(id string) string {
	return filepath.Join(s.root, id)
}

func (s *DirBlobStore) Put(_ context.Context, id string, data []byte) (string, error) {
	dst := s.path(id)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return dst, nil
}

func (s *DirBlobStore) Get(_ context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *DirBlobStore) Delete(_ context.Context, id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}
