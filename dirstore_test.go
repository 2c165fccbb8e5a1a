package imagedup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirBlobStore_PutGetDelete(t *testing.T) {
	s, err := NewDirBlobStore(filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatalf("NewDirBlobStore: %v", err)
	}
	ctx := context.Background()
	data := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	path, err := s.Put(ctx, "blob-1", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("returned path %s not on disk: %v", path, err)
	}

	got, err := s.Get(ctx, "blob-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %v, want %v", got, data)
	}

	if err := s.Delete(ctx, "blob-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still on disk after delete: %v", err)
	}
	if _, err := s.Get(ctx, "blob-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestDirBlobStore_DeleteMissing(t *testing.T) {
	s, err := NewDirBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirBlobStore: %v", err)
	}
	if err := s.Delete(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDirBlobStore_NoTempFileLeftBehind(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	s, err := NewDirBlobStore(root)
	if err != nil {
		t.Fatalf("NewDirBlobStore: %v", err)
	}
	if _, err := s.Put(context.Background(), "blob-1", []byte("data")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one blob file, found %d entries", len(entries))
	}
}
