// Package file stores the state document as one JSON file per key on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/concordia-classroom/concordia/internal/domain/classroom"
	"github.com/concordia-classroom/concordia/internal/domain/shared"
)

var _ classroom.BlobStorage = (*BlobStore)(nil)

// BlobStore writes each key to <dir>/<key>.json. Writes go to a temp file in
// the same directory and are renamed into place, so a reader never sees a
// half-written document.
type BlobStore struct {
	dir string
	mu  sync.RWMutex
}

// NewBlobStore creates the directory if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if dir == "" {
		return nil, errors.New("file: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: create %s: %w", dir, err)
	}
	return &BlobStore{dir: dir}, nil
}

// Path returns the file that backs key.
func (s *BlobStore) Path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// Read returns the stored document or shared.ErrBlobNotFound.
func (s *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrBlobNotFound
		}
		return nil, fmt.Errorf("file: read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the document atomically.
func (s *BlobStore) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, sanitizeKey(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("file: rename %s: %w", key, err)
	}
	return nil
}

// Ping checks that the directory is still there.
func (s *BlobStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("file: stat %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("file: %s is not a directory", s.dir)
	}
	return nil
}

// Close is a no-op.
func (s *BlobStore) Close() error {
	return nil
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
}
