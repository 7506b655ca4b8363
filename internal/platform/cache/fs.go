package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FS is a filesystem-backed Store. Keys are slash-separated relative paths
// (family/version/kind), mirrored directly onto the cache directory so the
// on-disk layout stays browsable and interoperable with artifacts downloaded
// by hand. The file mtime serves as the stored-at timestamp.
type FS struct {
	dir string
}

// NewFS creates a filesystem store rooted at dir.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir %s: %w", dir, err)
	}
	return &FS{dir: dir}, nil
}

func (f *FS) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("cache: invalid key %q", key)
	}
	return filepath.Join(f.dir, clean), nil
}

// Get implements Store.
func (f *FS) Get(_ context.Context, key string) ([]byte, time.Time, bool) {
	p, err := f.path(key)
	if err != nil {
		return nil, time.Time{}, false
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, time.Time{}, false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, time.Time{}, false
	}
	return data, info.ModTime(), true
}

// Put implements Store. The payload is written to a temp file and renamed
// so that concurrent readers never observe a partial artifact.
func (f *FS) Put(_ context.Context, key string, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: create dir for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".cache-*")
	if err != nil {
		return fmt.Errorf("cache: create temp for %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: rename %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (f *FS) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: remove %s: %w", key, err)
	}
	return nil
}
