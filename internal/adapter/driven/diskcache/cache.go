// Package diskcache implements the ValueCache port as JSON files under a
// cache root directory.
package diskcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/fduhole/dxkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ValueCache[struct{}] = (*Cache[struct{}])(nil)

// Cache stores one JSON-encoded value of type T at a fixed path.
// Entries older than expiry, measured from the file's modification time,
// read as a miss. A zero expiry never expires.
type Cache[T any] struct {
	path   string
	expiry time.Duration
	now    func() time.Time
}

// New creates a Cache for the file at root/relPath, e.g. "fduhole/user.json".
func New[T any](root, relPath string, expiry time.Duration) *Cache[T] {
	return &Cache[T]{
		path:   filepath.Join(root, filepath.FromSlash(relPath)),
		expiry: expiry,
		now:    time.Now,
	}
}

// Path returns the absolute file path backing the cache.
func (c *Cache[T]) Path() string {
	return c.path
}

// Load reads and decodes the cached value. A missing or expired file returns
// found=false with a nil error; undecodable content returns driven.ErrDecode.
func (c *Cache[T]) Load() (T, bool, error) {
	var zero T

	info, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("stat cache %s: %w", c.path, err)
	}

	if c.expiry > 0 && c.now().Sub(info.ModTime()) > c.expiry {
		return zero, false, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read cache %s: %w", c.path, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("decode cache %s: %w: %w", c.path, driven.ErrDecode, err)
	}
	return v, true, nil
}

// Store encodes v and atomically replaces the cache file. Readers see either
// the previous content or the new content, never a partial write.
func (c *Cache[T]) Store(v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", c.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if err := atomic.WriteFile(c.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write cache %s: %w", c.path, err)
	}
	return nil
}

// Remove deletes the cache file. A missing file is not an error.
func (c *Cache[T]) Remove() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache %s: %w", c.path, err)
	}
	return nil
}
