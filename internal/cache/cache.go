// Package cache stores executed notebooks so that re-grading an unchanged
// submission does not run its kernel again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// entryExt is the extension of every cache entry. Entries are staged under
// entryExt+partialExt and renamed into place.
const (
	entryExt   = ".ipynb"
	partialExt = ".tmp"
)

// Cache provides caching for executed notebooks
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory. An empty
// directory disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key generates a cache key for one execution of a notebook.
// The key is based on:
// - the notebook bytes
// - the kernel name
// - the execution timeout
func Key(notebook []byte, kernel string, timeout time.Duration) string {
	h := sha256.New()

	_ = writeString(h, kernel)
	_ = writeInt(h, int64(timeout/time.Second))
	_, _ = h.Write(notebook)

	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the path of a cached executed notebook if it exists
func (c *Cache) Get(key string) (string, bool) {
	if c.dir == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(key)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Cache miss
		return "", false
	}

	return path, true
}

// Put stores an executed notebook and returns the path of the entry
func (c *Cache) Put(key string, executed []byte) (string, error) {
	if c.dir == "" {
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Ensure cache directory exists
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	path := c.entryPath(key)
	tmp := path + partialExt
	if err := os.WriteFile(tmp, executed, 0644); err != nil {
		return "", fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing cache file: %w", err)
	}

	return path, nil
}

// Clear removes all cached notebooks
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	// Safety check: only remove a directory that holds nothing but cache entries
	for _, entry := range entries {
		if entry.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !isCacheFile(entry.Name()) {
			return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// entryPath returns the file path for a cache key
func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

// isCacheFile reports whether name is an entry or a partial write left by an
// interrupted Put.
func isCacheFile(name string) bool {
	return strings.HasSuffix(name, entryExt) || strings.HasSuffix(name, entryExt+partialExt)
}

// Helper functions

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int64) error {
	// Write int with null byte delimiter to prevent hash collisions
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}
