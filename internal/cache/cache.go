package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sirprodigle/navfix/internal/fsys"
	"github.com/sirprodigle/navfix/internal/scanner"
)

// IndexCache memoises "does <dir>/index.md exist" lookups for one pass. It
// must not outlive the pass it was built for: the Resolver changes the
// answers.
type IndexCache struct {
	tree    fsys.FS
	entries map[string]bool
	mutex   sync.RWMutex
	hits    int
	misses  int
}

func NewIndexCache(tree fsys.FS) *IndexCache {
	return &IndexCache{
		tree:    tree,
		entries: make(map[string]bool, 256),
	}
}

// HasIndex reports whether dir contains an index document that is a file.
func (c *IndexCache) HasIndex(dir string) (bool, error) {
	dir = filepath.Clean(dir)

	c.mutex.RLock()
	found, ok := c.entries[dir]
	c.mutex.RUnlock()
	if ok {
		c.mutex.Lock()
		c.hits++
		c.mutex.Unlock()
		return found, nil
	}

	info, err := c.tree.Stat(filepath.Join(dir, scanner.IndexName))
	switch {
	case err == nil:
		found = !info.IsDir()
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		found = false
	default:
		return false, fmt.Errorf("check index in %s: %w", dir, err)
	}

	c.mutex.Lock()
	c.entries[dir] = found
	c.misses++
	c.mutex.Unlock()

	return found, nil
}

// Stats returns hit and miss counts.
func (c *IndexCache) Stats() (hits, misses int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.hits, c.misses
}
