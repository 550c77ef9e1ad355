// Package cache remembers file digests between runs in a Badger database.
//
// A cached digest is reused only while the file's size and modification
// time are unchanged. The cache is an optimisation for generating
// manifests; verification always reads the files.
package cache

import (
	"errors"
	"io/fs"

	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

var logger = logging.Get("cache")

// Cache provides high-level digest caching for sumtree.
type Cache struct {
	store     *Store
	validator *Validator
}

// Stats describes the cache contents.
type Stats struct {
	Entries  int   `json:"entries" yaml:"entries"`
	LSMBytes int64 `json:"lsm_bytes" yaml:"lsm_bytes"`
	LogBytes int64 `json:"vlog_bytes" yaml:"vlog_bytes"`
}

// Open opens or creates a cache at the given path.
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}

	return &Cache{
		store:     store,
		validator: NewValidator(store),
	}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the cached digest for path when the entry is still fresh
// for info. Read errors are logged and reported as a miss.
func (c *Cache) Lookup(path string, alg types.Algorithm, info fs.FileInfo) (string, bool) {
	entry, err := c.store.Get(MakeKey(path, alg))
	if errors.Is(err, ErrNotFound) {
		return "", false
	}
	if err != nil {
		logger.Warn("cache read failed", "path", path, "error", err)
		return "", false
	}
	if !Fresh(entry, alg, info) {
		logger.Debug("stale cache entry", "path", path)
		return "", false
	}
	return entry.Digest, true
}

// Store records digest for path in its current state.
func (c *Cache) Store(path string, alg types.Algorithm, info fs.FileInfo, digest string) error {
	return c.store.Put(MakeKey(path, alg), NewCachedDigest(alg, info, digest))
}

// Clear removes all cached entries for files at or below root and returns
// the number removed.
func (c *Cache) Clear(root string) (int, error) {
	var keys [][]byte
	err := c.store.Each(MakeKeyPrefix(root), func(key []byte, _ *CachedDigest) error {
		path, _ := ParseKey(key)
		if UnderRoot(path, root) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := c.store.DeleteKeys(keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// ClearAll removes all cached entries.
func (c *Cache) ClearAll() (int, error) {
	return c.Clear("")
}

// Prune drops entries whose files changed or disappeared.
func (c *Cache) Prune() (*PruneResult, error) {
	return c.validator.Prune()
}

// Stats reports the number of entries and the database size.
func (c *Cache) Stats() (*Stats, error) {
	n, err := c.store.Count(nil)
	if err != nil {
		return nil, err
	}
	lsm, vlog := c.store.Size()
	return &Stats{Entries: n, LSMBytes: lsm, LogBytes: vlog}, nil
}
