package cache

import (
	"bytes"
	"encoding/gob"
	"io/fs"
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// CacheVersion is incremented when the cache format changes. Entries with
// another version are treated as misses.
const CacheVersion = 2

// KeySeparator separates the file path from the algorithm in cache keys.
const KeySeparator = '\x00'

// CachedDigest is a digest remembered for one file and algorithm.
type CachedDigest struct {
	Version   int
	Algorithm string
	Size      int64 // File size in bytes when hashed
	Mtime     int64 // Modification time as UnixNano when hashed
	Digest    string
}

// NewCachedDigest records digest for a file in its current state.
func NewCachedDigest(alg types.Algorithm, info fs.FileInfo, digest string) *CachedDigest {
	return &CachedDigest{
		Version:   CacheVersion,
		Algorithm: alg.String(),
		Size:      info.Size(),
		Mtime:     info.ModTime().UnixNano(),
		Digest:    digest,
	}
}

// Encode serializes the entry to bytes using gob.
func (e *CachedDigest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *CachedDigest) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key from an absolute file path and algorithm.
// Format: <path>\x00<algorithm>
func MakeKey(path string, alg types.Algorithm) []byte {
	return []byte(path + string(KeySeparator) + alg.String())
}

// ParseKey extracts the file path and algorithm name from a cache key.
func ParseKey(key []byte) (path, alg string) {
	idx := bytes.LastIndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the byte prefix shared by all keys for files at or
// below root. Callers still need UnderRoot, since "/a/b" is also a prefix
// of "/a/bc".
func MakeKeyPrefix(root string) []byte {
	return []byte(root)
}

// UnderRoot reports whether path is root or inside it.
func UnderRoot(path, root string) bool {
	if root == "" || path == root {
		return true
	}
	if strings.HasSuffix(root, "/") || strings.HasSuffix(root, `\`) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+"/") || strings.HasPrefix(path, root+`\`)
}
