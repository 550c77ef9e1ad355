package cache

import (
	"errors"
	"io/fs"
	"os"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// PruneResult contains the results of a prune pass.
type PruneResult struct {
	// Checked is the number of entries examined.
	Checked int `json:"checked" yaml:"checked"`

	// Removed is the number of entries deleted.
	Removed int `json:"removed" yaml:"removed"`
}

// Fresh reports whether a cached entry still describes the file in info.
func Fresh(entry *CachedDigest, alg types.Algorithm, info fs.FileInfo) bool {
	if entry == nil || entry.Version != CacheVersion {
		return false
	}
	return entry.Algorithm == alg.String() &&
		entry.Size == info.Size() &&
		entry.Mtime == info.ModTime().UnixNano() &&
		len(entry.Digest) == alg.HexLen()
}

// Validator validates cached entries against the filesystem.
type Validator struct {
	store *Store
	stat  func(string) (fs.FileInfo, error)
}

// NewValidator creates a new cache validator.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store, stat: os.Stat}
}

// Prune stats every cached file and removes entries that are no longer
// fresh: the file is gone, changed, or the entry cannot be decoded.
// Stat errors other than "not exist" keep the entry.
func (v *Validator) Prune() (*PruneResult, error) {
	result := &PruneResult{}
	var stale [][]byte

	err := v.store.Each(nil, func(key []byte, entry *CachedDigest) error {
		result.Checked++
		path, algName := ParseKey(key)

		alg, err := types.ParseAlgorithm(algName)
		if err != nil || entry == nil {
			stale = append(stale, key)
			return nil
		}

		info, err := v.stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, key)
			return nil
		}
		if err != nil {
			logger.Debug("prune stat failed, keeping entry", "path", path, "error", err)
			return nil
		}
		if !Fresh(entry, alg, info) {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := v.store.DeleteKeys(stale); err != nil {
		return nil, err
	}
	result.Removed = len(stale)
	return result, nil
}
