package manifest

import (
	"path"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Index answers "is this file already listed?" for AppendMissing.
type Index struct {
	match types.MatchMode
	keys  map[string]struct{}
}

// NewIndex builds an index over the entries of an existing manifest.
func NewIndex(entries []types.Entry, match types.MatchMode) *Index {
	idx := &Index{
		match: match,
		keys:  make(map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		idx.Add(e.Path)
	}
	return idx
}

// Contains reports whether relPath is already listed under the index's
// match mode.
func (x *Index) Contains(relPath string) bool {
	_, ok := x.keys[x.key(relPath)]
	return ok
}

// Add records relPath as listed.
func (x *Index) Add(relPath string) {
	x.keys[x.key(relPath)] = struct{}{}
}

// Len returns the number of distinct keys.
func (x *Index) Len() int {
	return len(x.keys)
}

func (x *Index) key(p string) string {
	p = path.Clean(ToSlash(p))
	if x.match == types.MatchBasename {
		return path.Base(p)
	}
	return p
}
