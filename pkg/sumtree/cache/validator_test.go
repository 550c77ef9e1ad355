package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

func TestFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	info := writeAndStat(t, path, "content")
	entry := NewCachedDigest(types.MD5, info, md5Digest)

	assert.True(t, Fresh(entry, types.MD5, info))
	assert.False(t, Fresh(nil, types.MD5, info))
	assert.False(t, Fresh(entry, types.SHA256, info))

	old := *entry
	old.Version = CacheVersion - 1
	assert.False(t, Fresh(&old, types.MD5, info))

	short := *entry
	short.Digest = "abc"
	assert.False(t, Fresh(&short, types.MD5, info))
}

func TestValidatorPrune(t *testing.T) {
	c := openTestCache(t)
	dir := t.TempDir()

	kept := filepath.Join(dir, "kept")
	deleted := filepath.Join(dir, "deleted")
	changed := filepath.Join(dir, "changed")

	for _, p := range []string{kept, deleted, changed} {
		info := writeAndStat(t, p, "v1")
		require.NoError(t, c.Store(p, types.MD5, info, md5Digest))
	}
	require.NoError(t, os.Remove(deleted))
	writeAndStat(t, changed, "version two")

	res, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 2, res.Removed)

	info, err := os.Stat(kept)
	require.NoError(t, err)
	_, ok := c.Lookup(kept, types.MD5, info)
	assert.True(t, ok)
}
