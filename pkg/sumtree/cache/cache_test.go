package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const md5Digest = "0123456789abcdef0123456789abcdef"

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeAndStat(t *testing.T, path, content string) fs.FileInfo {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info
}

func TestCacheLookupStore(t *testing.T) {
	c := openTestCache(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	info := writeAndStat(t, path, "alpha")

	_, ok := c.Lookup(path, types.MD5, info)
	assert.False(t, ok, "empty cache misses")

	require.NoError(t, c.Store(path, types.MD5, info, md5Digest))

	got, ok := c.Lookup(path, types.MD5, info)
	assert.True(t, ok)
	assert.Equal(t, md5Digest, got)

	_, ok = c.Lookup(path, types.SHA256, info)
	assert.False(t, ok, "digests are cached per algorithm")
}

func TestCacheLookupStaleAfterChange(t *testing.T) {
	c := openTestCache(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	info := writeAndStat(t, path, "alpha")
	require.NoError(t, c.Store(path, types.MD5, info, md5Digest))

	changed := writeAndStat(t, path, "alpha, longer")
	_, ok := c.Lookup(path, types.MD5, changed)
	assert.False(t, ok)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	touched, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, c.Store(path, types.MD5, changed, md5Digest))
	_, ok = c.Lookup(path, types.MD5, touched)
	assert.False(t, ok, "mtime change invalidates the entry")
}

func TestCacheClear(t *testing.T) {
	c := openTestCache(t)
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "keep", "a"),
		filepath.Join(dir, "drop", "b"),
		filepath.Join(dir, "drop", "sub", "c"),
		filepath.Join(dir, "dropped", "d"),
	}
	for _, p := range paths {
		info := writeAndStat(t, p, p)
		require.NoError(t, c.Store(p, types.MD5, info, md5Digest))
	}

	n, err := c.Clear(filepath.Join(dir, "drop"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)

	n, err = c.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err = c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}
