package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/sumtree/pkg/sumtree/digest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

var fixedTime = time.Unix(1700000000, 0)

func fixedNow() time.Time { return fixedTime }

type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(ctx context.Context, alg types.Algorithm, path string) (string, error) {
	args := m.Called(ctx, alg, path)
	return args.String(0), args.Error(1)
}

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListFiles(ctx context.Context, root string) ([]string, error) {
	args := m.Called(ctx, root)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

// memCache is an in-memory Cache keyed by path, algorithm, size and mtime.
type memCache struct {
	entries map[string]string
	stores  int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) key(path string, alg types.Algorithm, info fs.FileInfo) string {
	return fmt.Sprintf("%s|%s|%d|%d", path, alg, info.Size(), info.ModTime().UnixNano())
}

func (c *memCache) Lookup(path string, alg types.Algorithm, info fs.FileInfo) (string, bool) {
	d, ok := c.entries[c.key(path, alg, info)]
	return d, ok
}

func (c *memCache) Store(path string, alg types.Algorithm, info fs.FileInfo, d string) error {
	c.stores++
	c.entries[c.key(path, alg, info)] = d
	return nil
}

func newTestEngine() *Engine {
	return New(Options{Now: fixedNow})
}

// writeTree creates files under root from a rel-path to content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func sumOf(t *testing.T, alg types.Algorithm, content string) string {
	t.Helper()
	h, err := digest.New(alg)
	require.NoError(t, err)
	s, err := h.HashReader(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	return s
}

// listDir returns the sorted names of the entries directly in dir.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
