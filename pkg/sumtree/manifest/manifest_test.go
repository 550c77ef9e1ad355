package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	md5Hello   = "5d41402abc4b2a76b9719d911017c592"
	sha256Knwn = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
)

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "photos", "photos.md5"),
		Path("/data/photos", types.MD5, true))
	assert.Equal(t, filepath.Join("/data", "photos", "photos.sha256"),
		Path("/data/photos/", types.SHA256, true))
	assert.Equal(t, "/data/report.pdf.sha256", Path("/data/report.pdf", types.SHA256, false))
}

func TestParse(t *testing.T) {
	input := "\uFEFF" + md5Hello + "  a.txt\r\n" +
		"\n" +
		strings.ToUpper(md5Hello) + "  sub dir/b c.txt\n" +
		md5Hello + " *bin/tool\n"

	entries, err := Parse(strings.NewReader(input), types.MD5)
	require.NoError(t, err)
	assert.Equal(t, []types.Entry{
		{Digest: md5Hello, Path: "a.txt"},
		{Digest: md5Hello, Path: "sub dir/b c.txt"},
		{Digest: md5Hello, Path: "bin/tool"},
	}, entries)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		alg   types.Algorithm
	}{
		{name: "too short", input: "abc  x\n", alg: types.MD5},
		{name: "not hex", input: strings.Repeat("z", 32) + "  a\n", alg: types.MD5},
		{name: "single space", input: md5Hello + " a\n", alg: types.MD5},
		{name: "md5 line in sha256 manifest", input: md5Hello + "  a.txt\n", alg: types.SHA256},
		{name: "sha256 line in md5 manifest", input: sha256Knwn + "  a.txt\n", alg: types.MD5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.alg)
			assert.ErrorIs(t, err, types.ErrManifestInvalid)
		})
	}
}

func TestParse_UnknownAlgorithm(t *testing.T) {
	_, err := Parse(strings.NewReader(""), types.AlgorithmUnknown)
	assert.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(types.Entry{Digest: strings.ToUpper(sha256Knwn), Path: `dir\file.txt`})
	assert.Equal(t, sha256Knwn+"  dir/file.txt", line)
}

func TestWriteEntriesAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.sha256")
	entries := []types.Entry{
		{Digest: sha256Knwn, Path: "a.txt"},
		{Digest: sha256Knwn, Path: "b/c.txt"},
	}

	require.NoError(t, WriteEntries(path, entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sha256Knwn+"  a.txt\n"+sha256Knwn+"  b/c.txt\n", string(data))

	loaded, err := Load(path, types.SHA256)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.md5")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer\n"), 0o644))

	require.NoError(t, WriteAtomic(path, []byte("new\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestWriteAtomic_MissingDirectory(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "nope", "m.md5"), []byte("x"))
	assert.ErrorIs(t, err, types.ErrWriteFailed)
}

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.md5")
	require.NoError(t, os.WriteFile(path, []byte(md5Hello+"  a.txt"), 0o644)) // no trailing newline

	err := Append(path, []types.Entry{
		{Digest: md5Hello, Path: "b.txt"},
		{Digest: md5Hello, Path: "c.txt"},
	})
	require.NoError(t, err)

	loaded, err := Load(path, types.MD5)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "a.txt", loaded[0].Path)
	assert.Equal(t, "b.txt", loaded[1].Path)
	assert.Equal(t, "c.txt", loaded[2].Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
}

func TestAppend_NothingToAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.md5")
	require.NoError(t, os.WriteFile(path, []byte(md5Hello+"  a.txt\n"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, Append(path, nil))

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), after.Size())
}

func TestAppend_MissingFile(t *testing.T) {
	err := Append(filepath.Join(t.TempDir(), "missing.md5"), []types.Entry{{Digest: md5Hello, Path: "a"}})
	assert.ErrorIs(t, err, types.ErrWriteFailed)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/root", "a", "b.txt"), Resolve("/root", "a/b.txt"))
	assert.Equal(t, filepath.FromSlash("/abs/file"), Resolve("/root", "/abs/file"))
}

func TestIndex(t *testing.T) {
	entries := []types.Entry{
		{Digest: md5Hello, Path: "photos/2020/img.jpg"},
		{Digest: md5Hello, Path: "readme.txt"},
	}

	byName := NewIndex(entries, types.MatchBasename)
	assert.True(t, byName.Contains("other/img.jpg"), "basename match ignores directory")
	assert.True(t, byName.Contains("readme.txt"))
	assert.False(t, byName.Contains("new.txt"))

	byPath := NewIndex(entries, types.MatchPath)
	assert.False(t, byPath.Contains("other/img.jpg"))
	assert.True(t, byPath.Contains("photos/2020/img.jpg"))
	assert.True(t, byPath.Contains(`photos\2020\img.jpg`))

	byPath.Add("new.txt")
	assert.True(t, byPath.Contains("new.txt"))
	assert.Equal(t, 3, byPath.Len())
}

func TestIsHex(t *testing.T) {
	assert.True(t, IsHex("0123456789abcdefABCDEF"))
	assert.False(t, IsHex(""))
	assert.False(t, IsHex("xyz"))
}
