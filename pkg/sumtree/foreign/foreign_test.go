package foreign

import (
	"strings"
	"testing"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sha = "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
	md5 = "0123456789abcdef0123456789abcdef"
)

const header = "; Generated by Checksum Tool 2.1\r\n; 2024-01-01 10:00\r\n;\r\n"

func TestConvert(t *testing.T) {
	input := header + strings.ToUpper(sha) + ` *subdir\file.txt` + "\r\n"

	res, err := Convert(strings.NewReader(input), types.SHA256)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, types.Entry{Digest: sha, Path: "subdir/file.txt"}, res.Entries[0])
	assert.Empty(t, res.Skipped)
}

func TestConvert_HeaderAlwaysDropped(t *testing.T) {
	// header lines are dropped even when they look like entries
	input := md5 + " a.txt\n" + md5 + " b.txt\n" + md5 + " c.txt\n" + md5 + " d.txt\n"

	res, err := Convert(strings.NewReader(input), types.MD5)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "d.txt", res.Entries[0].Path)
}

func TestConvert_SkipsUnrecognised(t *testing.T) {
	input := header +
		md5 + " *ok.txt\n" +
		"\n" +
		"garbage line without a digest\n" +
		md5 + "\n" +
		strings.ToUpper(md5) + ` *nested\deep\file.bin` + "\n"

	res, err := Convert(strings.NewReader(input), types.MD5)
	require.NoError(t, err)

	assert.Equal(t, []types.Entry{
		{Digest: md5, Path: "ok.txt"},
		{Digest: md5, Path: "nested/deep/file.bin"},
	}, res.Entries)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 6, res.Skipped[0].Line)
	assert.Equal(t, 7, res.Skipped[1].Line)
}

func TestConvert_ShortInput(t *testing.T) {
	res, err := Convert(strings.NewReader("only\ntwo lines\n"), types.MD5)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Empty(t, res.Skipped)
}

func TestConvert_UnknownAlgorithm(t *testing.T) {
	_, err := Convert(strings.NewReader(header), types.AlgorithmUnknown)
	assert.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)
}

func TestParseLine(t *testing.T) {
	upper := strings.ToUpper(md5)

	tests := []struct {
		name string
		line string
		want types.Entry
	}{
		{
			name: "binary marker",
			line: upper + ` *dir\a.txt`,
			want: types.Entry{Digest: md5, Path: "dir/a.txt"},
		},
		{
			name: "marker on hash",
			line: "*" + upper + ` dir\a.txt`,
			want: types.Entry{Digest: md5, Path: "dir/a.txt"},
		},
		{
			name: "duplicated hash with backslash",
			line: upper + " " + upper + `\a.txt`,
			want: types.Entry{Digest: md5, Path: "a.txt"},
		},
		{
			name: "duplicated hash with underscore",
			line: upper + " *" + md5 + "_a.txt",
			want: types.Entry{Digest: md5, Path: "a.txt"},
		},
		{
			name: "path prefix before hash",
			line: `C:\exports\` + upper + ` *b.txt`,
			want: types.Entry{Digest: md5, Path: "b.txt"},
		},
		{
			name: "spaces in name",
			line: upper + `  *My Files\report final.pdf`,
			want: types.Entry{Digest: md5, Path: "My Files/report final.pdf"},
		},
		{
			name: "hash-like name kept when not followed by a separator",
			line: upper + " " + md5 + "x.txt",
			want: types.Entry{Digest: md5, Path: md5 + "x.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line, types.MD5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "no digest", line: "just a name.txt"},
		{name: "digest too long", line: md5 + "ff  a.txt"},
		{name: "digest without name", line: md5 + "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line, types.MD5)
			assert.Error(t, err)
		})
	}
}
