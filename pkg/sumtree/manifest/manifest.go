// Package manifest reads and writes native checksum manifests.
//
// A manifest is UTF-8 text with one entry per line:
//
//	<lowercase-hex-digest><two spaces><path>
//
// Paths use forward slashes and are relative to the manifest's directory
// unless absolute. Files end with a newline and carry no header.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Separator sits between the digest and the path.
const Separator = "  "

// maxLineSize bounds a single manifest line.
const maxLineSize = 1 << 20

// Path returns the manifest location for root. A directory keeps its
// manifest inside itself, named after the directory; a file gets a sibling
// with the algorithm's extension appended.
func Path(root string, alg types.Algorithm, isDir bool) string {
	root = filepath.Clean(root)
	if isDir {
		return filepath.Join(root, filepath.Base(root)+alg.Ext())
	}
	return root + alg.Ext()
}

// Parse reads entries from r. Blank lines are ignored; the coreutils binary
// marker ("<digest> *<path>") is accepted and digests are lowercased.
func Parse(r io.Reader, alg types.Algorithm) ([]types.Entry, error) {
	hexLen := alg.HexLen()
	if hexLen == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedAlgorithm, alg)
	}

	var entries []types.Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := ParseLine(line, alg)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrManifestInvalid, err)
	}

	return entries, nil
}

// ParseLine parses a single manifest line.
func ParseLine(line string, alg types.Algorithm) (types.Entry, error) {
	hexLen := alg.HexLen()
	if len(line) < hexLen+3 {
		return types.Entry{}, fmt.Errorf("%w: line too short", types.ErrManifestInvalid)
	}

	digest := line[:hexLen]
	if !IsHex(digest) {
		return types.Entry{}, fmt.Errorf("%w: %q is not a %s digest", types.ErrManifestInvalid, digest, alg)
	}

	sep := line[hexLen : hexLen+2]
	if sep != Separator && sep != " *" {
		return types.Entry{}, fmt.Errorf("%w: expected two spaces after digest", types.ErrManifestInvalid)
	}

	return types.Entry{
		Digest: strings.ToLower(digest),
		Path:   line[hexLen+2:],
	}, nil
}

// Load reads the manifest at path.
func Load(path string, alg types.Algorithm) ([]types.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := Parse(f, alg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// FormatLine renders one entry without the trailing newline.
func FormatLine(e types.Entry) string {
	return strings.ToLower(e.Digest) + Separator + ToSlash(e.Path)
}

// Format writes all entries, each terminated by a newline.
func Format(w io.Writer, entries []types.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(FormatLine(e) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Encode returns the manifest content for entries.
func Encode(entries []types.Entry) []byte {
	var buf bytes.Buffer
	_ = Format(&buf, entries) // bytes.Buffer writes never fail
	return buf.Bytes()
}

// ToSlash converts backslashes to forward slashes regardless of platform.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Resolve returns the filesystem path of an entry relative to the
// manifest's directory.
func Resolve(manifestDir, entryPath string) string {
	if path.IsAbs(entryPath) || filepath.IsAbs(entryPath) {
		return filepath.FromSlash(entryPath)
	}
	return filepath.Join(manifestDir, filepath.FromSlash(entryPath))
}

// IsHex reports whether s is non-empty and contains only hex digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
