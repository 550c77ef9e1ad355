// Package foreign converts third-party checksum listings into native
// manifest entries.
//
// The supported layout starts with a three-line preamble followed by one
// entry per line. The first three lines are always dropped, whatever they
// contain; a listing with a shorter header loses its first entries. An entry carries a hex digest, optionally preceded by
// a path prefix, and a file name that may start with a "*" binary marker or
// repeat the digest before the real name. Paths use backslashes.
//
//	; Generated by ...
//	; Files: 2
//	;
//	AB12...EF *subdir\file.txt
//	CD34...01 CD34...01\other.bin
//
// The heuristics only cover variants seen in sample files; lines that do
// not match are skipped and reported rather than failing the conversion.
package foreign

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// HeaderLines is the number of preamble lines dropped before parsing.
const HeaderLines = 3

const maxLineSize = 1 << 20

// SkippedLine describes a line that could not be converted.
type SkippedLine struct {
	Line   int    `json:"line" yaml:"line"`
	Text   string `json:"text" yaml:"text"`
	Reason string `json:"reason" yaml:"reason"`
}

// Result holds the outcome of a conversion.
type Result struct {
	Entries []types.Entry
	Skipped []SkippedLine
}

// digestPatterns finds a digest of the algorithm's length that is not part
// of a longer alphanumeric run.
var digestPatterns = map[types.Algorithm]*regexp.Regexp{
	types.MD5:    regexp.MustCompile(`(?i)(?:^|[^0-9a-z])([0-9a-f]{32})(?:[^0-9a-z]|$)`),
	types.SHA256: regexp.MustCompile(`(?i)(?:^|[^0-9a-z])([0-9a-f]{64})(?:[^0-9a-z]|$)`),
}

// Convert reads a foreign listing and returns native entries in input order.
func Convert(r io.Reader, alg types.Algorithm) (*Result, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedAlgorithm, alg)
	}

	res := &Result{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= HeaderLines {
			continue
		}

		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := ParseLine(line, alg)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedLine{Line: lineNo, Text: line, Reason: err.Error()})
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read foreign manifest: %w", err)
	}

	return res, nil
}

// ParseLine converts a single foreign entry line.
func ParseLine(line string, alg types.Algorithm) (types.Entry, error) {
	n := alg.HexLen()
	line = strings.TrimPrefix(line, "\uFEFF")

	hash, rest, ok := leadingDigest(line, n)
	if !ok {
		hash, rest, ok = embeddedDigest(line, alg)
	}
	if !ok {
		return types.Entry{}, fmt.Errorf("no %s digest found", alg)
	}

	name := cleanName(rest, hash)
	if name == "" {
		return types.Entry{}, fmt.Errorf("no file name after digest")
	}

	return types.Entry{
		Digest: strings.ToLower(hash),
		Path:   name,
	}, nil
}

// leadingDigest accepts a line whose first field, minus an optional "*",
// is the digest.
func leadingDigest(line string, n int) (hash, rest string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	end := strings.IndexAny(trimmed, " \t")
	if end < 0 {
		return "", "", false
	}
	field := strings.TrimPrefix(trimmed[:end], "*")
	if len(field) != n || !manifest.IsHex(field) {
		return "", "", false
	}
	return field, trimmed[end:], true
}

// embeddedDigest finds the first standalone digest anywhere on the line,
// which covers listings that put a path prefix before the hash.
func embeddedDigest(line string, alg types.Algorithm) (hash, rest string, ok bool) {
	loc := digestPatterns[alg].FindStringSubmatchIndex(line)
	if loc == nil {
		return "", "", false
	}
	return line[loc[2]:loc[3]], line[loc[3]:], true
}

// cleanName strips markers and a repeated digest from the text after the
// digest and normalises separators.
func cleanName(rest, hash string) string {
	name := strings.TrimSpace(rest)
	name = strings.TrimPrefix(name, "*")

	if len(name) > len(hash) && strings.EqualFold(name[:len(hash)], hash) {
		if strings.ContainsRune(`\/_- `, rune(name[len(hash)])) {
			name = strings.TrimLeft(name[len(hash)+1:], " ")
			name = strings.TrimPrefix(name, "*")
		}
	}

	return manifest.ToSlash(name)
}
