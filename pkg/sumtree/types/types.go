// Package types provides core data types for the sumtree checksum tool.
// It defines hash algorithms, generation modes, manifest entries and
// verification outcomes shared by the engine, the CLI and the formatters.
package types

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Algorithm identifies a supported digest algorithm.
type Algorithm int

// Supported algorithms. AlgorithmUnknown is the zero value so an unset
// algorithm is never mistaken for a valid one.
const (
	AlgorithmUnknown Algorithm = iota
	MD5
	SHA256
)

// Algorithms lists the supported algorithms in display order.
var Algorithms = []Algorithm{MD5, SHA256}

// String returns the canonical lowercase name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return a == MD5 || a == SHA256
}

// HexLen returns the length of a hex-encoded digest for the algorithm.
func (a Algorithm) HexLen() int {
	switch a {
	case MD5:
		return 32
	case SHA256:
		return 64
	default:
		return 0
	}
}

// Ext returns the manifest file extension including the leading dot.
func (a Algorithm) Ext() string {
	switch a {
	case MD5:
		return ".md5"
	case SHA256:
		return ".sha256"
	default:
		return ""
	}
}

// ParseAlgorithm parses an algorithm name such as "md5", "SHA256" or "sha-256".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md5":
		return MD5, nil
	case "sha256", "sha-256":
		return SHA256, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// AlgorithmFromExtension infers the algorithm from a file name's extension.
func AlgorithmFromExtension(name string) (Algorithm, error) {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	for _, a := range Algorithms {
		if ext == a.Ext() {
			return a, nil
		}
	}
	return AlgorithmUnknown, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
}

// Mode selects how GenerateManifest treats an existing manifest.
type Mode int

// Generation modes.
const (
	// CreateNew writes a fresh manifest; it refuses to touch an existing one.
	CreateNew Mode = iota
	// AppendMissing adds entries for files not yet listed in the manifest.
	AppendMissing
	// Overwrite recomputes every digest and replaces the manifest.
	Overwrite
)

// String returns the flag-style name of the mode.
func (m Mode) String() string {
	switch m {
	case CreateNew:
		return "create"
	case AppendMissing:
		return "append"
	case Overwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// MatchMode selects the lookup key used by AppendMissing to decide whether
// a file is already listed in the manifest.
type MatchMode int

const (
	// MatchBasename treats a file as listed when any entry has the same base
	// name. Files sharing a base name in different directories are skipped.
	MatchBasename MatchMode = iota
	// MatchPath requires the full relative path to match.
	MatchPath
)

// String returns the flag-style name of the match mode.
func (m MatchMode) String() string {
	if m == MatchPath {
		return "path"
	}
	return "basename"
}

// ParseMatchMode parses "basename" or "path".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basename", "name":
		return MatchBasename, nil
	case "path", "exact":
		return MatchPath, nil
	default:
		return MatchBasename, fmt.Errorf("invalid match mode %q: want basename or path", s)
	}
}

// Entry is a single manifest line.
type Entry struct {
	// Digest is the lowercase hex digest of the file contents.
	Digest string `json:"digest" yaml:"digest"`

	// Path is relative to the manifest's directory (or absolute) and always
	// uses forward slashes.
	Path string `json:"path" yaml:"path"`
}

// Outcome is the verification result for one manifest entry.
type Outcome string

// Verification outcomes.
const (
	OutcomeOK       Outcome = "OK"
	OutcomeMismatch Outcome = "MISMATCH"
	OutcomeMissing  Outcome = "MISSING"
)

// VerificationResult pairs a manifest entry with its outcome.
type VerificationResult struct {
	Path     string  `json:"path" yaml:"path"`
	Outcome  Outcome `json:"outcome" yaml:"outcome"`
	Expected string  `json:"expected" yaml:"expected"`
	Actual   string  `json:"actual,omitempty" yaml:"actual,omitempty"`
}

// Progress reports hashing progress to an optional callback.
type Progress struct {
	// Done is the number of files processed so far.
	Done int

	// Total is the number of files to process.
	Total int

	// CurrentPath is the file about to be hashed.
	CurrentPath string

	// Bytes is the number of bytes hashed so far.
	Bytes int64

	// Elapsed is the time since the operation started.
	Elapsed time.Duration
}
