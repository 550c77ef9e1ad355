// Package journal keeps a history of sumtree operations, one JSON record
// per hash, verify or import run.
package journal

import "time"

// Operation represents the type of operation.
type Operation string

const (
	// OpHash represents a manifest generation.
	OpHash Operation = "hash"
	// OpVerify represents a verification.
	OpVerify Operation = "verify"
	// OpImport represents a foreign manifest import.
	OpImport Operation = "import"
)

// Status is the overall result of an operation.
type Status string

const (
	// StatusOK means the operation completed and, for verify, passed.
	StatusOK Status = "ok"
	// StatusFailed means a verification completed with mismatches or
	// missing files.
	StatusFailed Status = "failed"
	// StatusError means the operation stopped with an error.
	StatusError Status = "error"
)

// Record represents a single journal entry.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Operation Operation `json:"operation" yaml:"operation"`
	Status    Status    `json:"status" yaml:"status"`

	// Target is the path given on the command line.
	Target    string `json:"target" yaml:"target"`
	Manifest  string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Algorithm string `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Mode      string `json:"mode,omitempty" yaml:"mode,omitempty"`

	Summary  Summary         `json:"summary" yaml:"summary"`
	Failures []FailureRecord `json:"failures,omitempty" yaml:"failures,omitempty"`
	ErrorLog string          `json:"error_log,omitempty" yaml:"error_log,omitempty"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// FailureRecord is a manifest entry that did not verify.
type FailureRecord struct {
	Path    string `json:"path" yaml:"path"`
	Outcome string `json:"outcome" yaml:"outcome"`
}

// Summary contains operation counters. Fields that do not apply to an
// operation stay zero.
type Summary struct {
	Entries  int   `json:"entries" yaml:"entries"`
	Added    int   `json:"added,omitempty" yaml:"added,omitempty"`
	OK       int   `json:"ok,omitempty" yaml:"ok,omitempty"`
	Mismatch int   `json:"mismatch,omitempty" yaml:"mismatch,omitempty"`
	Missing  int   `json:"missing,omitempty" yaml:"missing,omitempty"`
	Skipped  int   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Bytes    int64 `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	DurationMs int64 `json:"duration_ms" yaml:"duration_ms"`
}
