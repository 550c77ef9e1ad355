package output

import (
	"fmt"

	"github.com/jamesainslie/sumtree/pkg/sumtree/engine"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Report statuses.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusUnchanged = "unchanged"
)

// FromGenerate builds a report for a hash run.
func FromGenerate(target string, res *engine.GenerateResult) *Report {
	r := &Report{
		Operation: "hash",
		Target:    target,
		Manifest:  res.Manifest,
		Algorithm: res.Algorithm.String(),
		Mode:      res.Mode.String(),
		Status:    StatusOK,
		Stats: Stats{
			Entries:   len(res.Entries),
			Added:     len(res.Added),
			CacheHits: res.CacheHits,
			Bytes:     res.Bytes,
			Duration:  res.Duration,
		},
	}
	if res.NoChanges {
		r.Status = StatusUnchanged
		r.Stats.Entries = res.Existing
	}

	status := StatusWritten
	if res.Mode == types.AppendMissing {
		status = StatusAdded
		r.Stats.Entries = res.Existing + len(res.Added)
	}
	for _, e := range res.Entries {
		r.Rows = append(r.Rows, Row{Status: status, Path: e.Path, Digest: e.Digest})
	}
	return r
}

// FromVerify builds a report for a verification. Only failing entries are
// listed as rows.
func FromVerify(target string, res *engine.VerifyResult) *Report {
	r := &Report{
		Operation: "verify",
		Target:    target,
		Manifest:  res.Manifest,
		Algorithm: res.Algorithm.String(),
		Status:    StatusOK,
		ErrorLog:  res.ErrorLog,
		Stats: Stats{
			Entries:  len(res.Results),
			OK:       res.OK,
			Mismatch: res.Mismatch,
			Missing:  res.Missing,
			Duration: res.Duration,
		},
	}
	if !res.Passed {
		r.Status = StatusFailed
	}
	for _, f := range res.Failures() {
		r.Rows = append(r.Rows, Row{
			Status: string(f.Outcome),
			Path:   f.Path,
			Digest: f.Expected,
			Actual: f.Actual,
		})
	}
	return r
}

// FromImport builds a report for a foreign manifest import. Skipped lines
// become rows and warnings.
func FromImport(target string, res *engine.ImportResult) *Report {
	r := &Report{
		Operation: "import",
		Target:    target,
		Manifest:  res.Path,
		Algorithm: res.Algorithm.String(),
		Status:    StatusOK,
		Backup:    res.Backup,
		Stats: Stats{
			Entries: res.Entries,
			Skipped: len(res.Skipped),
		},
	}
	for _, s := range res.Skipped {
		r.Rows = append(r.Rows, Row{
			Status: StatusSkipped,
			Path:   s.Text,
			Detail: fmt.Sprintf("line %d: %s", s.Line, s.Reason),
		})
	}
	if len(res.Skipped) > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d line(s) could not be converted", len(res.Skipped)))
	}
	return r
}
