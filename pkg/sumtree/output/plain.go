package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats output as a simple aligned table followed by a
// one-line summary. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(r.Rows) > 0 {
		if _, err := tw.Write([]byte("STATUS\tPATH\n")); err != nil {
			return err
		}
		for _, row := range r.Rows {
			if _, err := tw.Write([]byte(row.Status + "\t" + row.Path + "\n")); err != nil {
				return err
			}
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s: %s (%s)\n", r.Operation, r.Status, r.Manifest, summaryLine(r))
	if r.ErrorLog != "" {
		fmt.Fprintf(w, "error log: %s\n", r.ErrorLog)
	}
	if r.Backup != "" {
		fmt.Fprintf(w, "backup: %s\n", r.Backup)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

// summaryLine renders the counters relevant to the operation.
func summaryLine(r *Report) string {
	s := r.Stats
	switch r.Operation {
	case "verify":
		return fmt.Sprintf("%d entries, %d ok, %d mismatch, %d missing", s.Entries, s.OK, s.Mismatch, s.Missing)
	case "import":
		return fmt.Sprintf("%d entries, %d skipped", s.Entries, s.Skipped)
	default:
		if r.Mode == "append" {
			return fmt.Sprintf("%d entries, %d added", s.Entries, s.Added)
		}
		return fmt.Sprintf("%d entries", s.Entries)
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
