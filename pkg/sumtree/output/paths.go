package output

import (
	"bytes"
)

// PathsFormatter writes one row path per line: the failing entries of a
// verification or the entries written by a hash run. It is meant for
// piping into other tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, row := range r.Rows {
		w.WriteString(row.Path)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)

// NullFormatter formats row paths separated by null bytes (0x00), suitable
// for xargs -0. Paths containing spaces or newlines survive intact.
type NullFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *NullFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, row := range r.Rows {
		w.WriteString(row.Path)
		w.WriteByte(0)
	}
	return nil
}

func init() {
	Register("null", func() Formatter {
		return &NullFormatter{}
	})
}

// Ensure NullFormatter implements Formatter.
var _ Formatter = (*NullFormatter)(nil)
