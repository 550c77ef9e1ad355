package output

import (
	"bytes"

	"github.com/goccy/go-json"
)

// jsonReport is the JSON document layout. Durations are rendered as
// strings so the output is readable without knowing Go's units.
type jsonReport struct {
	*Report
	Stats jsonStats `json:"stats"`
}

type jsonStats struct {
	Stats
	Duration string `json:"duration,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildJSON(r))
}

func buildJSON(r *Report) jsonReport {
	out := jsonReport{
		Report: r,
		Stats: jsonStats{
			Stats:    r.Stats,
			Duration: formatDurationString(r.Stats),
		},
	}
	if out.Rows == nil {
		rows := *r
		rows.Rows = []Row{}
		out.Report = &rows
	}
	return out
}

// formatDurationString formats a duration as a string for JSON output.
func formatDurationString(s Stats) string {
	if s.Duration == 0 {
		return ""
	}
	return s.Duration.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// Each row is written as a compact JSON object on its own line.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, row := range r.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
