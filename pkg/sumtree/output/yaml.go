package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlReport represents the full YAML output structure.
type yamlReport struct {
	Operation string    `yaml:"operation"`
	Target    string    `yaml:"target"`
	Manifest  string    `yaml:"manifest"`
	Algorithm string    `yaml:"algorithm"`
	Mode      string    `yaml:"mode,omitempty"`
	Status    string    `yaml:"status"`
	Rows      []Row     `yaml:"rows"`
	Stats     yamlStats `yaml:"stats"`
	ErrorLog  string    `yaml:"error_log,omitempty"`
	Backup    string    `yaml:"backup,omitempty"`
	Warnings  []string  `yaml:"warnings,omitempty"`
}

// yamlStats represents operation counters in YAML output.
type yamlStats struct {
	Entries   int    `yaml:"entries"`
	OK        int    `yaml:"ok"`
	Mismatch  int    `yaml:"mismatch"`
	Missing   int    `yaml:"missing"`
	Added     int    `yaml:"added"`
	Skipped   int    `yaml:"skipped"`
	CacheHits int    `yaml:"cache_hits"`
	Bytes     int64  `yaml:"bytes"`
	Duration  string `yaml:"duration,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(f.buildOutput(r)); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts Report to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Report) yamlReport {
	rows := r.Rows
	if rows == nil {
		rows = []Row{}
	}

	return yamlReport{
		Operation: r.Operation,
		Target:    r.Target,
		Manifest:  r.Manifest,
		Algorithm: r.Algorithm,
		Mode:      r.Mode,
		Status:    r.Status,
		Rows:      rows,
		Stats: yamlStats{
			Entries:   r.Stats.Entries,
			OK:        r.Stats.OK,
			Mismatch:  r.Stats.Mismatch,
			Missing:   r.Stats.Missing,
			Added:     r.Stats.Added,
			Skipped:   r.Stats.Skipped,
			CacheHits: r.Stats.CacheHits,
			Bytes:     r.Stats.Bytes,
			Duration:  formatDurationString(r.Stats),
		},
		ErrorLog: r.ErrorLog,
		Backup:   r.Backup,
		Warnings: r.Warnings,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
