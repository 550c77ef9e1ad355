package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// TemplateFormatter formats output using a custom Go text/template.
// It supports custom template functions for common formatting operations.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// templateData is the data passed to the template.
// It wraps Report to add computed fields.
type templateData struct {
	*Report
	Passed bool
}

// NewTemplateFormatter creates a new template formatter with the given template string.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{
		templateStr: templateStr,
	}
}

// SetTemplate sets or updates the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil // Reset compiled template
}

// templateFuncs returns the custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// bytes formats a size in bytes as a human-readable string.
		// Usage: {{bytes .Stats.Bytes}}
		"bytes": func(size int64) string {
			return humanize.IBytes(uint64(max(size, 0)))
		},

		// duration formats a duration in a human-friendly way.
		// Usage: {{duration .Stats.Duration}}
		"duration": func(d time.Duration) string {
			return formatDuration(d)
		},

		// short truncates a digest for display.
		// Usage: {{short .Digest}}
		"short": func(digest string) string {
			if len(digest) <= 12 {
				return digest
			}
			return digest[:12]
		},
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			logger.Debug("template parse failed", "error", err)
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, templateData{Report: r, Passed: r.Passed()})
}

// DefaultTemplate is the template used when no custom template is provided.
const DefaultTemplate = `{{range .Rows}}{{.Status}}	{{.Path}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(DefaultTemplate)
	})
}

// Ensure TemplateFormatter implements Formatter.
var _ Formatter = (*TemplateFormatter)(nil)
