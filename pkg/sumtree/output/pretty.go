package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxPrettyRows caps the rows shown in the terminal; the machine-readable
// formats always carry every row.
const maxPrettyRows = 50

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing output suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatTable(r))

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if r.ErrorLog != "" {
		w.WriteString(ErrorBox.Render("Failing paths written to " + PathStyle.Render(r.ErrorLog)))
		w.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with operation metadata.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	var lines []string

	title := TitleStyle.Render(strings.ToUpper(r.Operation))
	lines = append(lines, fmt.Sprintf("%s %s", title, f.formatStatus(r)))
	lines = append(lines, labelled("Target:", PathStyle.Render(r.Target)))
	lines = append(lines, labelled("Manifest:", PathStyle.Render(r.Manifest)))

	info := []string{labelled("Algorithm:", ValueStyle.Render(r.Algorithm))}
	if r.Mode != "" {
		info = append(info, labelled("Mode:", ValueStyle.Render(r.Mode)))
	}
	lines = append(lines, strings.Join(info, "  "))

	if r.Backup != "" {
		lines = append(lines, labelled("Backup:", PathStyle.Render(r.Backup)))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatStatus(r *Report) string {
	switch r.Status {
	case StatusFailed:
		return ErrorStyle.Bold(true).Render("FAILED")
	case StatusUnchanged:
		return MutedStyle.Render("no changes")
	default:
		return SuccessStyle.Bold(true).Render("OK")
	}
}

// formatTable builds the row table with STATUS and PATH columns.
func (f *PrettyFormatter) formatTable(r *Report) string {
	if len(r.Rows) == 0 {
		return MutedStyle.Render("  Nothing to list") + "\n"
	}

	var sb strings.Builder

	statusHeader := TableHeaderStyle.Render("STATUS")
	pathHeader := TableHeaderStyle.Render("PATH")
	sb.WriteString(fmt.Sprintf("  %s  %s\n", statusHeader, pathHeader))

	width := 0
	for _, row := range r.Rows {
		width = max(width, len(row.Status))
	}

	shown := r.Rows
	if len(shown) > maxPrettyRows {
		shown = shown[:maxPrettyRows]
	}
	for _, row := range shown {
		status := statusStyle(row.Status).Render(padRight(row.Status, width))
		line := fmt.Sprintf("  %s  %s", status, PathStyle.Render(row.Path))
		if row.Detail != "" {
			line += "  " + MutedStyle.Render(row.Detail)
		}
		sb.WriteString(line + "\n")
	}
	if hidden := len(r.Rows) - len(shown); hidden > 0 {
		sb.WriteString(MutedStyle.Render(fmt.Sprintf("  ... and %d more (use -o plain for the full list)", hidden)))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	s := r.Stats
	parts := []string{labelled("Entries:", ValueStyle.Render(fmt.Sprintf("%d", s.Entries)))}

	switch r.Operation {
	case "verify":
		parts = append(parts,
			labelled("OK:", SuccessStyle.Render(fmt.Sprintf("%d", s.OK))),
			labelled("Mismatch:", countStyle(s.Mismatch).Render(fmt.Sprintf("%d", s.Mismatch))),
			labelled("Missing:", countStyle(s.Missing).Render(fmt.Sprintf("%d", s.Missing))),
		)
	case "import":
		parts = append(parts, labelled("Skipped:", countStyle(s.Skipped).Render(fmt.Sprintf("%d", s.Skipped))))
	default:
		if r.Mode == "append" {
			parts = append(parts, labelled("Added:", ValueStyle.Render(fmt.Sprintf("%d", s.Added))))
		}
		if s.Bytes > 0 {
			parts = append(parts, labelled("Hashed:", SizeStyle.Render(humanize.IBytes(uint64(s.Bytes)))))
		}
		if s.CacheHits > 0 {
			parts = append(parts, labelled("Cached:", ValueStyle.Render(fmt.Sprintf("%d", s.CacheHits))))
		}
	}

	if s.Duration > 0 {
		parts = append(parts, labelled("Took:", MutedStyle.Render(formatDuration(s.Duration))))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

func labelled(label, value string) string {
	return LabelStyle.Render(label) + " " + value
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d interface{ Seconds() float64 }) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
