package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/prompt"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/viper"
)

func wantUsage(t *testing.T, err error) {
	t.Helper()
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitUsage {
		t.Errorf("error = %v, want a usage error", err)
	}
}

func TestParseAlgorithmFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Algorithm
		wantErr bool
	}{
		{in: "md5", want: types.MD5},
		{in: "SHA256", want: types.SHA256},
		{in: "sha-256", want: types.SHA256},
		{in: "sha1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAlgorithmFlag(tt.in)
			if tt.wantErr {
				wantUsage(t, err)
				return
			}
			if err != nil {
				t.Fatalf("parseAlgorithmFlag(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseAlgorithmFlag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModeFromFlags(t *testing.T) {
	tests := []struct {
		name         string
		appendFlag   bool
		overwrite    bool
		wantMode     types.Mode
		wantExplicit bool
		wantErr      bool
	}{
		{name: "neither", wantMode: types.CreateNew},
		{name: "append", appendFlag: true, wantMode: types.AppendMissing, wantExplicit: true},
		{name: "overwrite", overwrite: true, wantMode: types.Overwrite, wantExplicit: true},
		{name: "both", appendFlag: true, overwrite: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, explicit, err := modeFromFlags(tt.appendFlag, tt.overwrite)
			if tt.wantErr {
				wantUsage(t, err)
				return
			}
			if err != nil {
				t.Fatalf("modeFromFlags() error: %v", err)
			}
			if mode != tt.wantMode || explicit != tt.wantExplicit {
				t.Errorf("modeFromFlags() = (%v, %v), want (%v, %v)", mode, explicit, tt.wantMode, tt.wantExplicit)
			}
		})
	}
}

func TestParseMatchFlag(t *testing.T) {
	if m, err := parseMatchFlag("path"); err != nil || m != types.MatchPath {
		t.Errorf("parseMatchFlag(path) = (%v, %v)", m, err)
	}
	if m, err := parseMatchFlag("basename"); err != nil || m != types.MatchBasename {
		t.Errorf("parseMatchFlag(basename) = (%v, %v)", m, err)
	}
	_, err := parseMatchFlag("inode")
	wantUsage(t, err)
}

func TestBuildFormatter(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		template string
		wantType string
		wantErr  bool
	}{
		{name: "default is pretty", wantType: "*output.PrettyFormatter"},
		{name: "json", format: "json", wantType: "*output.JSONFormatter"},
		{name: "template implied", template: "{{.Manifest}}", wantType: "*output.TemplateFormatter"},
		{name: "explicit format wins over template", format: "plain", template: "{{.Manifest}}", wantType: "*output.PlainFormatter"},
		{name: "unknown", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.Set("output", tt.format)
			viper.Set("template", tt.template)

			f, err := buildFormatter()
			if tt.wantErr {
				wantUsage(t, err)
				return
			}
			if err != nil {
				t.Fatalf("buildFormatter() error: %v", err)
			}
			if got := reflect.TypeOf(f).String(); got != tt.wantType {
				t.Errorf("buildFormatter() type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestSplitPatterns(t *testing.T) {
	got := splitPatterns([]string{"*.tmp, .DS_Store", "", "  **/cache/** ", "a,,b"})
	want := []string{"*.tmp", ".DS_Store", "**/cache/**", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitPatterns() = %q, want %q", got, want)
	}
	if got := splitPatterns(nil); got != nil {
		t.Errorf("splitPatterns(nil) = %q, want nil", got)
	}
}

func TestExitCode(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("quiet", true)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "declined", err: fmt.Errorf("%w: overwrite x.md5", types.ErrUserDeclined), want: exitOK},
		{name: "prompt aborted", err: prompt.ErrAborted, want: exitOK},
		{name: "verification failed", err: errVerificationFailed, want: exitVerifyFailed},
		{name: "usage", err: &exitError{code: exitUsage, err: errors.New("bad flag"), silent: true}, want: exitUsage},
		{name: "operation error", err: fmt.Errorf("%w: x.md5", types.ErrManifestExists), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorHintForFileTarget(t *testing.T) {
	err := fmt.Errorf("%w: report.pdf.md5", types.ErrFileManifestExists)
	hint := errorHint(err)
	if !strings.Contains(hint, "--overwrite --yes") || strings.Contains(hint, "--append") {
		t.Errorf("errorHint(file target) = %q, want only the overwrite suggestion", hint)
	}
	if !strings.Contains(errorHint(types.ErrManifestExists), "--append") {
		t.Errorf("errorHint(directory target) should still suggest --append")
	}
}

func TestErrorHint(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: types.ErrManifestExists, want: true},
		{err: types.ErrBackupExists, want: true},
		{err: types.ErrManifestNotFound, want: true},
		{err: types.ErrUnsupportedAlgorithm, want: true},
		{err: errors.New("disk on fire"), want: false},
	}

	for _, tt := range tests {
		if got := errorHint(fmt.Errorf("wrapped: %w", tt.err)) != ""; got != tt.want {
			t.Errorf("errorHint(%v) present = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	got := envOverrides([]string{"PATH=/bin", "SUMTREE_OUTPUT=json", "SUMTREE_ALGORITHM=sha256", "SUMTREEX=1"})
	want := []string{"SUMTREE_ALGORITHM=sha256", "SUMTREE_OUTPUT=json"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envOverrides() = %q, want %q", got, want)
	}
}

func TestSummaryLine(t *testing.T) {
	tests := []struct {
		name string
		rec  journal.Record
		want string
	}{
		{
			name: "verify",
			rec:  journal.Record{Operation: journal.OpVerify, Status: journal.StatusFailed, Summary: journal.Summary{OK: 8, Mismatch: 1, Missing: 2}},
			want: "8 ok, 1 bad, 2 gone",
		},
		{
			name: "append",
			rec:  journal.Record{Operation: journal.OpHash, Status: journal.StatusOK, Summary: journal.Summary{Entries: 12, Added: 3}},
			want: "12 entries (+3)",
		},
		{
			name: "import",
			rec:  journal.Record{Operation: journal.OpImport, Status: journal.StatusOK, Summary: journal.Summary{Entries: 4, Skipped: 1}},
			want: "4 entries, 1 skipped",
		},
		{
			name: "error",
			rec:  journal.Record{Operation: journal.OpHash, Status: journal.StatusError},
			want: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summaryLine(tt.rec); got != tt.want {
				t.Errorf("summaryLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultFormatterIsRegistered(t *testing.T) {
	if _, err := output.Get(output.DefaultFormat); err != nil {
		t.Fatalf("default format %q not registered: %v", output.DefaultFormat, err)
	}
}
