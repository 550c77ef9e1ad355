package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/sumtree/pkg/sumtree/output"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/viper"
)

// Flag variables for the operation commands.
var (
	// hash
	hashAlgorithm  string
	hashAppend     bool
	hashOverwrite  bool
	hashYes        bool
	hashMatch      string
	hashExclude    []string
	hashCache      bool
	followSymlinks bool

	// verify
	verifyAlgorithm string

	// import
	importYes bool
)

// parseAlgorithmFlag parses --algorithm. A bad value is a usage error.
func parseAlgorithmFlag(value string) (types.Algorithm, error) {
	alg, err := types.ParseAlgorithm(value)
	if err != nil {
		return types.AlgorithmUnknown, usageErrorf("invalid --algorithm %q: want md5 or sha256", value)
	}
	return alg, nil
}

// modeFromFlags maps --append and --overwrite to a generation mode. explicit
// is false when neither flag was given, leaving the choice to a prompt.
func modeFromFlags(appendFlag, overwriteFlag bool) (mode types.Mode, explicit bool, err error) {
	switch {
	case appendFlag && overwriteFlag:
		return types.CreateNew, false, usageErrorf("--append and --overwrite cannot be combined")
	case appendFlag:
		return types.AppendMissing, true, nil
	case overwriteFlag:
		return types.Overwrite, true, nil
	default:
		return types.CreateNew, false, nil
	}
}

// parseMatchFlag parses the hash.match setting.
func parseMatchFlag(value string) (types.MatchMode, error) {
	m, err := types.ParseMatchMode(value)
	if err != nil {
		return types.MatchBasename, usageError(err)
	}
	return m, nil
}

// buildFormatter returns the formatter selected by --output and --template.
// A template without an explicit format implies -o template.
func buildFormatter() (output.Formatter, error) {
	name := viper.GetString("output")
	tmpl := viper.GetString("template")
	if tmpl != "" && (name == "" || name == "template") {
		return output.NewTemplateFormatter(tmpl), nil
	}
	if name == "" {
		name = output.DefaultFormat
	}

	f, err := output.Get(name)
	if err != nil {
		return nil, usageErrorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return f, nil
}

// splitPatterns flattens comma-separated pattern lists and trims whitespace.
func splitPatterns(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// describeMode is used in prompts and notices.
func describeMode(m types.Mode) string {
	switch m {
	case types.AppendMissing:
		return "add entries for new files"
	case types.Overwrite:
		return "re-hash everything and replace the manifest"
	default:
		return fmt.Sprintf("%s a new manifest", m)
	}
}
