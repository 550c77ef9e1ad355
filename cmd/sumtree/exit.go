package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/sumtree/pkg/sumtree/prompt"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// Process exit codes.
const (
	exitOK           = 0
	exitVerifyFailed = 1
	exitFailure      = 2
	exitUsage        = 64
)

// exitError carries a specific exit code. A silent exitError has already
// been reported to the user.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// usageErrorf reports wrong arguments or flags; the command's usage is
// printed and the process exits with 64.
func usageErrorf(format string, args ...interface{}) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// errVerificationFailed is returned after a failed verification report has
// been printed.
var errVerificationFailed = &exitError{
	code:   exitVerifyFailed,
	err:    errors.New("verification failed"),
	silent: true,
}

// exitCode maps an Execute error to the process exit code, printing it
// when it has not been reported yet.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	if errors.Is(err, types.ErrUserDeclined) || errors.Is(err, prompt.ErrAborted) {
		if !getQuiet() {
			fmt.Fprintln(os.Stderr, "Nothing changed.")
		}
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.silent {
			printError("%v", ee.err)
		}
		return ee.code
	}

	printError("%v", err)
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
	return exitFailure
}

// errorHint suggests the flag that avoids a common failure.
func errorHint(err error) string {
	switch {
	case errors.Is(err, types.ErrFileManifestExists):
		return "Use --overwrite --yes to replace it."
	case errors.Is(err, types.ErrManifestExists):
		return "Use --append to add new files or --overwrite --yes to replace it."
	case errors.Is(err, types.ErrBackupExists):
		return "Remove or rename the backup before importing again."
	case errors.Is(err, types.ErrManifestNotFound):
		return "Create one with 'sumtree hash <path>'."
	case errors.Is(err, types.ErrUnsupportedAlgorithm):
		return "Choose one with --algorithm md5 or --algorithm sha256."
	default:
		return ""
	}
}
