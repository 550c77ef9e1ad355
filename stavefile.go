//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"s": Smoke,
}

const (
	binaryName = "sumtree"
	mainPkg    = "./cmd/sumtree"
	binDir     = "bin"
)

// All lints, tests, builds and smoke-tests the binary.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	st.Deps(Smoke)
	return nil
}

// Build compiles bin/sumtree with version information.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}
	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", binaryPath(), mainPkg)
}

// Install copies the built binary into GOBIN, or GOPATH/bin.
func Install() error {
	st.Deps(Build)

	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin == "" {
		gopath, err := sh.Output(gocmd, "env", "GOPATH")
		if err != nil {
			return fmt.Errorf("determining GOPATH: %w", err)
		}
		bin = filepath.Join(gopath, "bin")
	}

	dst := filepath.Join(bin, filepath.Base(binaryPath()))
	if st.Verbose() {
		fmt.Printf("Installing %s to %s\n", binaryPath(), dst)
	}
	return sh.Copy(dst, binaryPath())
}

// Test runs the unit and CLI tests with race detection and coverage.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Smoke hashes a throwaway tree with the built binary, checks that verify
// passes, then corrupts a file and expects exit status 1.
func Smoke() error {
	st.Deps(Build)

	dir, err := os.MkdirTemp("", "sumtree-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	root := filepath.Join(dir, "tree")
	files := map[string]string{"a.txt": "alpha", "sub/b.txt": "bravo"}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}

	env := map[string]string{"HOME": dir, "XDG_CONFIG_HOME": "", "XDG_STATE_HOME": "", "XDG_CACHE_HOME": ""}
	run := func(args ...string) error {
		return sh.RunWithV(env, binaryPath(), append([]string{"-q", "-n"}, args...)...)
	}

	for _, alg := range []string{"md5", "sha256"} {
		if err := run("hash", "-a", alg, root); err != nil {
			return fmt.Errorf("hash -a %s: %w", alg, err)
		}
		if err := run("verify", filepath.Join(root, "tree."+alg)); err != nil {
			return fmt.Errorf("verify %s: %w", alg, err)
		}
	}

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("changed"), 0o644); err != nil {
		return err
	}
	err = run("verify", "-a", "md5", root)
	if sh.ExitStatus(err) != 1 {
		return fmt.Errorf("verify of a corrupted tree exited %d, want 1", sh.ExitStatus(err))
	}
	return nil
}

// Clean removes build artifacts.
func Clean() error {
	return sh.Rm(binDir + "/")
}

func binaryPath() string {
	out := filepath.Join(binDir, binaryName)
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	return out
}

// buildLdflags injects version, commit and date into package main.
func buildLdflags() string {
	version := "dev"
	commit := "none"
	date := time.Now().UTC().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimSpace(v)
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}

	return fmt.Sprintf("-X main.version=%s -X main.commit=%s -X main.date=%s", version, commit, date)
}
