package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/sumtree/pkg/sumtree/journal"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// cliEnv points every state path at a temp dir and returns it.
func cliEnv(t *testing.T) string {
	t.Helper()
	resetCLIState(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Cleanup(func() { _ = logging.Close() })
	return home
}

// resetFlags restores every flag to its default between runs.
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func runCLI(t *testing.T, home string, args ...string) error {
	t.Helper()
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		resetFlags(c.Flags())
		resetFlags(c.PersistentFlags())
	}
	configured = false
	appConfig = nil
	viper.Reset()
	viper.Set("logging.path", filepath.Join(home, "state", "sumtree.log"))
	viper.Set("journal.path", filepath.Join(home, "journal"))
	viper.Set("cache.path", filepath.Join(home, "cache"))

	rootCmd.SetArgs(append([]string{"-q", "-n"}, args...))
	return rootCmd.ExecuteContext(context.Background())
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCLI_HashThenVerify(t *testing.T) {
	home := cliEnv(t)
	root := filepath.Join(home, "photos")
	writeTestFile(t, filepath.Join(root, "a.jpg"), "alpha")
	writeTestFile(t, filepath.Join(root, "trip", "b.jpg"), "bravo")

	if err := runCLI(t, home, "hash", "-a", "sha256", root); err != nil {
		t.Fatalf("hash: %v", err)
	}
	mpath := filepath.Join(root, "photos.sha256")
	data, err := os.ReadFile(mpath)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("manifest has %d lines, want 2:\n%s", got, data)
	}

	if err := runCLI(t, home, "verify", mpath); err != nil {
		t.Fatalf("verify of untouched tree: %v", err)
	}

	writeTestFile(t, filepath.Join(root, "trip", "b.jpg"), "changed")
	err = runCLI(t, home, "verify", "-a", "sha256", root)
	if !errors.Is(err, errVerificationFailed) {
		t.Fatalf("verify after mutation = %v, want errVerificationFailed", err)
	}
	if code := exitCode(err); code != exitVerifyFailed {
		t.Errorf("exit code = %d, want %d", code, exitVerifyFailed)
	}

	j, err := journal.New(filepath.Join(home, "journal"))
	if err != nil {
		t.Fatal(err)
	}
	records, err := j.List(0, journal.OpVerify)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("journal has %d verify records, want 2", len(records))
	}
	failed := records[0]
	if failed.Status != journal.StatusFailed || len(failed.Failures) != 1 || failed.Failures[0].Path != "trip/b.jpg" {
		t.Errorf("latest verify record = %+v", failed)
	}
	if _, err := os.Stat(failed.ErrorLog); err != nil {
		t.Errorf("error log %q missing: %v", failed.ErrorLog, err)
	}
}

func TestCLI_HashRefusesExistingManifest(t *testing.T) {
	home := cliEnv(t)
	root := filepath.Join(home, "docs")
	writeTestFile(t, filepath.Join(root, "a.txt"), "alpha")

	if err := runCLI(t, home, "hash", "-a", "md5", root); err != nil {
		t.Fatalf("first hash: %v", err)
	}
	before, _ := os.ReadFile(filepath.Join(root, "docs.md5"))

	err := runCLI(t, home, "hash", "-a", "md5", root)
	if !errors.Is(err, types.ErrManifestExists) {
		t.Fatalf("second hash = %v, want ErrManifestExists", err)
	}

	writeTestFile(t, filepath.Join(root, "b.txt"), "bravo")
	if err := runCLI(t, home, "hash", "-a", "md5", "--append", root); err != nil {
		t.Fatalf("append: %v", err)
	}
	after, _ := os.ReadFile(filepath.Join(root, "docs.md5"))
	if !strings.HasPrefix(string(after), string(before)) || !strings.HasSuffix(string(after), "  b.txt\n") {
		t.Errorf("append rewrote the manifest:\nbefore:\n%s\nafter:\n%s", before, after)
	}

	err = runCLI(t, home, "hash", "-a", "md5", "--overwrite", root)
	if !errors.Is(err, types.ErrUserDeclined) {
		t.Fatalf("unconfirmed overwrite = %v, want ErrUserDeclined", err)
	}
	if code := exitCode(err); code != exitOK {
		t.Errorf("declined exit code = %d, want %d", code, exitOK)
	}
}

func TestCLI_HashIncludesHiddenFilesByDefault(t *testing.T) {
	home := cliEnv(t)
	root := filepath.Join(home, "album")
	for _, rel := range []string{"a.txt", ".DS_Store", "Thumbs.db", ".git/HEAD"} {
		writeTestFile(t, filepath.Join(root, filepath.FromSlash(rel)), rel)
	}

	if err := runCLI(t, home, "hash", "-a", "md5", root); err != nil {
		t.Fatalf("hash: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "album.md5"))
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"  .DS_Store\n", "  .git/HEAD\n", "  Thumbs.db\n", "  a.txt\n"} {
		if !strings.Contains(string(data), rel) {
			t.Errorf("manifest is missing %q:\n%s", strings.TrimSpace(rel), data)
		}
	}

	if err := runCLI(t, home, "hash", "-a", "md5", "--overwrite", "--yes", "-e", ".git/", root); err != nil {
		t.Fatalf("hash --exclude: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(root, "album.md5"))
	if strings.Contains(string(data), ".git/HEAD") || strings.Count(string(data), "\n") != 3 {
		t.Errorf("--exclude .git/ manifest:\n%s", data)
	}
}

func TestCLI_FlagsBoundAfterReset(t *testing.T) {
	home := cliEnv(t)
	root := filepath.Join(home, "tree")
	writeTestFile(t, filepath.Join(root, "a.txt"), "alpha")

	// runCLI resets the global viper; the flag must still reach the config key.
	if err := runCLI(t, home, "hash", "-a", "md5", "--match", "path", root); err != nil {
		t.Fatalf("hash: %v", err)
	}
	if got := viper.GetString("hash.match"); got != "path" {
		t.Errorf("hash.match = %q after --match path, want path", got)
	}
	if !viper.GetBool("quiet") || !viper.GetBool("no_interactive") {
		t.Errorf("persistent flags lost their bindings: quiet=%v no_interactive=%v",
			viper.GetBool("quiet"), viper.GetBool("no_interactive"))
	}
}

func TestCLI_ImportDropsThreeHeaderLines(t *testing.T) {
	home := cliEnv(t)
	mpath := filepath.Join(home, "short", "list.md5")
	writeTestFile(t, mpath, "; exported\r\n"+strings.ToUpper("b3a3f0e6e8a0a2d5ba1ef4c4a3d2c2b1")+" *clip.mov\r\n")

	if err := runCLI(t, home, "import", "--yes", mpath); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, _ := os.ReadFile(mpath)
	if len(got) != 0 {
		t.Errorf("an entry inside the header was kept: %q", got)
	}
}

func TestCLI_UsageErrors(t *testing.T) {
	home := cliEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no path", args: []string{"hash"}},
		{name: "bad algorithm", args: []string{"hash", "-a", "crc32", home}},
		{name: "append and overwrite", args: []string{"hash", "--append", "--overwrite", home}},
		{name: "unknown flag", args: []string{"verify", "--bogus", home}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCLI(t, home, tt.args...)
			wantUsage(t, err)
		})
	}
}

func TestCLI_Import(t *testing.T) {
	home := cliEnv(t)
	dir := filepath.Join(home, "export")
	writeTestFile(t, filepath.Join(dir, "clip.mov"), "movie")
	src := "; Generated by ChecksumTool\r\n; Files: 1\r\n;\r\n" + strings.ToUpper("b3a3f0e6e8a0a2d5ba1ef4c4a3d2c2b1") + " *clip.mov\r\n"
	mpath := filepath.Join(dir, "list.md5")
	writeTestFile(t, mpath, src)

	err := runCLI(t, home, "import", mpath)
	if !errors.Is(err, types.ErrUserDeclined) {
		t.Fatalf("import without --yes = %v, want ErrUserDeclined", err)
	}

	if err := runCLI(t, home, "import", "--yes", mpath); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, _ := os.ReadFile(mpath)
	if want := "b3a3f0e6e8a0a2d5ba1ef4c4a3d2c2b1  clip.mov\n"; string(got) != want {
		t.Errorf("converted manifest = %q, want %q", got, want)
	}
	backup, _ := os.ReadFile(mpath + ".backup")
	if string(backup) != src {
		t.Errorf("backup = %q, want the original bytes", backup)
	}

	err = runCLI(t, home, "import", "--yes", mpath)
	if !errors.Is(err, types.ErrBackupExists) {
		t.Errorf("second import = %v, want ErrBackupExists", err)
	}
}
