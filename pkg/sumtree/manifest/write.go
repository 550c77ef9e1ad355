package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const fileMode = 0o644

// WriteAtomic replaces the file at path with data. The content goes to a
// temporary file in the same directory which is synced and renamed over
// path, so readers see either the old or the new content and never a
// truncated file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", types.ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%w: write %s: %w", types.ErrWriteFailed, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync %s: %w", types.ErrWriteFailed, tmpPath, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %w", types.ErrWriteFailed, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %w", types.ErrWriteFailed, tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename onto %s: %w", types.ErrWriteFailed, path, err)
	}

	syncDir(dir)
	return nil
}

// WriteEntries atomically replaces the manifest at path with entries.
func WriteEntries(path string, entries []types.Entry) error {
	return WriteAtomic(path, Encode(entries))
}

// Append adds entries to the end of an existing manifest with a single
// write call. A newline is inserted first when the file does not already
// end with one.
func Append(path string, entries []types.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", types.ErrWriteFailed, path, err)
	}

	var buf bytes.Buffer
	needsNewline, err := lacksTrailingNewline(f)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: inspect %s: %w", types.ErrWriteFailed, path, err)
	}
	if needsNewline {
		buf.WriteByte('\n')
	}
	_ = Format(&buf, entries)

	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: append %s: %w", types.ErrWriteFailed, path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: sync %s: %w", types.ErrWriteFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", types.ErrWriteFailed, path, err)
	}
	return nil
}

func lacksTrailingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return false, err
	}
	return last[0] != '\n', nil
}

// syncDir flushes a directory entry after a rename. Not every platform
// supports syncing directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
