package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/sumtree/pkg/sumtree/foreign"
	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// BackupSuffix is appended to an imported file's name to form its backup.
const BackupSuffix = ".backup"

// ImportRequest describes an ImportForeignManifest call.
type ImportRequest struct {
	// Path is the foreign manifest; its extension selects the algorithm.
	Path string

	// Confirmed must be true; the original is renamed to a backup.
	Confirmed bool
}

// ImportResult reports a completed conversion.
type ImportResult struct {
	Path      string                `json:"path" yaml:"path"`
	Backup    string                `json:"backup" yaml:"backup"`
	Algorithm types.Algorithm       `json:"-" yaml:"-"`
	Entries   int                   `json:"entries" yaml:"entries"`
	Skipped   []foreign.SkippedLine `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// ImportForeignManifest converts a foreign listing to the native layout in
// place. The original is kept byte for byte at Path+".backup".
//
// The conversion runs in memory before anything is renamed. A failure after
// the backup rename leaves the backup intact and Path absent. Running the
// import twice on the same path fails with ErrBackupExists rather than
// replacing the first backup.
func (e *Engine) ImportForeignManifest(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alg, err := types.AlgorithmFromExtension(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must end in .md5 or .sha256", types.ErrInvalidExtension, req.Path)
	}

	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", req.Path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrSourceNotFound, req.Path)
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", types.ErrSourceNotFound, req.Path)
	}

	if !req.Confirmed {
		return nil, fmt.Errorf("%w: import %s", types.ErrUserDeclined, req.Path)
	}

	backup := path + BackupSuffix
	found, err := exists(backup)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: %s", types.ErrBackupExists, backup)
	}

	conv, err := convertFile(path, alg)
	if err != nil {
		return nil, err
	}
	content := manifest.Encode(conv.Entries)

	if err := os.Rename(path, backup); err != nil {
		return nil, fmt.Errorf("%w: backup %s: %w", types.ErrWriteFailed, path, err)
	}
	if err := manifest.WriteAtomic(path, content); err != nil {
		logger.Error("converted manifest not written, original kept as backup",
			"path", path, "backup", backup, "error", err)
		return nil, err
	}

	for _, s := range conv.Skipped {
		logger.Warn("foreign line skipped", "path", path, "line", s.Line, "reason", s.Reason)
	}
	logger.Info("foreign manifest imported",
		"path", path,
		"entries", len(conv.Entries),
		"skipped", len(conv.Skipped),
	)

	return &ImportResult{
		Path:      path,
		Backup:    backup,
		Algorithm: alg,
		Entries:   len(conv.Entries),
		Skipped:   conv.Skipped,
	}, nil
}

func convertFile(path string, alg types.Algorithm) (*foreign.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conv, err := foreign.Convert(f, alg)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	return conv, nil
}
