package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
)

var logger = logging.Get("scanner")

// Lister enumerates the files under a root directory.
type Lister interface {
	// ListFiles returns the absolute paths of all regular files under root
	// in a deterministic order.
	ListFiles(ctx context.Context, root string) ([]string, error)
}

// WalkError records an entry that could not be read during a walk.
type WalkError struct {
	Path string
	Err  error
}

func (e WalkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Scanner lists files using fastwalk.
type Scanner struct {
	opts Options

	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	excluded     atomic.Int64

	errors   []WalkError
	errorsMu sync.Mutex
}

// New creates a Scanner. Invalid exclude patterns are reported by ListFiles.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// ListFiles walks root and returns the absolute paths of its regular files,
// sorted by slash-separated relative path. Unreadable entries below root are
// collected in Errors and skipped; an unreadable root is an error.
func (s *Scanner) ListFiles(ctx context.Context, root string) ([]string, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.reset()

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	conf := fastwalk.Config{
		Follow:     s.opts.FollowSymlinks,
		NumWorkers: s.opts.Workers,
	}

	var (
		mu    sync.Mutex
		files []string
	)

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return err
			}
			s.addError(path, err)
			return nil
		}

		if path == root {
			return nil
		}

		rel := relSlash(root, path)
		if s.isExcluded(rel, d.IsDir()) {
			s.excluded.Add(1)
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.dirsScanned.Add(1)
			return nil
		}

		if !s.isRegular(path, d) {
			return nil
		}

		s.filesScanned.Add(1)
		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	sort.Slice(files, func(i, j int) bool {
		return relSlash(root, files[i]) < relSlash(root, files[j])
	})

	logger.Debug("listed files",
		"root", root,
		"files", s.filesScanned.Load(),
		"dirs", s.dirsScanned.Load(),
		"excluded", s.excluded.Load(),
		"errors", len(s.Errors()))

	return files, nil
}

// Errors returns the entries that could not be read during the last walk.
func (s *Scanner) Errors() []WalkError {
	s.errorsMu.Lock()
	defer s.errorsMu.Unlock()
	out := make([]WalkError, len(s.errors))
	copy(out, s.errors)
	return out
}

// FilesScanned returns the number of files listed by the last walk.
func (s *Scanner) FilesScanned() int64 {
	return s.filesScanned.Load()
}

// isRegular reports whether the entry is a regular file, resolving symlinks
// when FollowSymlinks is set.
func (s *Scanner) isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 || !s.opts.FollowSymlinks {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		s.addError(path, err)
		return false
	}
	return info.Mode().IsRegular()
}

func (s *Scanner) reset() {
	s.dirsScanned.Store(0)
	s.filesScanned.Store(0)
	s.excluded.Store(0)
	s.errorsMu.Lock()
	s.errors = nil
	s.errorsMu.Unlock()
}

func (s *Scanner) addError(path string, err error) {
	logger.Warn("skipping unreadable entry", "path", path, "err", err)
	s.errorsMu.Lock()
	s.errors = append(s.errors, WalkError{Path: path, Err: err})
	s.errorsMu.Unlock()
}

// isExcluded checks the relative path against the exclude patterns.
func (s *Scanner) isExcluded(rel string, isDir bool) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]
	for _, pattern := range s.opts.Exclude {
		if dirPattern, ok := strings.CutSuffix(pattern, "/"); ok {
			if !isDir {
				continue
			}
			if matchAny(dirPattern, rel, base) {
				return true
			}
			continue
		}
		if matchAny(pattern, rel, base) {
			return true
		}
	}
	return false
}

func matchAny(pattern, rel, base string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	if strings.Contains(pattern, "/") {
		return false
	}
	ok, _ := doublestar.Match(pattern, base)
	return ok
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(strings.TrimSuffix(p, "/")) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// relSlash returns path relative to root using forward slashes.
func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Ensure Scanner implements Lister.
var _ Lister = (*Scanner)(nil)
