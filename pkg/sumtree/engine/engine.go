// Package engine reconciles and verifies checksum manifests.
//
// The Engine implements the three operations of the tool:
//
//   - GenerateManifest hashes a file or directory tree into a manifest,
//     creating it, appending missing entries or replacing it.
//   - Verify re-hashes every manifest entry and reports mismatches.
//   - ImportForeignManifest converts a foreign listing in place, keeping a
//     backup of the original.
//
// The engine never prompts. Callers resolve the algorithm, mode and
// confirmation up front and pass them in the request.
package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/digest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/scanner"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

var logger = logging.Get("engine")

// DefaultErrorLogName is the fasttemplate pattern for verification error
// logs. {manifest} is the manifest's file name and {ts} the Unix time.
const DefaultErrorLogName = "{manifest}.{ts}.error.log"

// Hasher computes the digest of a file with the requested algorithm.
type Hasher interface {
	Hash(ctx context.Context, alg types.Algorithm, path string) (string, error)
}

// Lister returns the absolute paths of the regular files under root in a
// deterministic order.
type Lister interface {
	ListFiles(ctx context.Context, root string) ([]string, error)
}

// Cache remembers digests between generation runs. A lookup only hits when
// the file's size and modification time are unchanged.
type Cache interface {
	Lookup(path string, alg types.Algorithm, info fs.FileInfo) (string, bool)
	Store(path string, alg types.Algorithm, info fs.FileInfo, digest string) error
}

// ProgressFunc receives progress updates while files are hashed.
type ProgressFunc func(types.Progress)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Hasher computes digests. Defaults to digest.Files.
	Hasher Hasher

	// Lister enumerates directory trees. Defaults to a scanner with no
	// exclusions.
	Lister Lister

	// Cache is consulted during generation only. Nil disables caching.
	Cache Cache

	// OnProgress is called after each file is hashed.
	OnProgress ProgressFunc

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// ErrorLogName names verification error logs. Defaults to
	// DefaultErrorLogName.
	ErrorLogName string
}

// Engine runs manifest operations. It holds no state between calls.
type Engine struct {
	hasher       Hasher
	lister       Lister
	cache        Cache
	onProgress   ProgressFunc
	now          func() time.Time
	errorLogName string
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{
		hasher:       opts.Hasher,
		lister:       opts.Lister,
		cache:        opts.Cache,
		onProgress:   opts.OnProgress,
		now:          opts.Now,
		errorLogName: opts.ErrorLogName,
	}
	if e.hasher == nil {
		e.hasher = digest.Files{}
	}
	if e.lister == nil {
		e.lister = scanner.New(scanner.Options{})
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.errorLogName == "" {
		e.errorLogName = DefaultErrorLogName
	}
	return e
}

// fileRef is a file to hash: its filesystem path and its manifest path.
type fileRef struct {
	abs string
	rel string
}

// hashed is the outcome of hashing a batch of files.
type hashed struct {
	entries   []types.Entry
	bytes     int64
	cacheHits int
}

// hashAll hashes files in order. The first failure aborts the batch so no
// partial manifest is ever written.
func (e *Engine) hashAll(ctx context.Context, alg types.Algorithm, files []fileRef) (*hashed, error) {
	out := &hashed{entries: make([]types.Entry, 0, len(files))}
	start := e.now()

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(f.abs)
		if err != nil {
			return nil, err
		}

		sum, hit := e.lookup(f.abs, alg, info)
		if hit {
			out.cacheHits++
		} else {
			sum, err = e.hasher.Hash(ctx, alg, f.abs)
			if err != nil {
				return nil, err
			}
			e.store(f.abs, alg, info, sum)
		}

		out.bytes += info.Size()
		out.entries = append(out.entries, types.Entry{Digest: sum, Path: f.rel})
		e.progress(types.Progress{
			Done:        i + 1,
			Total:       len(files),
			CurrentPath: f.rel,
			Bytes:       out.bytes,
			Elapsed:     e.now().Sub(start),
		})
	}

	return out, nil
}

func (e *Engine) lookup(path string, alg types.Algorithm, info fs.FileInfo) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	return e.cache.Lookup(path, alg, info)
}

func (e *Engine) store(path string, alg types.Algorithm, info fs.FileInfo, sum string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Store(path, alg, info, sum); err != nil {
		logger.Warn("cache store failed", "path", path, "error", err)
	}
}

func (e *Engine) progress(p types.Progress) {
	if e.onProgress != nil {
		e.onProgress(p)
	}
}

// exists reports whether path exists. Errors other than "not exist" are
// returned so a permission problem is not mistaken for absence.
func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
