package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// GenerateRequest describes a GenerateManifest call.
type GenerateRequest struct {
	// Root is the file or directory to hash.
	Root string

	// Algorithm selects the digest function and manifest extension.
	Algorithm types.Algorithm

	// Mode decides what happens to an existing manifest.
	Mode types.Mode

	// Confirmed must be true for Overwrite to replace an existing manifest.
	Confirmed bool

	// Match selects the AppendMissing lookup key.
	Match types.MatchMode
}

// GenerateResult reports what GenerateManifest did.
type GenerateResult struct {
	// Manifest is the path of the manifest that was written or inspected.
	Manifest string `json:"manifest" yaml:"manifest"`

	Algorithm types.Algorithm `json:"-" yaml:"-"`

	// Mode is the mode actually applied; AppendMissing without a manifest
	// runs as CreateNew.
	Mode types.Mode `json:"-" yaml:"-"`

	// Entries are the lines written by this run, in write order.
	Entries []types.Entry `json:"entries" yaml:"entries"`

	// Added lists the paths appended by AppendMissing.
	Added []string `json:"added,omitempty" yaml:"added,omitempty"`

	// Existing is the number of entries the manifest held before an append.
	Existing int `json:"existing" yaml:"existing"`

	// NoChanges is set when AppendMissing found nothing to add.
	NoChanges bool `json:"no_changes" yaml:"no_changes"`

	Bytes     int64         `json:"bytes" yaml:"bytes"`
	CacheHits int           `json:"cache_hits" yaml:"cache_hits"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// GenerateManifest creates, extends or replaces the manifest for req.Root.
//
// On success exactly one file is written; on any error, including a hash
// failure part way through, the existing manifest is left untouched.
func (e *Engine) GenerateManifest(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if !req.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedAlgorithm, req.Algorithm)
	}

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", req.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, req.Root)
		}
		return nil, err
	}

	start := e.now()
	var res *GenerateResult
	if info.IsDir() {
		res, err = e.generateTree(ctx, root, req)
	} else {
		res, err = e.generateFile(ctx, root, req)
	}
	if err != nil {
		return nil, err
	}
	res.Duration = e.now().Sub(start)

	logger.Info("manifest generated",
		"manifest", res.Manifest,
		"mode", res.Mode.String(),
		"entries", len(res.Entries),
		"no_changes", res.NoChanges,
	)
	return res, nil
}

// generateFile writes a single-entry manifest next to a file.
func (e *Engine) generateFile(ctx context.Context, path string, req GenerateRequest) (*GenerateResult, error) {
	mpath := manifest.Path(path, req.Algorithm, false)
	found, err := exists(mpath)
	if err != nil {
		return nil, err
	}

	mode := types.CreateNew
	if found {
		if req.Mode != types.Overwrite {
			return nil, fmt.Errorf("%w: %s", types.ErrFileManifestExists, mpath)
		}
		if !req.Confirmed {
			return nil, fmt.Errorf("%w: overwrite %s", types.ErrUserDeclined, mpath)
		}
		mode = types.Overwrite
	}

	h, err := e.hashAll(ctx, req.Algorithm, []fileRef{{abs: path, rel: filepath.Base(path)}})
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	if err := manifest.WriteEntries(mpath, h.entries); err != nil {
		return nil, err
	}

	return &GenerateResult{
		Manifest:  mpath,
		Algorithm: req.Algorithm,
		Mode:      mode,
		Entries:   h.entries,
		Bytes:     h.bytes,
		CacheHits: h.cacheHits,
	}, nil
}

// generateTree handles a directory root. The manifest lives inside the
// directory and is never listed as one of its own entries.
func (e *Engine) generateTree(ctx context.Context, root string, req GenerateRequest) (*GenerateResult, error) {
	mpath := manifest.Path(root, req.Algorithm, true)
	found, err := exists(mpath)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	switch mode {
	case types.CreateNew:
		if found {
			return nil, fmt.Errorf("%w: %s", types.ErrManifestExists, mpath)
		}
	case types.AppendMissing:
		if !found {
			logger.Debug("no manifest to append to, creating", "manifest", mpath)
			mode = types.CreateNew
		}
	case types.Overwrite:
		if found && !req.Confirmed {
			return nil, fmt.Errorf("%w: overwrite %s", types.ErrUserDeclined, mpath)
		}
	default:
		return nil, fmt.Errorf("unknown mode %d", req.Mode)
	}

	files, err := e.listTree(ctx, root, mpath)
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{
		Manifest:  mpath,
		Algorithm: req.Algorithm,
		Mode:      mode,
	}

	if mode == types.AppendMissing {
		return e.appendMissing(ctx, res, files, req.Match)
	}

	h, err := e.hashAll(ctx, req.Algorithm, files)
	if err != nil {
		return nil, err
	}
	if err := manifest.WriteEntries(mpath, h.entries); err != nil {
		return nil, err
	}

	res.Entries = h.entries
	res.Bytes = h.bytes
	res.CacheHits = h.cacheHits
	return res, nil
}

// appendMissing hashes files whose key is absent from the manifest and
// appends them in discovery order with a single write.
func (e *Engine) appendMissing(ctx context.Context, res *GenerateResult, files []fileRef, match types.MatchMode) (*GenerateResult, error) {
	existing, err := manifest.Load(res.Manifest, res.Algorithm)
	if err != nil {
		return nil, err
	}
	res.Existing = len(existing)

	// Staged files are not added to the index, so two new files sharing a
	// base name are both appended.
	idx := manifest.NewIndex(existing, match)
	var pending []fileRef
	for _, f := range files {
		if !idx.Contains(f.rel) {
			pending = append(pending, f)
		}
	}

	if len(pending) == 0 {
		res.NoChanges = true
		return res, nil
	}

	h, err := e.hashAll(ctx, res.Algorithm, pending)
	if err != nil {
		return nil, err
	}
	if err := manifest.Append(res.Manifest, h.entries); err != nil {
		return nil, err
	}

	res.Entries = h.entries
	res.Bytes = h.bytes
	res.CacheHits = h.cacheHits
	for _, entry := range h.entries {
		res.Added = append(res.Added, entry.Path)
	}
	return res, nil
}

// listTree lists root and drops the manifest itself along with the files
// sumtree leaves beside a tree manifest.
func (e *Engine) listTree(ctx context.Context, root, mpath string) ([]fileRef, error) {
	paths, err := e.lister.ListFiles(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	own := e.ownFiles(root)
	files := make([]fileRef, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if p == mpath || own.match(p) {
			logger.Debug("skipping own file", "path", p)
			continue
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, fmt.Errorf("relative path for %s: %w", p, err)
		}
		files = append(files, fileRef{abs: p, rel: filepath.ToSlash(rel)})
	}
	return files, nil
}

// ownFileSet recognises the tree manifests of every algorithm and the
// files written next to them: error logs, import backups and the temp files
// of an interrupted write.
type ownFileSet struct {
	dir       string
	manifests map[string]bool
	prefixes  []string
	logs      []*regexp.Regexp
}

func (e *Engine) ownFiles(root string) *ownFileSet {
	set := &ownFileSet{dir: filepath.Clean(root), manifests: make(map[string]bool)}
	for _, alg := range types.Algorithms {
		mpath := manifest.Path(root, alg, true)
		base := filepath.Base(mpath)
		set.manifests[base] = true
		set.manifests[base+BackupSuffix] = true
		set.prefixes = append(set.prefixes, "."+base+".tmp-")
		set.logs = append(set.logs, e.errorLogPattern(mpath))
	}
	return set
}

func (s *ownFileSet) match(path string) bool {
	if filepath.Dir(path) != s.dir {
		return false
	}
	name := filepath.Base(path)
	if s.manifests[name] {
		return true
	}
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, re := range s.logs {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
