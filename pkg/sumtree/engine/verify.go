package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/jamesainslie/sumtree/pkg/sumtree/manifest"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

// maxLogAttempts bounds the search for a free error-log name.
const maxLogAttempts = 1000

// VerifyRequest describes a Verify call.
type VerifyRequest struct {
	// Target is a directory holding its manifest, or a manifest file.
	Target string

	// Algorithm is required for a directory target. For a manifest file
	// the algorithm comes from the extension and this field is ignored.
	Algorithm types.Algorithm
}

// VerifyResult reports the outcome of a verification.
type VerifyResult struct {
	Manifest  string                     `json:"manifest" yaml:"manifest"`
	Algorithm types.Algorithm            `json:"-" yaml:"-"`
	Results   []types.VerificationResult `json:"results" yaml:"results"`

	// Passed is true when every entry verified OK.
	Passed bool `json:"passed" yaml:"passed"`

	OK       int `json:"ok" yaml:"ok"`
	Mismatch int `json:"mismatch" yaml:"mismatch"`
	Missing  int `json:"missing" yaml:"missing"`

	// ErrorLog is the path of the failure log, empty when Passed.
	ErrorLog string `json:"error_log,omitempty" yaml:"error_log,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Failures returns the results that did not verify.
func (r *VerifyResult) Failures() []types.VerificationResult {
	var out []types.VerificationResult
	for _, res := range r.Results {
		if res.Outcome != types.OutcomeOK {
			out = append(out, res)
		}
	}
	return out
}

// Verify re-hashes every entry of the manifest for req.Target. Digests are
// always computed from the files; the cache is never consulted.
//
// A failed verification is not an error: it is reported through
// VerifyResult.Passed and an error log written next to the manifest. If
// that log cannot be written the result is returned along with the error.
func (e *Engine) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	mpath, alg, err := e.resolveManifest(req)
	if err != nil {
		return nil, err
	}

	entries, err := manifest.Load(mpath, alg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrManifestNotFound, mpath)
		}
		return nil, err
	}

	start := e.now()
	res := &VerifyResult{
		Manifest:  mpath,
		Algorithm: alg,
		Results:   make([]types.VerificationResult, 0, len(entries)),
	}

	dir := filepath.Dir(mpath)
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := e.verifyEntry(ctx, alg, dir, entry)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch r.Outcome {
		case types.OutcomeOK:
			res.OK++
		case types.OutcomeMismatch:
			res.Mismatch++
		case types.OutcomeMissing:
			res.Missing++
		}
		res.Results = append(res.Results, r)

		e.progress(types.Progress{
			Done:        i + 1,
			Total:       len(entries),
			CurrentPath: entry.Path,
			Elapsed:     e.now().Sub(start),
		})
	}

	res.Passed = res.Mismatch == 0 && res.Missing == 0
	res.Duration = e.now().Sub(start)

	logger.Info("manifest verified",
		"manifest", mpath,
		"entries", len(entries),
		"mismatch", res.Mismatch,
		"missing", res.Missing,
	)

	if res.Passed {
		return res, nil
	}

	logPath, err := e.writeErrorLog(mpath, res.Failures())
	if err != nil {
		return res, err
	}
	res.ErrorLog = logPath
	return res, nil
}

func (e *Engine) verifyEntry(ctx context.Context, alg types.Algorithm, dir string, entry types.Entry) types.VerificationResult {
	r := types.VerificationResult{
		Path:     entry.Path,
		Expected: entry.Digest,
	}

	actual, err := e.hasher.Hash(ctx, alg, manifest.Resolve(dir, entry.Path))
	switch {
	case err != nil:
		logger.Debug("entry unreadable", "path", entry.Path, "error", err)
		r.Outcome = types.OutcomeMissing
	case strings.EqualFold(actual, entry.Digest):
		r.Outcome = types.OutcomeOK
		r.Actual = actual
	default:
		r.Outcome = types.OutcomeMismatch
		r.Actual = actual
	}
	return r
}

// resolveManifest maps a verify target to its manifest and algorithm.
func (e *Engine) resolveManifest(req VerifyRequest) (string, types.Algorithm, error) {
	target, err := filepath.Abs(req.Target)
	if err != nil {
		return "", types.AlgorithmUnknown, fmt.Errorf("resolve %s: %w", req.Target, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", types.AlgorithmUnknown, fmt.Errorf("%w: %s", types.ErrNotFound, req.Target)
		}
		return "", types.AlgorithmUnknown, err
	}

	if !info.IsDir() {
		alg, err := types.AlgorithmFromExtension(target)
		if err != nil {
			return "", types.AlgorithmUnknown, fmt.Errorf("%s: %w", req.Target, err)
		}
		return target, alg, nil
	}

	if !req.Algorithm.Valid() {
		return "", types.AlgorithmUnknown, fmt.Errorf("%w: algorithm required to verify directory %s",
			types.ErrUnsupportedAlgorithm, req.Target)
	}

	mpath := manifest.Path(target, req.Algorithm, true)
	found, err := exists(mpath)
	if err != nil {
		return "", types.AlgorithmUnknown, err
	}
	if !found {
		return "", types.AlgorithmUnknown, fmt.Errorf("%w: %s", types.ErrManifestNotFound, mpath)
	}
	return mpath, req.Algorithm, nil
}

// writeErrorLog writes one "<OUTCOME>  <path>" line per failure to a new
// file next to the manifest. An existing log is never overwritten; a
// numeric suffix is added instead.
func (e *Engine) writeErrorLog(mpath string, failures []types.VerificationResult) (string, error) {
	var b strings.Builder
	for _, f := range failures {
		b.WriteString(string(f.Outcome))
		b.WriteString(manifest.Separator)
		b.WriteString(f.Path)
		b.WriteByte('\n')
	}

	name := e.errorLogBaseName(mpath)
	dir := filepath.Dir(mpath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for attempt := 0; attempt < maxLogAttempts; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = stem + "." + strconv.Itoa(attempt) + ext
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: create error log: %w", types.ErrWriteFailed, err)
		}

		_, werr := f.WriteString(b.String())
		cerr := f.Close()
		if werr != nil || cerr != nil {
			return "", fmt.Errorf("%w: write error log %s: %w", types.ErrWriteFailed, path, errors.Join(werr, cerr))
		}

		logger.Info("error log written", "path", path, "failures", len(failures))
		return path, nil
	}

	return "", fmt.Errorf("%w: no free error log name for %s", types.ErrWriteFailed, mpath)
}

// errorLogPattern matches the names writeErrorLog can produce for mpath,
// at any timestamp and with or without a collision number.
func (e *Engine) errorLogPattern(mpath string) *regexp.Regexp {
	const manifestTag, tsTag = "\x00m\x00", "\x00t\x00"
	name := filepath.Base(fasttemplate.ExecuteString(e.errorLogName, "{", "}", map[string]interface{}{
		"manifest": manifestTag,
		"ts":       tsTag,
	}))
	if name == "." || name == string(filepath.Separator) {
		name = manifestTag + ".error.log"
	}
	ext := filepath.Ext(name)
	expr := regexp.QuoteMeta(strings.TrimSuffix(name, ext)) + `(?:\.\d+)?` + regexp.QuoteMeta(ext)
	expr = strings.ReplaceAll(expr, manifestTag, regexp.QuoteMeta(filepath.Base(mpath)))
	expr = strings.ReplaceAll(expr, tsTag, `\d+`)
	return regexp.MustCompile("^" + expr + "$")
}

// errorLogBaseName renders the configured pattern. The result is reduced
// to a base name so the log always lands next to the manifest.
func (e *Engine) errorLogBaseName(mpath string) string {
	name := fasttemplate.ExecuteString(e.errorLogName, "{", "}", map[string]interface{}{
		"manifest": filepath.Base(mpath),
		"ts":       strconv.FormatInt(e.now().Unix(), 10),
	})
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		name = filepath.Base(mpath) + ".error.log"
	}
	return name
}
