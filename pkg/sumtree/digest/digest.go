// Package digest computes lowercase hex content digests of files.
package digest

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is a supported manifest format, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const bufferSize = 64 * 1024

// Hasher computes file digests for a single algorithm.
type Hasher interface {
	// Algorithm returns the algorithm the hasher implements.
	Algorithm() types.Algorithm

	// HashFile returns the lowercase hex digest of the file at path.
	HashFile(ctx context.Context, path string) (string, error)
}

// FileHasher streams files through a hash.Hash.
type FileHasher struct {
	alg     types.Algorithm
	newHash func() hash.Hash
}

// New returns a FileHasher for alg.
func New(alg types.Algorithm) (*FileHasher, error) {
	switch alg {
	case types.MD5:
		return &FileHasher{alg: alg, newHash: md5.New}, nil
	case types.SHA256:
		return &FileHasher{alg: alg, newHash: sha256.New}, nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedAlgorithm, alg)
	}
}

// Algorithm returns the algorithm the hasher implements.
func (h *FileHasher) Algorithm() types.Algorithm {
	return h.alg
}

// HashFile returns the lowercase hex digest of the file at path.
func (h *FileHasher) HashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum, err := h.HashReader(ctx, f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, nil
}

// HashReader returns the lowercase hex digest of everything read from r.
// The context is checked between buffer reads.
func (h *FileHasher) HashReader(ctx context.Context, r io.Reader) (string, error) {
	hh := h.newHash()
	buf := make([]byte, bufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := r.Read(buf)
		if n > 0 {
			hh.Write(buf[:n]) // hash.Hash writes never fail
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}

	return hex.EncodeToString(hh.Sum(nil)), nil
}

// Files hashes each file with the algorithm named in the call. It is the
// hasher the engine uses outside of tests.
type Files struct{}

// Hash returns the lowercase hex digest of the file at path.
func (Files) Hash(ctx context.Context, alg types.Algorithm, path string) (string, error) {
	h, err := New(alg)
	if err != nil {
		return "", err
	}
	return h.HashFile(ctx, path)
}

// Ensure FileHasher implements Hasher.
var _ Hasher = (*FileHasher)(nil)
