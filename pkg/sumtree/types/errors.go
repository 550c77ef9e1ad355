package types

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the engine wraps them with the offending path.
var (
	// ErrNotFound indicates the target file or directory does not exist.
	ErrNotFound = errors.New("not found")

	// ErrManifestNotFound indicates the manifest to verify does not exist.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrSourceNotFound indicates the foreign manifest to import does not exist.
	ErrSourceNotFound = errors.New("source manifest not found")

	// ErrUnsupportedAlgorithm indicates an unknown or unset algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrUnsupportedExtension indicates the algorithm cannot be inferred
	// from a manifest's extension.
	ErrUnsupportedExtension = errors.New("unsupported manifest extension")

	// ErrInvalidExtension indicates an import source without a .md5 or
	// .sha256 extension.
	ErrInvalidExtension = errors.New("invalid extension")

	// ErrManifestExists indicates a manifest already exists and the chosen
	// mode does not allow replacing it.
	ErrManifestExists = errors.New("manifest already exists")

	// ErrFileManifestExists is ErrManifestExists for a single-file target,
	// which can only be overwritten.
	ErrFileManifestExists = fmt.Errorf("%w next to file", ErrManifestExists)

	// ErrManifestInvalid indicates a manifest line could not be parsed.
	ErrManifestInvalid = errors.New("invalid manifest")

	// ErrBackupExists indicates an import backup is already present.
	ErrBackupExists = errors.New("backup already exists")

	// ErrWriteFailed indicates the manifest, backup or error log could not
	// be written.
	ErrWriteFailed = errors.New("write failed")

	// ErrUserDeclined indicates a destructive operation was not confirmed.
	ErrUserDeclined = errors.New("operation declined")
)
