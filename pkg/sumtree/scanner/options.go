// Package scanner lists the regular files under a directory tree in a
// deterministic order. Directory reading is parallelised with fastwalk;
// the resulting list is sorted by forward-slash relative path so repeated
// runs over an unchanged tree produce identical manifests.
package scanner

import "runtime"

// DefaultWorkers is the fastwalk worker count used when Options.Workers is unset.
var DefaultWorkers = min(runtime.NumCPU(), 8)

// Options configures the scanner behavior.
type Options struct {
	// Exclude contains doublestar patterns matched against the slash-separated
	// path relative to the scan root and against the base name. A pattern
	// ending in "/" excludes a whole directory subtree.
	Exclude []string

	// FollowSymlinks makes the walk descend into symlinked directories and
	// include symlinked regular files.
	FollowSymlinks bool

	// Workers is the number of concurrent directory readers.
	Workers int
}

// Validate applies defaults for unset values and checks exclude patterns.
func (o *Options) Validate() error {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	return validatePatterns(o.Exclude)
}
