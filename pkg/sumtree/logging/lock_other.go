//go:build !unix

package logging

import "os"

// Other platforms rely on the in-process mutex only.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
