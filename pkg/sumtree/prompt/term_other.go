//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package prompt

// IsTerminal reports false where termios is unavailable, so the CLI falls
// back to flags.
func IsTerminal(fd uintptr) bool {
	return false
}
