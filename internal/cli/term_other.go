//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package cli

// IsTerminal always reports false; log output is left uncoloured.
func IsTerminal(fd uintptr) bool { return false }
