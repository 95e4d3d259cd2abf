//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package persist

import "os"

// No advisory locking on this platform.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
