//go:build !unix

package ledger

import "os"

// Without flock only the in-process mutex serialises appends.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
