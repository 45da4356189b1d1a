// Package verify checks downloaded files against their expected MD5.
package verify

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

// Mode selects how strictly existing files are checked.
type Mode int

const (
	// Standard always hashes the local file.
	Standard Mode = iota
	// FastTrust accepts a file without hashing when the ledger already holds
	// a matching record and the file is non-empty. It cannot detect silent
	// local corruption.
	FastTrust
)

func (m Mode) String() string {
	if m == FastTrust {
		return "fast-trust"
	}
	return "standard"
}

// ModeFor maps the fast-resume toggle onto a Mode.
func ModeFor(fastResume bool) Mode {
	if fastResume {
		return FastTrust
	}
	return Standard
}

type Result struct {
	Match  bool
	Actual string
}

// Checksum streams the file through MD5 and returns lower-case hex.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", common.ErrLocalIO, path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", common.ErrLocalIO, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify hashes path and compares it case-insensitively with expected.
// A mismatch is not an error; the file is left untouched either way.
func Verify(path, expected string) (Result, error) {
	actual, err := Checksum(path)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Match:  strings.EqualFold(actual, strings.TrimSpace(expected)),
		Actual: actual,
	}, nil
}

// Ledger is the lookup side of the completion ledger.
type Ledger interface {
	Lookup(id, filename string) (models.LedgerRecord, bool)
}

// Trusted reports whether a fast-trust skip is allowed for e at path.
func Trusted(l Ledger, e models.ManifestEntry, path string) bool {
	rec, ok := l.Lookup(e.ID, e.Filename)
	if !ok || !strings.EqualFold(rec.Checksum, e.ExpectedChecksum) {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}
