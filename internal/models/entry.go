// Package models defines the domain types shared by the fetch pipeline.
package models

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// unsafeKeyChars cannot appear in an id or filename: path separators would
// escape data/<id>/, and the rest break the ledger and session log formats.
const unsafeKeyChars = "/\\|\t\r\n"

// Key identifies one transfer unit. Two manifest rows with the same key
// describe the same file.
type Key struct {
	ID       string
	Filename string
}

func (k Key) String() string {
	return k.ID + "/" + k.Filename
}

// Validate reports whether k can be stored under data/<id>/<filename> and
// recorded in the ledger.
func (k Key) Validate() error {
	if err := validPart(k.ID); err != nil {
		return fmt.Errorf("invalid id %q: %w", k.ID, err)
	}
	if err := validPart(k.Filename); err != nil {
		return fmt.Errorf("invalid filename %q: %w", k.Filename, err)
	}
	return nil
}

var (
	errEmptyKeyPart  = errors.New("empty")
	errDotKeyPart    = errors.New("relative path element")
	errUnsafeKeyPart = errors.New("contains a path separator, pipe or control character")
	errPaddedKeyPart = errors.New("leading or trailing whitespace")
)

func validPart(s string) error {
	switch {
	case s == "":
		return errEmptyKeyPart
	case s == "." || s == "..":
		return errDotKeyPart
	case strings.ContainsAny(s, unsafeKeyChars):
		return errUnsafeKeyPart
	case strings.TrimSpace(s) != s:
		return errPaddedKeyPart
	}
	return nil
}

// ManifestEntry is one row of an input manifest.
type ManifestEntry struct {
	ID       string
	Filename string
	// ExpectedChecksum is the lower-case hex MD5 of the remote object.
	ExpectedChecksum string
	// Size is the declared byte size, nil when the manifest has none.
	Size *uint64
	// State is carried through from the manifest and ignored by the pipeline.
	State string
	// Line is the 1-based row in the source file (header is line 1).
	Line int
}

func (e ManifestEntry) Key() Key {
	return Key{ID: e.ID, Filename: e.Filename}
}

// ObjectKey is the remote key under which the object is stored.
func (e ManifestEntry) ObjectKey() string {
	return e.ID + "/" + e.Filename
}

// Extension returns the lower-cased extension without the leading dot.
func (e ManifestEntry) Extension() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(e.Filename)), ".")
}

// LedgerRecord marks a unit as verified complete.
type LedgerRecord struct {
	ID       string
	Filename string
	Checksum string
}

func (r LedgerRecord) Key() Key {
	return Key{ID: r.ID, Filename: r.Filename}
}
