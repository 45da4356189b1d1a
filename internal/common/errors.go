// Package common defines the sentinel errors and shared constants used across
// the gdcfetch pipeline. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Per-row manifest problems; recovered and logged, never fatal.
	ErrParse = errors.New("parse error")

	// Remote store errors. NotFound and Forbidden are permanent for the run,
	// Transient is retried with backoff and becomes permanent once exhausted.
	ErrRemoteNotFound  = errors.New("remote object not found")
	ErrRemoteForbidden = errors.New("remote object forbidden")
	ErrRemoteTransient = errors.New("transient remote error")

	// Checksum of the local copy differs from the manifest.
	ErrIntegrityMismatch = errors.New("integrity mismatch")

	// Fatal run errors.
	ErrLocalIO       = errors.New("local io error")
	ErrLedgerIO      = errors.New("ledger io error")
	ErrConfiguration = errors.New("configuration error")

	ErrInvalidManifest = errors.New("invalid manifest")
)
