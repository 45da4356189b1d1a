// Package retry derives a reduced work set from a previous session log: the
// items whose last recorded outcome was a failure.
package retry

import (
	"fmt"

	"github.com/dmitrijs2005/gdcfetch/internal/manifest"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dmitrijs2005/gdcfetch/internal/sessionlog"
)

// StatePrefix marks entries produced from a session log.
const StatePrefix = "retry_"

// Dropped is a failed record that cannot be retried because it lacks an
// identifier, a filename or a checksum.
type Dropped struct {
	Record models.SessionLogRecord
	Reason string
}

type Result struct {
	Entries []models.ManifestEntry
	Dropped []Dropped
}

// FailedEntries reads logPath and returns one entry per key whose records
// include a FAILED_* status. When a key failed more than once, the last
// failure wins; its position is that of the first failure.
func FailedEntries(logPath string) (*Result, error) {
	records, err := sessionlog.ReadLog(logPath)
	if err != nil {
		return nil, err
	}
	return FromRecords(records), nil
}

// FromRecords reduces records to retryable entries.
func FromRecords(records []models.SessionLogRecord) *Result {
	res := &Result{}
	index := make(map[models.Key]int)

	for _, r := range records {
		if !r.Status.IsFailed() {
			continue
		}
		var reason string
		switch {
		case r.ID == "":
			reason = "no id"
		case r.Filename == "":
			reason = "no filename"
		case r.ExpectedChecksum == "":
			reason = "no checksum"
		default:
			if err := (models.Key{ID: r.ID, Filename: r.Filename}).Validate(); err != nil {
				reason = err.Error()
			}
		}
		if reason != "" {
			res.Dropped = append(res.Dropped, Dropped{Record: r, Reason: reason})
			continue
		}

		e := models.ManifestEntry{
			ID:               r.ID,
			Filename:         r.Filename,
			ExpectedChecksum: r.ExpectedChecksum,
			State:            StatePrefix + string(r.Status),
		}
		if i, ok := index[e.Key()]; ok {
			res.Entries[i] = e
			continue
		}
		index[e.Key()] = len(res.Entries)
		res.Entries = append(res.Entries, e)
	}
	return res
}

// WriteManifest writes the failed entries of logPath as a manifest at
// outPath and returns what was derived.
func WriteManifest(logPath, outPath string) (*Result, error) {
	res, err := FailedEntries(logPath)
	if err != nil {
		return nil, err
	}
	if err := manifest.WriteFile(outPath, res.Entries); err != nil {
		return nil, fmt.Errorf("write retry manifest: %w", err)
	}
	return res, nil
}
