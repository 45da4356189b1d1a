package models

import "strings"

// Status is the outcome recorded for an item in a session log.
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusSkippedExisting  Status = "SKIPPED_EXISTING"
	StatusSkippedExtension Status = "SKIPPED_EXTENSION"
	StatusFound            Status = "FOUND"
	StatusFailedIntegrity  Status = "FAILED_INTEGRITY"
	StatusFailedNotFound   Status = "FAILED_NOT_FOUND"
	StatusFailedForbidden  Status = "FAILED_FORBIDDEN"
	StatusFailedTransfer   Status = "FAILED_TRANSFER"
	StatusFailedParse      Status = "FAILED_PARSE"
)

// AllStatuses lists every status in summary order.
var AllStatuses = []Status{
	StatusSuccess,
	StatusSkippedExisting,
	StatusSkippedExtension,
	StatusFound,
	StatusFailedIntegrity,
	StatusFailedNotFound,
	StatusFailedForbidden,
	StatusFailedTransfer,
	StatusFailedParse,
}

func (s Status) IsFailed() bool {
	return strings.HasPrefix(string(s), "FAILED_")
}

func (s Status) IsKnown() bool {
	for _, k := range AllStatuses {
		if k == s {
			return true
		}
	}
	return false
}
