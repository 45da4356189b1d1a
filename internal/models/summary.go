package models

import "time"

// SessionLogRecord is one row of a session log.
type SessionLogRecord struct {
	Timestamp        time.Time
	Status           Status
	ID               string
	Filename         string
	ExpectedChecksum string
	ActualChecksum   string
	Message          string
}

func (r SessionLogRecord) Key() Key {
	return Key{ID: r.ID, Filename: r.Filename}
}

// RunSummary aggregates the outcome of one run.
type RunSummary struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time
	Counts           map[Status]int
	BytesTransferred int64
	SessionLog       string
	FailedItems      string
	RetryCommand     string
	Interrupted      bool
}

func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		StartedAt: startedAt,
		Counts:    make(map[Status]int),
	}
}

// Failed is the number of FAILED_* outcomes.
func (s *RunSummary) Failed() int {
	n := 0
	for st, c := range s.Counts {
		if st.IsFailed() {
			n += c
		}
	}
	return n
}

// Total is the number of items that reached a recorded outcome.
func (s *RunSummary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}
