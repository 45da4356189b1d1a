// Package sessionlog writes the per-run session log: one TSV record per
// processed item, in processing order.
package sessionlog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

var ErrClosed = errors.New("session log is closed")

// Columns of the session log header.
var Columns = []string{"Timestamp", "Status", "UUID", "Filename", "Expected_MD5", "Actual_MD5", "Message"}

const (
	filePrefix      = "download_log_"
	fileSuffix      = ".tsv"
	timestampLayout = "20060102_150405"
	notAvailable    = "N/A"
	maxCollisions   = 100
)

// Logger is a single-writer session log safe for concurrent callers.
type Logger struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	path   string
	counts map[models.Status]int
	failed []models.SessionLogRecord
	closed bool
	now    func() time.Time
}

// Create opens a new log named after startedAt in dir. An existing log is
// never reopened; a numeric suffix is added on a same-second collision.
func Create(dir string, startedAt time.Time) (*Logger, error) {
	stamp := startedAt.Format(timestampLayout)

	var f *os.File
	var path string
	for i := 0; i < maxCollisions; i++ {
		name := filePrefix + stamp + fileSuffix
		if i > 0 {
			name = fmt.Sprintf("%s%s_%d%s", filePrefix, stamp, i, fileSuffix)
		}
		path = filepath.Join(dir, name)

		var err error
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: create session log %s: %v", common.ErrLocalIO, path, err)
		}
		f = nil
	}
	if f == nil {
		return nil, fmt.Errorf("%w: no free session log name for %s in %s", common.ErrLocalIO, stamp, dir)
	}

	l := &Logger{
		f:      f,
		w:      bufio.NewWriter(f),
		path:   path,
		counts: make(map[models.Status]int),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := l.writeLine(strings.Join(Columns, "\t")); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

func (l *Logger) Path() string { return l.path }

// Write appends one record and flushes it. A zero Timestamp is set to now.
func (l *Logger) Write(rec models.SessionLogRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}

	if err := l.writeLine(formatRecord(rec)); err != nil {
		return err
	}
	l.counts[rec.Status]++
	if rec.Status.IsFailed() {
		l.failed = append(l.failed, rec)
	}
	return nil
}

// Summary returns the number of records per status.
func (l *Logger) Summary() map[models.Status]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[models.Status]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Failed returns the FAILED_* records written so far, in order.
func (l *Logger) Failed() []models.SessionLogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.SessionLogRecord(nil), l.failed...)
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.w.Flush(); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("%w: flush session log: %v", common.ErrLocalIO, err)
	}
	if err := l.f.Sync(); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("%w: sync session log: %v", common.ErrLocalIO, err)
	}
	return l.f.Close()
}

// writeLine writes one line and flushes; callers hold mu or own l exclusively.
func (l *Logger) writeLine(line string) error {
	if _, err := l.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: write session log: %v", common.ErrLocalIO, err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush session log: %v", common.ErrLocalIO, err)
	}
	return nil
}

func formatRecord(rec models.SessionLogRecord) string {
	fields := []string{
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		string(rec.Status),
		rec.ID,
		rec.Filename,
		orNA(rec.ExpectedChecksum),
		orNA(rec.ActualChecksum),
		rec.Message,
	}
	for i := range fields {
		fields[i] = sanitize(fields[i])
	}
	return strings.Join(fields, "\t")
}

var sanitizer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func sanitize(s string) string {
	return sanitizer.Replace(s)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
