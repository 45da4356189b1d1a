// Package ledger implements the durable completion ledger: an append-only
// file of id|filename|checksum lines, one per verified unit.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

var ErrClosed = errors.New("ledger is closed")

// Ledger is safe for concurrent use. Several processes may share one file;
// appends are serialised with an advisory file lock.
type Ledger struct {
	mu        sync.Mutex
	path      string
	f         *os.File
	records   map[models.Key]models.LedgerRecord
	offset    int64
	malformed int
	closed    bool
}

// Open opens (creating if needed) the ledger file and loads its records.
// Malformed lines are skipped and counted.
func Open(path string) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrLedgerIO, path, err)
	}

	l := &Ledger{
		path:    path,
		f:       f,
		records: make(map[models.Key]models.LedgerRecord),
	}
	if err := l.scan(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Contains(id, filename string) bool {
	_, ok := l.Lookup(id, filename)
	return ok
}

func (l *Ledger) Lookup(id, filename string) (models.LedgerRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[models.Key{ID: id, Filename: filename}]
	return r, ok
}

// Len is the number of distinct units recorded.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Malformed is the number of lines skipped while reading.
func (l *Ledger) Malformed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.malformed
}

// Record appends a completion record unless the key is already present,
// including records appended by other processes since the last read.
func (l *Ledger) Record(id, filename, checksum string) error {
	rec := models.LedgerRecord{ID: id, Filename: filename, Checksum: strings.ToLower(checksum)}
	if !validField(rec.ID) || !validField(rec.Filename) || !validField(rec.Checksum) {
		return fmt.Errorf("%w: unrecordable entry %q|%q|%q", common.ErrLedgerIO, id, filename, checksum)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, ok := l.records[rec.Key()]; ok {
		return nil
	}

	if err := lockFile(l.f); err != nil {
		return fmt.Errorf("%w: lock %s: %v", common.ErrLedgerIO, l.path, err)
	}
	defer func() { _ = unlockFile(l.f) }()

	if err := l.scan(); err != nil {
		return err
	}
	if _, ok := l.records[rec.Key()]; ok {
		return nil
	}

	line := rec.ID + "|" + rec.Filename + "|" + rec.Checksum + "\n"
	if needsNewline, err := l.endsMidLine(); err != nil {
		return err
	} else if needsNewline {
		line = "\n" + line
	}

	if _, err := l.f.Write([]byte(line)); err != nil {
		return fmt.Errorf("%w: append %s: %v", common.ErrLedgerIO, l.path, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", common.ErrLedgerIO, l.path, err)
	}

	// offset is left behind the new line; the next scan re-reads it as a
	// duplicate, along with any partial line it terminated.
	l.records[rec.Key()] = rec
	return nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

// scan reads complete lines past l.offset. A trailing line without a newline
// is left for a later scan.
func (l *Ledger) scan() error {
	fi, err := l.f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", common.ErrLedgerIO, l.path, err)
	}
	if fi.Size() <= l.offset {
		return nil
	}

	r := bufio.NewReader(io.NewSectionReader(l.f, l.offset, fi.Size()-l.offset))
	for {
		line, err := r.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read %s: %v", common.ErrLedgerIO, l.path, err)
		}
		l.offset += int64(len(line))

		rec, ok := parseLine(line)
		switch {
		case ok:
			if _, dup := l.records[rec.Key()]; !dup {
				l.records[rec.Key()] = rec
			}
		case strings.TrimSpace(line) != "":
			l.malformed++
		}
	}
}

func (l *Ledger) endsMidLine() (bool, error) {
	fi, err := l.f.Stat()
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", common.ErrLedgerIO, l.path, err)
	}
	if fi.Size() == 0 {
		return false, nil
	}
	b := make([]byte, 1)
	if _, err := l.f.ReadAt(b, fi.Size()-1); err != nil {
		return false, fmt.Errorf("%w: read %s: %v", common.ErrLedgerIO, l.path, err)
	}
	return b[0] != '\n', nil
}

func parseLine(line string) (models.LedgerRecord, bool) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), "|")
	if len(parts) != 3 {
		return models.LedgerRecord{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return models.LedgerRecord{}, false
		}
	}
	return models.LedgerRecord{ID: parts[0], Filename: parts[1], Checksum: strings.ToLower(parts[2])}, true
}

func validField(s string) bool {
	return s != "" && strings.TrimSpace(s) == s && !strings.ContainsAny(s, "|\r\n")
}
