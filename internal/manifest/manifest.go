// Package manifest reads and writes the tab-separated manifests that list
// the files to fetch.
package manifest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/filex"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

// Accepted header spellings, matched case-insensitively.
var (
	idColumns       = []string{"id", "uuid", "file_id"}
	filenameColumns = []string{"filename", "file_name"}
	checksumColumns = []string{"md5", "md5sum"}
	sizeColumns     = []string{"size", "file_size"}
	stateColumns    = []string{"state"}
)

// Header is the canonical header written by Write.
var Header = []string{"id", "filename", "md5", "size", "state"}

// ParseFailure describes a row that could not become an entry. ID,
// Filename and Checksum hold whatever could be salvaged from the row.
type ParseFailure struct {
	Line     int
	Fields   []string
	Reason   string
	ID       string
	Filename string
	Checksum string
}

// Result is a parsed manifest.
type Result struct {
	Entries  []models.ManifestEntry
	Failures []ParseFailure
}

type columns struct {
	id, filename, checksum, size, state int
}

// Load parses the manifest at path.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open manifest: %v", common.ErrInvalidManifest, err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse reads a manifest from r. A missing required column is fatal; bad
// rows are collected in Result.Failures and parsing continues.
func Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty manifest", common.ErrInvalidManifest)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", common.ErrInvalidManifest, err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidManifest, err)
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}

		entry, reason := cols.entry(rec)
		if reason != "" {
			res.Failures = append(res.Failures, ParseFailure{
				Line:     line,
				Fields:   rec,
				Reason:   reason,
				ID:       entry.ID,
				Filename: entry.Filename,
				Checksum: entry.ExpectedChecksum,
			})
			continue
		}
		entry.Line = line
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

func locateColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i
			}
		}
		return -1
	}

	c := columns{
		id:       find(idColumns),
		filename: find(filenameColumns),
		checksum: find(checksumColumns),
		size:     find(sizeColumns),
		state:    find(stateColumns),
	}

	var missing []string
	if c.id < 0 {
		missing = append(missing, strings.Join(idColumns, "|"))
	}
	if c.filename < 0 {
		missing = append(missing, strings.Join(filenameColumns, "|"))
	}
	if c.checksum < 0 {
		missing = append(missing, strings.Join(checksumColumns, "|"))
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: missing required column(s): %s", common.ErrInvalidManifest, strings.Join(missing, ", "))
	}
	return c, nil
}

func (c columns) entry(rec []string) (models.ManifestEntry, string) {
	get := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	e := models.ManifestEntry{
		ID:               get(c.id),
		Filename:         get(c.filename),
		ExpectedChecksum: strings.ToLower(get(c.checksum)),
		State:            get(c.state),
	}

	switch {
	case e.ID == "":
		return e, "missing id"
	case e.Filename == "":
		return e, "missing filename"
	case e.ExpectedChecksum == "":
		return e, "missing md5"
	}
	if err := e.Key().Validate(); err != nil {
		return e, err.Error()
	}

	if raw := get(c.size); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return e, fmt.Sprintf("invalid size %q", raw)
		}
		e.Size = &n
	}
	return e, ""
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Write emits entries as a manifest with the canonical header.
func Write(w io.Writer, entries []models.ManifestEntry) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		size := ""
		if e.Size != nil {
			size = strconv.FormatUint(*e.Size, 10)
		}
		if err := cw.Write([]string{e.ID, e.Filename, e.ExpectedChecksum, size, e.State}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes a manifest to path atomically.
func WriteFile(path string, entries []models.ManifestEntry) error {
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return filex.WriteAtomic(path, buf.Bytes())
}
