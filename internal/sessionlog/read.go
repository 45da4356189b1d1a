package sessionlog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

const maxLineBytes = 1 << 20

// ReadLog parses a session log. Columns are located by header name, so
// logs with extra columns are accepted. Rows shorter than the header are
// kept with the missing fields empty.
func ReadLog(path string) ([]models.SessionLogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open session log: %v", common.ErrConfiguration, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%w: read session log %s: %v", common.ErrLocalIO, path, err)
		}
		return nil, fmt.Errorf("%w: session log %s is empty", common.ErrParse, path)
	}

	idx := make(map[string]int)
	for i, h := range strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t") {
		idx[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{"Status", "UUID", "Filename"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: session log %s has no %s column", common.ErrParse, path, required)
		}
	}

	var out []models.SessionLogRecord
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(fields) {
				return ""
			}
			v := strings.TrimSpace(fields[i])
			if v == notAvailable {
				return ""
			}
			return v
		}

		rec := models.SessionLogRecord{
			Status:           models.Status(get("Status")),
			ID:               get("UUID"),
			Filename:         get("Filename"),
			ExpectedChecksum: strings.ToLower(get("Expected_MD5")),
			ActualChecksum:   strings.ToLower(get("Actual_MD5")),
			Message:          get("Message"),
		}
		if ts, err := time.Parse(time.RFC3339Nano, get("Timestamp")); err == nil {
			rec.Timestamp = ts
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read session log %s: %v", common.ErrLocalIO, path, err)
	}
	return out, nil
}
