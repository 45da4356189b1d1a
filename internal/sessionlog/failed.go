package sessionlog

import (
	"strings"

	"github.com/dmitrijs2005/gdcfetch/internal/filex"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
)

// WriteFailedItems replaces the failed-items file with one
// id|filename|checksum|status|message line per record.
func WriteFailedItems(path string, records []models.SessionLogRecord) error {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(strings.Join([]string{
			sanitize(r.ID),
			sanitize(r.Filename),
			sanitize(r.ExpectedChecksum),
			string(r.Status),
			sanitize(r.Message),
		}, "|"))
		b.WriteByte('\n')
	}
	return filex.WriteAtomic(path, []byte(b.String()))
}
