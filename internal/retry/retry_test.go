package retry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/manifest"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dmitrijs2005/gdcfetch/internal/sessionlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, records []models.SessionLogRecord) string {
	t.Helper()
	l, err := sessionlog.Create(t.TempDir(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, l.Write(r))
	}
	require.NoError(t, l.Close())
	return l.Path()
}

func TestFailedEntries_OnlyFailedKeys(t *testing.T) {
	var records []models.SessionLogRecord
	failedStatuses := []models.Status{
		models.StatusFailedIntegrity, models.StatusFailedNotFound, models.StatusFailedForbidden,
		models.StatusFailedTransfer, models.StatusFailedTransfer,
	}
	okStatuses := []models.Status{models.StatusSuccess, models.StatusSkippedExisting, models.StatusSkippedExtension, models.StatusFound}

	want := map[models.Key]bool{}
	for i := 0; i < 100; i++ {
		r := models.SessionLogRecord{ID: fmt.Sprintf("U%03d", i), Filename: "f.bam", ExpectedChecksum: "abc"}
		if i%20 == 7 {
			r.Status = failedStatuses[i/20]
			want[r.Key()] = true
		} else {
			r.Status = okStatuses[i%len(okStatuses)]
		}
		records = append(records, r)
	}

	res, err := FailedEntries(writeLog(t, records))
	require.NoError(t, err)
	require.Len(t, res.Entries, 5)
	for _, e := range res.Entries {
		assert.True(t, want[e.Key()], e.Key())
		assert.Equal(t, "abc", e.ExpectedChecksum)
	}
	assert.Equal(t, "retry_FAILED_INTEGRITY", res.Entries[0].State)
	assert.Empty(t, res.Dropped)
}

func TestFromRecords_DropsUnidentifiableAndCollapsesDuplicates(t *testing.T) {
	res := FromRecords([]models.SessionLogRecord{
		{Status: models.StatusFailedParse, Message: "line 3: missing id"},
		{Status: models.StatusFailedParse, ID: "U9", Filename: "x"},
		{Status: models.StatusFailedTransfer, ID: "U1", Filename: "f", ExpectedChecksum: "a"},
		{Status: models.StatusFailedIntegrity, ID: "U2", Filename: "g", ExpectedChecksum: "b"},
		{Status: models.StatusFailedIntegrity, ID: "U1", Filename: "f", ExpectedChecksum: "a"},
		{Status: models.StatusFailedParse, ID: "U3", Filename: "h", ExpectedChecksum: "c"},
	})

	require.Len(t, res.Entries, 3)
	assert.Equal(t, models.ManifestEntry{ID: "U1", Filename: "f", ExpectedChecksum: "a", State: "retry_FAILED_INTEGRITY"}, res.Entries[0])
	assert.Equal(t, "U2", res.Entries[1].ID)
	assert.Equal(t, "retry_FAILED_PARSE", res.Entries[2].State, "parse failures with full identity are retried")

	require.Len(t, res.Dropped, 2)
	assert.Equal(t, "no id", res.Dropped[0].Reason)
	assert.Equal(t, "no checksum", res.Dropped[1].Reason)
}

func TestFromRecords_DropsKeysThatWouldEscapeDataDir(t *testing.T) {
	res := FromRecords([]models.SessionLogRecord{
		{Status: models.StatusFailedParse, ID: "..", Filename: "passwd", ExpectedChecksum: "a", Message: "line 2: invalid id"},
		{Status: models.StatusFailedParse, ID: "U1", Filename: "a|b.txt", ExpectedChecksum: "b"},
		{Status: models.StatusFailedParse, ID: "U2", Filename: "../../x", ExpectedChecksum: "c"},
		{Status: models.StatusFailedTransfer, ID: "U3", Filename: "ok.txt", ExpectedChecksum: "d"},
	})

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "U3", res.Entries[0].ID)

	require.Len(t, res.Dropped, 3)
	assert.Contains(t, res.Dropped[0].Reason, `invalid id ".."`)
	assert.Contains(t, res.Dropped[1].Reason, "invalid filename")
	assert.Contains(t, res.Dropped[2].Reason, "invalid filename")
}

func TestWriteManifest(t *testing.T) {
	logPath := writeLog(t, []models.SessionLogRecord{
		{Status: models.StatusSuccess, ID: "U0", Filename: "ok", ExpectedChecksum: "000"},
		{Status: models.StatusFailedNotFound, ID: "U1", Filename: "f.txt", ExpectedChecksum: "abc123"},
	})
	out := filepath.Join(t.TempDir(), "retry_manifest.tsv")

	res, err := WriteManifest(logPath, out)
	require.NoError(t, err)
	assert.Len(t, res.Entries, 1)

	m, err := manifest.Load(out)
	require.NoError(t, err)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "U1", m.Entries[0].ID)
	assert.Equal(t, "retry_FAILED_NOT_FOUND", m.Entries[0].State)
}

func TestFailedEntries_MissingLog(t *testing.T) {
	_, err := FailedEntries(filepath.Join(t.TempDir(), "nope.tsv"))
	assert.Error(t, err)
}
