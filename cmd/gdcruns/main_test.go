package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/filex"
	"github.com/dmitrijs2005/gdcfetch/internal/history"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ListsRuns(t *testing.T) {
	root := t.TempDir()
	layout, err := filex.NewLayout(root)
	require.NoError(t, err)
	require.NoError(t, layout.Prepare())

	ctx := context.Background()
	store, err := history.Open(ctx, layout.HistoryPath())
	require.NoError(t, err)

	started := time.Now().Add(-time.Minute)
	require.NoError(t, store.Start(ctx, history.RunRecord{
		RunID: "run-1", StartedAt: started, Mode: "standard", Input: "m.tsv", SessionLog: "log.tsv",
	}))
	sum := models.NewRunSummary("run-1", started)
	sum.FinishedAt = started.Add(42 * time.Second)
	sum.BytesTransferred = 2048
	sum.Counts[models.StatusSuccess] = 5
	sum.Counts[models.StatusFailedForbidden] = 2
	require.NoError(t, store.Finish(ctx, sum))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	code := run(ctx, []string{"-o", root}, &out, io.Discard)
	require.Equal(t, 0, code)

	assert.Contains(t, out.String(), "RUN ID")
	assert.Contains(t, out.String(), "run-1")
	assert.Contains(t, out.String(), "42s")
	assert.Contains(t, out.String(), "2.0 KiB")
	assert.Regexp(t, `standard\s+5\s+2\s`, out.String())
}

func TestRun_NoHistory(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-o", filepath.Join(t.TempDir(), "empty")}, io.Discard, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no run history")
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"-version"}, &out, io.Discard))
	assert.Contains(t, out.String(), "Build version:")
}
