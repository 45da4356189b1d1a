// Package transfer streams remote objects to local files. A destination path
// only ever holds a complete download: data lands in a temporary file in the
// same directory and is renamed into place after it has been synced.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dmitrijs2005/gdcfetch/internal/progress"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
)

type Result struct {
	Bytes    int64
	Elapsed  time.Duration
	Attempts int
}

type Transferer struct {
	store    remote.ObjectStore
	policy   remote.Policy
	reporter progress.Reporter
}

// New returns a Transferer. reporter may be nil.
func New(store remote.ObjectStore, policy remote.Policy, reporter progress.Reporter) *Transferer {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Transferer{store: store, policy: policy, reporter: reporter}
}

// Transfer downloads e into destPath, retrying transient failures. Errors
// wrapping common.ErrLocalIO mean the local filesystem failed; remote
// failures are classified as in package remote.
func (t *Transferer) Transfer(ctx context.Context, e models.ManifestEntry, destPath string) (Result, error) {
	start := time.Now()
	var written int64

	attempts, err := t.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		n, err := t.attempt(ctx, e, destPath)
		written = n
		return err
	})
	res := Result{Bytes: written, Elapsed: time.Since(start), Attempts: attempts}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, err
	}
	return res, nil
}

func (t *Transferer) attempt(ctx context.Context, e models.ManifestEntry, destPath string) (n int64, err error) {
	key := e.ObjectKey()

	body, info, err := t.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	expected := info.Size
	if expected < 0 && e.Size != nil {
		expected = int64(*e.Size)
	}

	dir, base := filepath.Split(destPath)
	tmp, err := os.CreateTemp(dir, "."+base+".part-*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file in %s: %v", common.ErrLocalIO, dir, err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	t.reporter.Start(key, expected)
	defer t.reporter.Done(key)

	w := &localWriter{f: tmp, onWrite: func(k int) { t.reporter.Add(key, int64(k)) }}
	n, err = io.Copy(w, body)
	if err != nil {
		if w.err != nil {
			return n, w.err
		}
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		var re *remote.Error
		if errors.As(err, &re) {
			return n, err
		}
		return n, remote.NewError("read_object", t.store.Bucket(), key, remote.KindForNetwork(err), err)
	}
	if expected >= 0 && n != expected {
		return n, remote.NewError("read_object", t.store.Bucket(), key, remote.ErrTransient,
			fmt.Errorf("size mismatch: received %d of %d bytes", n, expected))
	}

	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("%w: sync %s: %v", common.ErrLocalIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: close %s: %v", common.ErrLocalIO, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return n, fmt.Errorf("%w: chmod %s: %v", common.ErrLocalIO, tmpPath, err)
	}
	if ctx.Err() != nil {
		return n, ctx.Err()
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return n, fmt.Errorf("%w: rename into %s: %v", common.ErrLocalIO, destPath, err)
	}
	renamed = true
	return n, nil
}

// localWriter keeps write-side failures apart from read-side ones.
type localWriter struct {
	f       *os.File
	onWrite func(int)
	err     error
}

func (w *localWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if n > 0 {
		w.onWrite(n)
	}
	if err != nil {
		w.err = fmt.Errorf("%w: write %s: %v", common.ErrLocalIO, w.f.Name(), err)
		return n, w.err
	}
	return n, nil
}
