// Package orchestrator drives every work item through the fetch state
// machine: local check, existence probe, transfer, verification, and the
// ledger and session-log bookkeeping that makes re-runs resumable.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/filex"
	"github.com/dmitrijs2005/gdcfetch/internal/logging"
	"github.com/dmitrijs2005/gdcfetch/internal/manifest"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dmitrijs2005/gdcfetch/internal/precheck"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
	"github.com/dmitrijs2005/gdcfetch/internal/transfer"
	"github.com/dmitrijs2005/gdcfetch/internal/verify"
	"golang.org/x/sync/errgroup"
)

type Ledger interface {
	Lookup(id, filename string) (models.LedgerRecord, bool)
	Record(id, filename, checksum string) error
}

type SessionLog interface {
	Write(rec models.SessionLogRecord) error
}

type Prober interface {
	Check(ctx context.Context, e models.ManifestEntry) (precheck.Result, error)
}

type Fetcher interface {
	Transfer(ctx context.Context, e models.ManifestEntry, destPath string) (transfer.Result, error)
}

// Options are the behaviour toggles of a run.
type Options struct {
	SkipExisting bool
	Precheck     bool
	CheckOnly    bool
	Mode         verify.Mode
	Workers      int
	Filter       manifest.ExtensionFilter
}

// Deps are the collaborators of a run.
type Deps struct {
	Layout  filex.Layout
	Ledger  Ledger
	Log     SessionLog
	Prober  Prober
	Fetcher Fetcher
	Logger  logging.Logger
}

// Work is the input of a run: entries to process plus manifest rows that
// failed to parse, which are only logged.
type Work struct {
	Entries       []models.ManifestEntry
	ParseFailures []manifest.ParseFailure
}

// Outcome reports what Run observed beyond the session log.
type Outcome struct {
	BytesTransferred int64
	// Abandoned counts items left PENDING because the run was interrupted.
	Abandoned   int
	Interrupted bool
}

type Orchestrator struct {
	opts  Options
	deps  Deps
	locks *keyLocks

	bytes     atomic.Int64
	abandoned atomic.Int64
}

func New(opts Options, deps Deps) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Orchestrator{opts: opts, deps: deps, locks: newKeyLocks()}
}

// Run processes work. Per-item failures are recorded in the session log and
// do not stop the run; the returned error is non-nil only for failures that
// make further progress impossible (local IO, ledger, session log).
// Cancelling ctx abandons in-flight items without recording them.
func (o *Orchestrator) Run(ctx context.Context, work Work) (Outcome, error) {
	for _, pf := range work.ParseFailures {
		if err := o.write(models.SessionLogRecord{
			Status:           models.StatusFailedParse,
			ID:               pf.ID,
			Filename:         pf.Filename,
			ExpectedChecksum: pf.Checksum,
			Message:          fmt.Sprintf("line %d: %s", pf.Line, pf.Reason),
		}); err != nil {
			return o.outcome(ctx), err
		}
		o.deps.Logger.Warn(ctx, "manifest row skipped", "line", pf.Line, "reason", pf.Reason)
	}

	kept, rejected := o.opts.Filter.Split(work.Entries)
	for _, e := range rejected {
		if err := o.write(entryRecord(e, models.StatusSkippedExtension, "",
			fmt.Sprintf("extension %q not in allow-list %v", e.Extension(), o.opts.Filter.Extensions()))); err != nil {
			return o.outcome(ctx), err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	for i, e := range kept {
		if gctx.Err() != nil {
			o.abandoned.Add(int64(len(kept) - i))
			break
		}
		e := e
		g.Go(func() error {
			return o.process(gctx, e)
		})
	}

	err := g.Wait()
	return o.outcome(ctx), err
}

func (o *Orchestrator) outcome(ctx context.Context) Outcome {
	return Outcome{
		BytesTransferred: o.bytes.Load(),
		Abandoned:        int(o.abandoned.Load()),
		Interrupted:      ctx.Err() != nil,
	}
}

// process runs one entry to a terminal state. It returns an error only when
// the whole run must stop.
func (o *Orchestrator) process(ctx context.Context, e models.ManifestEntry) error {
	unlock := o.locks.lock(e.Key())
	defer unlock()

	it := models.NewItem(e)
	log := o.deps.Logger.With("id", e.ID, "filename", e.Filename)

	if ctx.Err() != nil {
		return o.abandon()
	}

	// Entries can arrive from a retry log or a caller that skipped manifest
	// parsing; nothing unsafe may reach the layout or the ledger.
	if err := e.Key().Validate(); err != nil {
		log.Error(ctx, "rejected entry", "error", err)
		return o.write(entryRecord(e, models.StatusFailedParse, "", err.Error()))
	}
	dest := o.deps.Layout.ItemPath(e.ID, e.Filename)

	if o.opts.SkipExisting && !o.opts.CheckOnly {
		done, err := o.checkLocal(ctx, it, dest, log)
		if done || err != nil {
			return err
		}
	}

	if o.opts.Precheck || o.opts.CheckOnly {
		done, err := o.probe(ctx, it, log)
		if done || err != nil {
			return err
		}
	}

	if err := filex.EnsureDir(o.deps.Layout.ItemDir(e.ID)); err != nil {
		return err
	}

	if err := it.Transition(models.StateTransferring); err != nil {
		return err
	}
	res, err := o.deps.Fetcher.Transfer(ctx, e, dest)
	o.bytes.Add(res.Bytes)
	if err != nil {
		if ctx.Err() != nil {
			return o.abandon()
		}
		if errors.Is(err, common.ErrLocalIO) {
			return err
		}
		return o.transferFailed(it, err, res.Attempts, log)
	}
	if err := it.Transition(models.StateTransferred); err != nil {
		return err
	}
	log.Debug(ctx, "transferred", "bytes", res.Bytes, "elapsed", res.Elapsed, "attempts", res.Attempts)

	if ctx.Err() != nil {
		return o.abandon()
	}
	return o.verifyTransferred(ctx, it, dest, res, log)
}

// checkLocal handles an existing destination file. It reports done when the
// item reached a terminal state.
func (o *Orchestrator) checkLocal(ctx context.Context, it *models.Item, dest string, log logging.Logger) (bool, error) {
	e := it.Entry
	if _, ok := filex.FileSize(dest); !ok {
		return false, nil
	}

	if o.opts.Mode == verify.FastTrust && verify.Trusted(o.deps.Ledger, e, dest) {
		if err := it.Transition(models.StateSkipped); err != nil {
			return true, err
		}
		log.Debug(ctx, "skipped on trusted ledger record")
		return true, o.write(entryRecord(e, models.StatusSkippedExisting, "", "ledger record trusted (fast resume)"))
	}

	res, err := verify.Verify(dest, e.ExpectedChecksum)
	if err != nil {
		log.Warn(ctx, "cannot hash existing file, downloading again", "error", err)
		return false, nil
	}
	if !res.Match {
		log.Warn(ctx, "existing file is corrupted, downloading again", "expected", e.ExpectedChecksum, "actual", res.Actual)
		return false, nil
	}

	if err := o.deps.Ledger.Record(e.ID, e.Filename, res.Actual); err != nil {
		return true, err
	}
	if err := it.Transition(models.StateSkipped); err != nil {
		return true, err
	}
	return true, o.write(entryRecord(e, models.StatusSkippedExisting, res.Actual, "local file verified"))
}

// probe runs the existence check. It reports done when the item reached a
// terminal state, which always happens in check-only mode.
func (o *Orchestrator) probe(ctx context.Context, it *models.Item, log logging.Logger) (bool, error) {
	e := it.Entry
	if err := it.Transition(models.StateChecking); err != nil {
		return true, err
	}

	res, err := o.deps.Prober.Check(ctx, e)
	if err != nil {
		return true, o.abandon()
	}

	var status models.Status
	var next models.State
	switch res.Outcome {
	case precheck.Found:
		if err := it.Transition(models.StateFound); err != nil {
			return true, err
		}
		if !o.opts.CheckOnly {
			return false, nil
		}
		log.Info(ctx, "object found", "size", res.Size)
		return true, o.write(entryRecord(e, models.StatusFound, "", fmt.Sprintf("object exists (%d bytes)", res.Size)))
	case precheck.NotFound:
		status, next = models.StatusFailedNotFound, models.StateNotFound
	case precheck.Forbidden:
		status, next = models.StatusFailedForbidden, models.StateForbidden
	default:
		status, next = models.StatusFailedTransfer, models.StateFailed
	}

	if err := it.Transition(next); err != nil {
		return true, err
	}
	log.Warn(ctx, "existence check failed", "status", status, "attempts", res.Attempts, "message", res.Message)
	return true, o.write(entryRecord(e, status, "", "existence check: "+res.Message))
}

func (o *Orchestrator) transferFailed(it *models.Item, err error, attempts int, log logging.Logger) error {
	if terr := it.Transition(models.StateTransferFail); terr != nil {
		return terr
	}
	if terr := it.Transition(models.StateFailed); terr != nil {
		return terr
	}

	status := models.StatusFailedTransfer
	switch {
	case remote.IsNotFound(err):
		status = models.StatusFailedNotFound
	case remote.IsForbidden(err):
		status = models.StatusFailedForbidden
	}
	log.Error(context.Background(), "transfer failed", "status", status, "attempts", attempts, "error", err)
	return o.write(entryRecord(it.Entry, status, "", fmt.Sprintf("after %d attempt(s): %v", attempts, err)))
}

func (o *Orchestrator) verifyTransferred(ctx context.Context, it *models.Item, dest string, tr transfer.Result, log logging.Logger) error {
	e := it.Entry
	if err := it.Transition(models.StateVerifying); err != nil {
		return err
	}

	res, err := verify.Verify(dest, e.ExpectedChecksum)
	if err != nil {
		if terr := it.Transition(models.StateFailed); terr != nil {
			return terr
		}
		log.Error(ctx, "cannot hash downloaded file", "error", err)
		return o.write(entryRecord(e, models.StatusFailedIntegrity, "", "checksum: "+err.Error()))
	}
	if !res.Match {
		if err := it.Transition(models.StateIntegrityFail); err != nil {
			return err
		}
		msg := fmt.Errorf("%w: file kept at %s", common.ErrIntegrityMismatch, dest).Error()
		log.Error(ctx, "checksum mismatch", "expected", e.ExpectedChecksum, "actual", res.Actual)
		return o.write(entryRecord(e, models.StatusFailedIntegrity, res.Actual, msg))
	}

	if err := o.deps.Ledger.Record(e.ID, e.Filename, res.Actual); err != nil {
		return err
	}
	if err := it.Transition(models.StateCompleted); err != nil {
		return err
	}
	log.Info(ctx, "completed", "bytes", tr.Bytes, "elapsed", tr.Elapsed.Round(time.Millisecond))
	return o.write(entryRecord(e, models.StatusSuccess, res.Actual,
		fmt.Sprintf("transferred %d bytes in %s (%d attempt(s))", tr.Bytes, tr.Elapsed.Round(time.Millisecond), tr.Attempts)))
}

func (o *Orchestrator) abandon() error {
	o.abandoned.Add(1)
	return nil
}

func (o *Orchestrator) write(rec models.SessionLogRecord) error {
	if err := o.deps.Log.Write(rec); err != nil {
		return fmt.Errorf("session log: %w", err)
	}
	return nil
}

func entryRecord(e models.ManifestEntry, status models.Status, actual, msg string) models.SessionLogRecord {
	return models.SessionLogRecord{
		Status:           status,
		ID:               e.ID,
		Filename:         e.Filename,
		ExpectedChecksum: e.ExpectedChecksum,
		ActualChecksum:   actual,
		Message:          msg,
	}
}
