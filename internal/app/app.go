// Package app wires configuration, storage, the orchestrator and the run
// artifacts (session log, failed-items file, history) into one run.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/buildinfo"
	"github.com/dmitrijs2005/gdcfetch/internal/config"
	"github.com/dmitrijs2005/gdcfetch/internal/filex"
	"github.com/dmitrijs2005/gdcfetch/internal/history"
	"github.com/dmitrijs2005/gdcfetch/internal/ledger"
	"github.com/dmitrijs2005/gdcfetch/internal/logging"
	"github.com/dmitrijs2005/gdcfetch/internal/manifest"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/dmitrijs2005/gdcfetch/internal/orchestrator"
	"github.com/dmitrijs2005/gdcfetch/internal/precheck"
	"github.com/dmitrijs2005/gdcfetch/internal/progress"
	"github.com/dmitrijs2005/gdcfetch/internal/remote"
	"github.com/dmitrijs2005/gdcfetch/internal/retry"
	"github.com/dmitrijs2005/gdcfetch/internal/sessionlog"
	"github.com/dmitrijs2005/gdcfetch/internal/transfer"
	"github.com/dmitrijs2005/gdcfetch/internal/verify"
	"github.com/google/uuid"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	stdout   io.Writer
	stderr   io.Writer
	newStore StoreFactory
	now      func() time.Time
	binary   string
}

type Option func(*App)

// WithOutput redirects the summary (stdout) and logs/progress (stderr).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		a.stdout = stdout
		a.stderr = stderr
	}
}

func WithStoreFactory(f StoreFactory) Option {
	return func(a *App) { a.newStore = f }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithBinary sets the program name used in the printed retry command.
func WithBinary(name string) Option {
	return func(a *App) { a.binary = name }
}

func NewApp(c *config.Config, opts ...Option) *App {
	app := &App{
		config:   c,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		newStore: NewStore,
		now:      time.Now,
		binary:   "gdcfetch",
	}
	for _, o := range opts {
		o(app)
	}
	app.logger = logging.New(app.stderr, c.LogLevel, c.LogFormat)
	return app
}

// Run executes one pipeline run. The summary is returned, and printed, even
// when a fatal error stops the run early, as long as the session log exists.
func (app *App) Run(ctx context.Context) (*models.RunSummary, error) {
	cfg := app.config
	startedAt := app.now()
	runID := uuid.NewString()
	logger := app.logger.With("run_id", runID)

	work, err := app.loadWork(ctx, logger)
	if err != nil {
		return nil, err
	}

	layout, err := filex.NewLayout(cfg.OutputRoot)
	if err != nil {
		return nil, err
	}
	if err := layout.Prepare(); err != nil {
		return nil, err
	}

	led, err := ledger.Open(layout.LedgerPath())
	if err != nil {
		return nil, err
	}
	defer led.Close()
	if n := led.Malformed(); n > 0 {
		logger.Warn(ctx, "ignored malformed ledger lines", "count", n, "path", led.Path())
	}

	store, err := app.newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		// anonymous access to a public bucket may be denied at bucket level
		// while objects stay readable
		logger.Warn(ctx, "bucket check failed", "bucket", store.Bucket(), "error", err)
	}

	sessLog, err := sessionlog.Create(layout.LogsDir(), startedAt)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "run started",
		"version", buildinfo.Version, "entries", len(work.Entries), "session_log", sessLog.Path(), "mode", app.mode(), "workers", cfg.Workers)

	hist := app.openHistory(ctx, layout, logger)
	if hist != nil {
		defer hist.Close()
		if err := hist.Start(ctx, history.RunRecord{
			RunID:      runID,
			StartedAt:  startedAt,
			Mode:       app.mode(),
			Input:      app.input(),
			SessionLog: sessLog.Path(),
		}); err != nil {
			logger.Warn(ctx, "history start failed", "error", err)
		}
	}

	policy := remote.Policy{
		MaxAttempts: cfg.MaxAttempts(),
		BaseDelay:   cfg.RetryDelay,
		MaxDelay:    cfg.MaxRetryDelay,
		OnRetry: func(attempt int, err error) {
			logger.Warn(ctx, "retrying after transient error", "attempt", attempt, "error", err)
		},
	}

	orch := orchestrator.New(orchestrator.Options{
		SkipExisting: cfg.SkipExisting,
		Precheck:     cfg.Precheck,
		CheckOnly:    cfg.CheckOnly,
		Mode:         verify.ModeFor(cfg.FastResume),
		Workers:      cfg.Workers,
		Filter:       manifest.NewExtensionFilter(cfg.Extensions),
	}, orchestrator.Deps{
		Layout:  layout,
		Ledger:  led,
		Log:     sessLog,
		Prober:  precheck.New(store, policy),
		Fetcher: transfer.New(store, policy, app.reporter()),
		Logger:  logger,
	})

	out, runErr := orch.Run(ctx, work)

	if err := sessLog.Close(); err != nil && runErr == nil {
		runErr = err
	}

	sum := models.NewRunSummary(runID, startedAt)
	sum.FinishedAt = app.now()
	sum.Counts = sessLog.Summary()
	sum.BytesTransferred = out.BytesTransferred
	sum.SessionLog = sessLog.Path()
	sum.Interrupted = out.Interrupted

	failed := sessLog.Failed()
	if err := sessionlog.WriteFailedItems(layout.FailedPath(), failed); err != nil {
		logger.Error(ctx, "cannot write failed items", "error", err)
		if runErr == nil {
			runErr = err
		}
	} else {
		sum.FailedItems = layout.FailedPath()
	}
	if len(failed) > 0 {
		sum.RetryCommand = sessionlog.RetryCommand(app.binary, cfg, sessLog.Path())
	}

	if hist != nil {
		// the run context may already be cancelled
		if err := hist.Finish(context.WithoutCancel(ctx), sum); err != nil {
			logger.Warn(ctx, "history finish failed", "error", err)
		}
	}

	if out.Abandoned > 0 {
		logger.Warn(ctx, "run interrupted", "abandoned", out.Abandoned)
	}
	PrintSummary(app.stdout, sum)
	return sum, runErr
}

func (app *App) loadWork(ctx context.Context, logger logging.Logger) (orchestrator.Work, error) {
	cfg := app.config
	if cfg.RetryLog != "" {
		res, err := retry.FailedEntries(cfg.RetryLog)
		if err != nil {
			return orchestrator.Work{}, err
		}
		for _, d := range res.Dropped {
			logger.Warn(ctx, "failed record cannot be retried",
				"id", d.Record.ID, "filename", d.Record.Filename, "reason", d.Reason)
		}
		return orchestrator.Work{Entries: res.Entries}, nil
	}

	res, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return orchestrator.Work{}, err
	}
	return orchestrator.Work{Entries: res.Entries, ParseFailures: res.Failures}, nil
}

func (app *App) openHistory(ctx context.Context, layout filex.Layout, logger logging.Logger) *history.Store {
	if !app.config.History {
		return nil
	}
	h, err := history.Open(ctx, layout.HistoryPath())
	if err != nil {
		logger.Warn(ctx, "run history disabled", "error", err)
		return nil
	}
	return h
}

func (app *App) reporter() progress.Reporter {
	if f, ok := app.stderr.(*os.File); ok {
		return progress.ForFile(f, app.config.Progress)
	}
	return progress.Nop{}
}

func (app *App) mode() string {
	if app.config.CheckOnly {
		return "check-only"
	}
	return verify.ModeFor(app.config.FastResume).String()
}

func (app *App) input() string {
	if app.config.RetryLog != "" {
		return app.config.RetryLog
	}
	return app.config.Manifest
}

const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitFailures    = 2
	ExitInterrupted = 130
)

// ExitCode maps the outcome of Run onto the process exit status.
func ExitCode(sum *models.RunSummary, err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case err != nil, sum == nil:
		return ExitFatal
	case sum.Interrupted:
		return ExitInterrupted
	case sum.Failed() > 0:
		return ExitFailures
	default:
		return ExitOK
	}
}
