// Package logging is the operational logger of the pipeline. Item outcomes
// go to the session log; this logger carries progress, retries and warnings
// to stderr.
package logging

import "context"

// Logger is a context-aware structured logger. args are key/value pairs:
//
//	log.Info(ctx, "completed", "id", e.ID, "bytes", n)
//
// Per-run and per-item loggers are derived with With so that run_id, id and
// filename are attached once.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}
