package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
)

// parseFlags overlays command-line flags onto config.
//
//	-m string             input manifest (TSV)
//	-retry-log string     session log whose FAILED_* rows become the work set
//	-o string             output root (logs/ and data/ are created below it)
//	-e string             comma-separated extension allow-list
//	-skip-existing        verify and skip files already on disk (default true)
//	-precheck             probe the remote object before transferring (default true)
//	-check-only           only probe existence, never transfer
//	-fast-resume          trust ledger records without re-hashing local files
//	-w int                parallel workers
//	-retries int          retries after the first attempt
//	-retry-delay dur      base backoff delay
//	-max-retry-delay dur  backoff cap
//	-backend string       s3 or minio
//	-b string             bucket (an s3:// prefix is accepted)
//	-g string             region
//	-endpoint string      custom endpoint URL
//	-profile string       shared credentials profile
//	-access-key/-secret-key string  static credentials
//	-no-sign-request      send anonymous requests
//	-path-style           use path-style addressing
//	-log-level/-log-format string
//	-progress             show a progress line on terminals (default true)
//	-history              record the run in logs/history.db (default true)
//
// -c / -config are accepted and ignored here; the file is read earlier.
func parseFlags(config *Config, args []string) error {
	fs := newFlagSet(config)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	if rest := fs.Args(); len(rest) > 0 {
		return fmt.Errorf("%w: unexpected arguments: %s", common.ErrConfiguration, strings.Join(rest, " "))
	}
	return nil
}

func newFlagSet(config *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("gdcfetch", flag.ContinueOnError)

	var ignored string
	fs.StringVar(&ignored, "c", "", "path to config file (short)")
	fs.StringVar(&ignored, "config", "", "path to config file")

	fs.StringVar(&config.Manifest, "m", config.Manifest, "input manifest TSV")
	fs.StringVar(&config.RetryLog, "retry-log", config.RetryLog, "retry FAILED_* items of this session log")
	fs.StringVar(&config.OutputRoot, "o", config.OutputRoot, "output root directory")
	fs.StringVar(&config.Extensions, "e", config.Extensions, "comma-separated extension allow-list")

	fs.BoolVar(&config.SkipExisting, "skip-existing", config.SkipExisting, "skip verified local files")
	fs.BoolVar(&config.Precheck, "precheck", config.Precheck, "probe remote existence before transfer")
	fs.BoolVar(&config.CheckOnly, "check-only", config.CheckOnly, "probe existence only")
	fs.BoolVar(&config.FastResume, "fast-resume", config.FastResume, "trust ledger without re-hashing")

	fs.IntVar(&config.Workers, "w", config.Workers, "parallel workers")
	fs.IntVar(&config.Retries, "retries", config.Retries, "retries after the first attempt")
	fs.DurationVar(&config.RetryDelay, "retry-delay", config.RetryDelay, "base retry delay")
	fs.DurationVar(&config.MaxRetryDelay, "max-retry-delay", config.MaxRetryDelay, "maximum retry delay")

	fs.StringVar(&config.Backend, "backend", config.Backend, "remote backend: s3 or minio")
	fs.StringVar(&config.Bucket, "b", config.Bucket, "bucket name")
	fs.StringVar(&config.Region, "g", config.Region, "region")
	fs.StringVar(&config.Endpoint, "endpoint", config.Endpoint, "custom endpoint URL")
	fs.StringVar(&config.Profile, "profile", config.Profile, "shared credentials profile")
	fs.StringVar(&config.AccessKey, "access-key", config.AccessKey, "static access key")
	fs.StringVar(&config.SecretKey, "secret-key", config.SecretKey, "static secret key")
	fs.BoolVar(&config.NoSignRequest, "no-sign-request", config.NoSignRequest, "anonymous requests")
	fs.BoolVar(&config.UsePathStyle, "path-style", config.UsePathStyle, "path-style addressing")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "debug, info, warn or error")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "text or json")
	fs.BoolVar(&config.Progress, "progress", config.Progress, "show progress on terminals")
	fs.BoolVar(&config.History, "history", config.History, "record run history")

	return fs
}

// Usage prints the accepted flags with their defaults.
func Usage(w io.Writer) {
	cfg := &Config{}
	cfg.LoadDefaults()
	fs := newFlagSet(cfg)
	fs.SetOutput(w)
	fmt.Fprintln(w, "usage: gdcfetch (-m manifest.tsv | -retry-log download_log.tsv) -o <root> [flags]")
	fs.PrintDefaults()
}
