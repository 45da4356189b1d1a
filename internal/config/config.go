package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/dmitrijs2005/gdcfetch/internal/flagx"
)

// Backends understood by the remote store factory.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Config holds the settings of one pipeline run.
//
// Exactly one of Manifest and RetryLog must be set. Retries counts additional
// attempts after the first one, so an item is tried at most Retries+1 times.
type Config struct {
	Manifest   string
	RetryLog   string
	OutputRoot string
	Extensions string

	SkipExisting bool
	Precheck     bool
	CheckOnly    bool
	FastResume   bool

	Workers       int
	Retries       int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	Backend       string
	Bucket        string
	Region        string
	Endpoint      string
	Profile       string
	AccessKey     string
	SecretKey     string
	NoSignRequest bool
	UsePathStyle  bool

	LogLevel  string
	LogFormat string
	Progress  bool
	History   bool
}

// LoadDefaults populates Config with the values used when nothing else is given.
func (c *Config) LoadDefaults() {
	c.OutputRoot = "."
	c.SkipExisting = true
	c.Precheck = true
	c.Workers = 1
	c.Retries = 3
	c.RetryDelay = 2 * time.Second
	c.MaxRetryDelay = 30 * time.Second
	c.Backend = BackendS3
	c.Bucket = common.PublicBucket
	c.Region = "us-east-1"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.Progress = true
	c.History = true
}

// MaxAttempts is the total number of tries per remote operation.
func (c *Config) MaxAttempts() int {
	return c.Retries + 1
}

// Anonymous reports whether requests should go unsigned. The public TCGA
// bucket is read anonymously unless credentials were supplied.
func (c *Config) Anonymous() bool {
	if c.NoSignRequest {
		return true
	}
	return c.Bucket == common.PublicBucket && c.Profile == "" && c.AccessKey == ""
}

// Validate checks cross-field constraints and normalises a few values.
// Any problem is reported as common.ErrConfiguration.
func (c *Config) Validate() error {
	c.Bucket = strings.TrimSuffix(strings.TrimPrefix(c.Bucket, "s3://"), "/")

	switch {
	case c.Manifest == "" && c.RetryLog == "":
		return fmt.Errorf("%w: one of -m (manifest) or -retry-log is required", common.ErrConfiguration)
	case c.Manifest != "" && c.RetryLog != "":
		return fmt.Errorf("%w: -m and -retry-log are mutually exclusive", common.ErrConfiguration)
	case c.OutputRoot == "":
		return fmt.Errorf("%w: output root must not be empty", common.ErrConfiguration)
	case c.Bucket == "":
		return fmt.Errorf("%w: bucket must not be empty", common.ErrConfiguration)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", common.ErrConfiguration, c.Workers)
	case c.Retries < 0:
		return fmt.Errorf("%w: retries must be >= 0, got %d", common.ErrConfiguration, c.Retries)
	case c.RetryDelay < 0 || c.MaxRetryDelay < 0:
		return fmt.Errorf("%w: retry delays must not be negative", common.ErrConfiguration)
	case c.Backend != BackendS3 && c.Backend != BackendMinio:
		return fmt.Errorf("%w: unknown backend %q", common.ErrConfiguration, c.Backend)
	case c.Backend == BackendMinio && c.Endpoint == "":
		return fmt.Errorf("%w: -endpoint is required for the minio backend", common.ErrConfiguration)
	case (c.AccessKey == "") != (c.SecretKey == ""):
		return fmt.Errorf("%w: access key and secret key must be set together", common.ErrConfiguration)
	}

	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = c.RetryDelay
	}
	return nil
}

// Load builds a validated Config from defaults, the optional config file and
// the given command-line arguments (usually os.Args[1:]).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigFileFlag(args); path != "" {
		if err := parseFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
