package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"gopkg.in/yaml.v3"
)

// Duration accepts either a Go duration string ("2s", "1m30s") or an integer
// number of seconds in config files.
type Duration struct {
	time.Duration
}

func (d *Duration) set(raw string) error {
	raw = strings.TrimSpace(raw)
	if v, err := time.ParseDuration(raw); err == nil {
		d.Duration = v
		return nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}
	return fmt.Errorf("invalid duration %q", raw)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.set(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	d.Duration = time.Duration(n) * time.Second
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.set(value.Value)
}

// fileConfig mirrors Config for file decoding. Pointer fields distinguish
// "absent" from the zero value so a partial file keeps the defaults.
type fileConfig struct {
	Manifest   *string `json:"manifest" yaml:"manifest"`
	RetryLog   *string `json:"retry_log" yaml:"retry_log"`
	OutputRoot *string `json:"output_root" yaml:"output_root"`
	Extensions *string `json:"extensions" yaml:"extensions"`

	SkipExisting *bool `json:"skip_existing" yaml:"skip_existing"`
	Precheck     *bool `json:"precheck" yaml:"precheck"`
	CheckOnly    *bool `json:"check_only" yaml:"check_only"`
	FastResume   *bool `json:"fast_resume" yaml:"fast_resume"`

	Workers       *int      `json:"workers" yaml:"workers"`
	Retries       *int      `json:"retries" yaml:"retries"`
	RetryDelay    *Duration `json:"retry_delay" yaml:"retry_delay"`
	MaxRetryDelay *Duration `json:"max_retry_delay" yaml:"max_retry_delay"`

	Backend       *string `json:"backend" yaml:"backend"`
	Bucket        *string `json:"bucket" yaml:"bucket"`
	Region        *string `json:"region" yaml:"region"`
	Endpoint      *string `json:"endpoint" yaml:"endpoint"`
	Profile       *string `json:"profile" yaml:"profile"`
	AccessKey     *string `json:"access_key" yaml:"access_key"`
	SecretKey     *string `json:"secret_key" yaml:"secret_key"`
	NoSignRequest *bool   `json:"no_sign_request" yaml:"no_sign_request"`
	UsePathStyle  *bool   `json:"path_style" yaml:"path_style"`

	LogLevel  *string `json:"log_level" yaml:"log_level"`
	LogFormat *string `json:"log_format" yaml:"log_format"`
	Progress  *bool   `json:"progress" yaml:"progress"`
	History   *bool   `json:"history" yaml:"history"`
}

// parseFile overlays values from a JSON or YAML file onto config.
func parseFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file: %v", common.ErrConfiguration, err)
	}

	fc := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("%w: parse config file %s: %v", common.ErrConfiguration, path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *fileConfig) apply(c *Config) {
	setString(&c.Manifest, fc.Manifest)
	setString(&c.RetryLog, fc.RetryLog)
	setString(&c.OutputRoot, fc.OutputRoot)
	setString(&c.Extensions, fc.Extensions)

	setBool(&c.SkipExisting, fc.SkipExisting)
	setBool(&c.Precheck, fc.Precheck)
	setBool(&c.CheckOnly, fc.CheckOnly)
	setBool(&c.FastResume, fc.FastResume)

	if fc.Workers != nil {
		c.Workers = *fc.Workers
	}
	if fc.Retries != nil {
		c.Retries = *fc.Retries
	}
	if fc.RetryDelay != nil {
		c.RetryDelay = fc.RetryDelay.Duration
	}
	if fc.MaxRetryDelay != nil {
		c.MaxRetryDelay = fc.MaxRetryDelay.Duration
	}

	setString(&c.Backend, fc.Backend)
	setString(&c.Bucket, fc.Bucket)
	setString(&c.Region, fc.Region)
	setString(&c.Endpoint, fc.Endpoint)
	setString(&c.Profile, fc.Profile)
	setString(&c.AccessKey, fc.AccessKey)
	setString(&c.SecretKey, fc.SecretKey)
	setBool(&c.NoSignRequest, fc.NoSignRequest)
	setBool(&c.UsePathStyle, fc.UsePathStyle)

	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setBool(&c.Progress, fc.Progress)
	setBool(&c.History, fc.History)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
