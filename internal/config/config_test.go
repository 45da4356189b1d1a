package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ".", c.OutputRoot)
	assert.True(t, c.SkipExisting)
	assert.True(t, c.Precheck)
	assert.False(t, c.CheckOnly)
	assert.False(t, c.FastResume)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 3, c.Retries)
	assert.Equal(t, 4, c.MaxAttempts())
	assert.Equal(t, 2*time.Second, c.RetryDelay)
	assert.Equal(t, 30*time.Second, c.MaxRetryDelay)
	assert.Equal(t, BackendS3, c.Backend)
	assert.Equal(t, "tcga-2-open", c.Bucket)
	assert.Equal(t, "us-east-1", c.Region)
	assert.True(t, c.History)
}

func validConfig() *Config {
	c := &Config{}
	c.LoadDefaults()
	c.Manifest = "manifest.tsv"
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok manifest", mutate: func(c *Config) {}},
		{name: "ok retry log", mutate: func(c *Config) { c.Manifest = ""; c.RetryLog = "log.tsv" }},
		{name: "no input", mutate: func(c *Config) { c.Manifest = "" }, wantErr: true},
		{name: "both inputs", mutate: func(c *Config) { c.RetryLog = "log.tsv" }, wantErr: true},
		{name: "empty root", mutate: func(c *Config) { c.OutputRoot = "" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Retries = -1 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "gcs" }, wantErr: true},
		{name: "minio without endpoint", mutate: func(c *Config) { c.Backend = BackendMinio }, wantErr: true},
		{name: "half credentials", mutate: func(c *Config) { c.AccessKey = "AK" }, wantErr: true},
		{name: "s3 url bucket only", mutate: func(c *Config) { c.Bucket = "s3://" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, common.ErrConfiguration))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidate_NormalisesBucketAndDelays(t *testing.T) {
	c := validConfig()
	c.Bucket = "s3://my-bucket/"
	c.RetryDelay = 10 * time.Second
	c.MaxRetryDelay = time.Second

	require.NoError(t, c.Validate())
	assert.Equal(t, "my-bucket", c.Bucket)
	assert.Equal(t, 10*time.Second, c.MaxRetryDelay)
}

func TestAnonymous(t *testing.T) {
	c := validConfig()
	assert.True(t, c.Anonymous(), "public bucket without credentials is anonymous")

	c.Profile = "lab"
	assert.False(t, c.Anonymous())

	c.Profile = ""
	c.Bucket = "private"
	assert.False(t, c.Anonymous())

	c.NoSignRequest = true
	assert.True(t, c.Anonymous())
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manifest: from-file.tsv\nworkers: 8\nretry_delay: 5s\n"), 0o600))

	cfg, err := Load([]string{"-c", path, "-w", "2", "-o", dir})
	require.NoError(t, err)

	assert.Equal(t, "from-file.tsv", cfg.Manifest)
	assert.Equal(t, 2, cfg.Workers, "flags win over the file")
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Equal(t, dir, cfg.OutputRoot)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]string{"-o", "x"})
	require.ErrorIs(t, err, common.ErrConfiguration)

	_, err = Load([]string{"-m", "a.tsv", "-c", filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorIs(t, err, common.ErrConfiguration)

	_, err = Load([]string{"-m", "a.tsv", "-w", "many"})
	require.ErrorIs(t, err, common.ErrConfiguration)
}
