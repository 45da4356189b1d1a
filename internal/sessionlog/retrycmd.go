package sessionlog

import (
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gdcfetch/internal/config"
)

// RetryCommand builds the invocation that retries only the failed items of
// logPath. Settings that change how objects are fetched are carried over;
// static credentials are not, and must be supplied again.
func RetryCommand(binary string, cfg *config.Config, logPath string) string {
	args := []string{binary, "-o", cfg.OutputRoot, "-retry-log", logPath}

	defaults := &config.Config{}
	defaults.LoadDefaults()

	if cfg.Backend != defaults.Backend {
		args = append(args, "-backend", cfg.Backend)
	}
	if cfg.Bucket != defaults.Bucket {
		args = append(args, "-b", cfg.Bucket)
	}
	if cfg.Region != defaults.Region {
		args = append(args, "-g", cfg.Region)
	}
	if cfg.Endpoint != "" {
		args = append(args, "-endpoint", cfg.Endpoint)
	}
	if cfg.Profile != "" {
		args = append(args, "-profile", cfg.Profile)
	}
	if cfg.NoSignRequest {
		args = append(args, "-no-sign-request")
	}
	if cfg.UsePathStyle {
		args = append(args, "-path-style")
	}
	if !cfg.SkipExisting {
		args = append(args, "-skip-existing=false")
	}
	if cfg.Precheck != defaults.Precheck {
		args = append(args, "-precheck="+strconv.FormatBool(cfg.Precheck))
	}
	if cfg.CheckOnly {
		args = append(args, "-check-only")
	}
	if cfg.FastResume {
		args = append(args, "-fast-resume")
	}
	if cfg.Workers != defaults.Workers {
		args = append(args, "-w", strconv.Itoa(cfg.Workers))
	}
	if cfg.Retries != defaults.Retries {
		args = append(args, "-retries", strconv.Itoa(cfg.Retries))
	}

	for i := range args {
		args[i] = shellQuote(args[i])
	}
	return strings.Join(args, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("_-./:=@%+,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
