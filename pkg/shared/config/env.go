package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables overriding the configuration file.
const (
	EnvRoot                = "PERMSCAN_ROOT"
	EnvOutput              = "PERMSCAN_OUTPUT"
	EnvExtensions          = "PERMSCAN_EXTENSIONS"
	EnvRules               = "PERMSCAN_RULES"
	EnvConcurrency         = "PERMSCAN_CONCURRENCY"
	EnvTimeout             = "PERMSCAN_TIMEOUT"
	EnvTolerateMissingRoot = "PERMSCAN_TOLERATE_MISSING_ROOT"
	EnvRecursive           = "PERMSCAN_RECURSIVE"
	EnvSourceRoot          = "PERMSCAN_SOURCE_ROOT"
	EnvVCSProvenance       = "PERMSCAN_VCS_PROVENANCE"
	EnvLogLevel            = "PERMSCAN_LOG_LEVEL"
)

// LookupFunc fetches environment variables and defaults to os.LookupEnv.
type LookupFunc func(string) (string, bool)

// ApplyEnv overlays non-empty environment variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil {
		return fmt.Errorf("configuration object is nil")
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get(EnvRoot); ok {
		cfg.Scan.Root = v
	}
	if v, ok := get(EnvOutput); ok {
		cfg.Report.Output = v
	}
	if v, ok := get(EnvExtensions); ok {
		cfg.Scan.Extensions = SplitList(v)
	}
	if v, ok := get(EnvRules); ok {
		cfg.Scan.EnabledRules = SplitList(v)
	}
	if v, ok := get(EnvSourceRoot); ok {
		cfg.Scan.SourceRoot = v
	}
	if v, ok := get(EnvConcurrency); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", EnvConcurrency, err)
		}
		cfg.Scan.Concurrency = n
	}
	if v, ok := get(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s must be a duration: %w", EnvTimeout, err)
		}
		cfg.Scan.Timeout = d
	}
	if v, ok := get(EnvTolerateMissingRoot); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", EnvTolerateMissingRoot, err)
		}
		cfg.Scan.TolerateMissingRoot = &b
	}
	if v, ok := get(EnvRecursive); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", EnvRecursive, err)
		}
		cfg.Scan.Recursive = b
	}
	if v, ok := get(EnvVCSProvenance); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", EnvVCSProvenance, err)
		}
		cfg.Report.VCSProvenance = b
	}
	return nil
}
