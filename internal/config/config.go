// Package config loads the chesscore YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hailam/chesscore/internal/logx"
)

// Config is the top-level configuration.
type Config struct {
	Search      SearchConfig      `yaml:"search"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// SearchConfig sizes and bounds the search.
type SearchConfig struct {
	HashMB     int    `yaml:"hash_mb"`
	MaxDepth   int    `yaml:"max_depth"`
	MoveTime   string `yaml:"move_time"`
	Quiescence bool   `yaml:"quiescence"`
}

// DiagnosticsConfig controls the per-search log files.
type DiagnosticsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

// StorageConfig locates the analysis and statistics database.
// An empty Dir means the platform data directory.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig sets the Prometheus listen address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Search: SearchConfig{
			HashMB:   16,
			MaxDepth: 64,
			MoveTime: "1s",
		},
		Diagnostics: DiagnosticsConfig{
			Dir: "diagnostics",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CHESSCORE_* environment variables.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	num("CHESSCORE_HASH_MB", &c.Search.HashMB)
	num("CHESSCORE_MAX_DEPTH", &c.Search.MaxDepth)
	str("CHESSCORE_MOVE_TIME", &c.Search.MoveTime)
	flag("CHESSCORE_QUIESCENCE", &c.Search.Quiescence)
	flag("CHESSCORE_DIAGNOSTICS", &c.Diagnostics.Enabled)
	str("CHESSCORE_DIAGNOSTICS_DIR", &c.Diagnostics.Dir)
	flag("CHESSCORE_DIAGNOSTICS_COMPRESS", &c.Diagnostics.Compress)
	str("CHESSCORE_STORAGE_DIR", &c.Storage.Dir)
	str("CHESSCORE_LOG_LEVEL", &c.Log.Level)
	str("CHESSCORE_METRICS_ADDR", &c.Metrics.Addr)
	return errors.Join(errs...)
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Search.HashMB < 1 {
		errs = append(errs, fmt.Errorf("search.hash_mb must be positive, got %d", c.Search.HashMB))
	}
	if c.Search.MaxDepth < 1 || c.Search.MaxDepth > 127 {
		errs = append(errs, fmt.Errorf("search.max_depth must be in 1..127, got %d", c.Search.MaxDepth))
	}
	if d, err := time.ParseDuration(c.Search.MoveTime); err != nil {
		errs = append(errs, fmt.Errorf("search.move_time: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("search.move_time must be positive, got %s", d))
	}
	if c.Diagnostics.Enabled && c.Diagnostics.Dir == "" {
		errs = append(errs, errors.New("diagnostics.dir is required when diagnostics are enabled"))
	}
	if c.Log.Level != "" && logx.ParseLevel(c.Log.Level).String() != c.Log.Level {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// MoveTime returns the parsed per-move budget. Call after Validate.
func (c Config) MoveTime() time.Duration {
	d, _ := time.ParseDuration(c.Search.MoveTime)
	return d
}
