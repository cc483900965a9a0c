package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/domain"
)

// DefaultBackupDir is where snapshots are written when nothing else is configured.
const DefaultBackupDir = "backups"

// Config holds CLI configuration for snapship.
type Config struct {
	BackupDir string

	Interval   time.Duration
	MaxPending int

	Database   string
	SourceFile string

	MetricsAddr string

	LogLevel  string
	LogFormat string
	Verbose   bool
	Quiet     bool

	RetentionMaxFiles int
	RetentionMaxSize  string
	RetentionInterval time.Duration

	// RetentionMaxBytes is derived from RetentionMaxSize by Validate.
	RetentionMaxBytes int64

	ReportFormat string
	Once         bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BackupDir:         DefaultBackupDir,
		Interval:          5 * time.Second,
		MaxPending:        app.DefaultMaxPending,
		LogLevel:          "info",
		LogFormat:         "console",
		RetentionInterval: app.DefaultRetentionInterval,
		ReportFormat:      "table",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// Validation failures wrap domain.ErrConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackupDir) == "" {
		return fmt.Errorf("%w: backup-dir is required", domain.ErrConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", domain.ErrConfig)
	}
	if c.MaxPending <= 0 {
		return fmt.Errorf("%w: max-pending must be positive", domain.ErrConfig)
	}
	if c.Database != "" && c.SourceFile != "" {
		return fmt.Errorf("%w: db and source-file are mutually exclusive", domain.ErrConfig)
	}

	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log-format must be console or json", domain.ErrConfig)
	}
	if c.Verbose && c.Quiet {
		return fmt.Errorf("%w: verbose and quiet are mutually exclusive", domain.ErrConfig)
	}

	c.RetentionMaxBytes = 0
	if s := strings.TrimSpace(c.RetentionMaxSize); s != "" {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return fmt.Errorf("%w: retention-max-bytes: %v", domain.ErrConfig, err)
		}
		c.RetentionMaxBytes = int64(n)
	}
	if c.RetentionMaxFiles < 0 {
		return fmt.Errorf("%w: retention-max-files must not be negative", domain.ErrConfig)
	}
	if c.RetentionInterval <= 0 {
		c.RetentionInterval = app.DefaultRetentionInterval
	}

	return nil
}

// Retention returns the retention settings. Retention is enabled when any
// limit is set.
func (c Config) Retention() app.RetentionConfig {
	return app.RetentionConfig{
		Enabled:  c.RetentionMaxFiles > 0 || c.RetentionMaxBytes > 0,
		Interval: c.RetentionInterval,
		MaxFiles: c.RetentionMaxFiles,
		MaxBytes: c.RetentionMaxBytes,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
