package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/snapship/internal/domain"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	BackupDir         string `toml:"backup_dir"`
	Interval          string `toml:"interval"`
	MaxPending        int    `toml:"max_pending"`
	Database          string `toml:"database"`
	SourceFile        string `toml:"source_file"`
	MetricsAddr       string `toml:"metrics_addr"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
	RetentionMaxFiles int    `toml:"retention_max_files"`
	RetentionMaxBytes string `toml:"retention_max_bytes"`
	RetentionInterval string `toml:"retention_interval"`
	ReportFormat      string `toml:"report_format"`
	Once              *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("%w: %s: %v", domain.ErrConfig, path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.snapship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".snapship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backup-dir", fc.BackupDir, &cfg.BackupDir)
	s.setString("db", fc.Database, &cfg.Database)
	s.setString("source-file", fc.SourceFile, &cfg.SourceFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("retention-max-bytes", fc.RetentionMaxBytes, &cfg.RetentionMaxSize)
	s.setString("format", fc.ReportFormat, &cfg.ReportFormat)

	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("retention-interval", fc.RetentionInterval, &cfg.RetentionInterval); err != nil {
		return err
	}

	s.setInt("max-pending", fc.MaxPending, &cfg.MaxPending)
	s.setInt("retention-max-files", fc.RetentionMaxFiles, &cfg.RetentionMaxFiles)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
