package cliconfig

import "os"

// EnvPrefix starts every environment variable snapship reads.
const EnvPrefix = "SNAPSHIP_"

// ApplyEnvConfig applies configuration from environment variables (SNAPSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backup-dir", os.Getenv(EnvPrefix+"BACKUP_DIR"), &cfg.BackupDir)
	s.setString("db", os.Getenv(EnvPrefix+"DATABASE"), &cfg.Database)
	s.setString("source-file", os.Getenv(EnvPrefix+"SOURCE_FILE"), &cfg.SourceFile)
	s.setString("metrics-addr", os.Getenv(EnvPrefix+"METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(EnvPrefix+"LOG_FORMAT"), &cfg.LogFormat)
	s.setString("retention-max-bytes", os.Getenv(EnvPrefix+"RETENTION_MAX_BYTES"), &cfg.RetentionMaxSize)
	s.setString("format", os.Getenv(EnvPrefix+"REPORT_FORMAT"), &cfg.ReportFormat)

	if err := s.setDuration("interval", os.Getenv(EnvPrefix+"INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("retention-interval", os.Getenv(EnvPrefix+"RETENTION_INTERVAL"), &cfg.RetentionInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("max-pending", os.Getenv(EnvPrefix+"MAX_PENDING"), &cfg.MaxPending); err != nil {
		return err
	}
	if err := s.setIntFromString("retention-max-files", os.Getenv(EnvPrefix+"RETENTION_MAX_FILES"), &cfg.RetentionMaxFiles); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv(EnvPrefix+"ONCE"), &cfg.Once)

	return nil
}
