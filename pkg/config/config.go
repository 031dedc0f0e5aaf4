package config

import (
	"os"

	"github.com/williamokano/bucket_backuper/pkg/archive"
	"github.com/williamokano/bucket_backuper/pkg/dumper"
	"github.com/williamokano/bucket_backuper/pkg/metrics"
	"github.com/williamokano/bucket_backuper/pkg/rotation"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// PruneConfig defines the retention policy applied by the prune command
type PruneConfig struct {
	BackupfilePrefix     string `json:"backupfile_prefix,omitempty" yaml:"backupfile_prefix,omitempty"`
	DeleteDivide         int    `json:"delete_divide" yaml:"delete_divide"`                     // positive divisor of the epoch day
	DeleteTargetDaysLeft int    `json:"delete_target_days_left" yaml:"delete_target_days_left"` // days before today
	Concurrency          int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`     // parallel deletes (default: 4)
}

// Config is the root configuration structure
type Config struct {
	LogLevel       string            `json:"log_level,omitempty" yaml:"log_level,omitempty"`   // debug, info, warn, error (default: info)
	LogFormat      string            `json:"log_format,omitempty" yaml:"log_format,omitempty"` // json, console (default: json)
	TempDir        string            `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`
	Format         string            `json:"format,omitempty" yaml:"format,omitempty"` // bz2, gz, zst (default: bz2)
	S3             storage.S3Config  `json:"s3" yaml:"s3"`
	GCS            storage.GCSConfig `json:"gcs" yaml:"gcs"`
	Dumper         dumper.Config     `json:"dumper" yaml:"dumper"`
	Prune          PruneConfig       `json:"prune" yaml:"prune"`
	HealthcheckURL string            `json:"healthcheck_url,omitempty" yaml:"healthcheck_url,omitempty"`
	Metrics        metrics.Config    `json:"metrics" yaml:"metrics"`
}

// GetLogLevel returns the log level (defaults to info)
func (c *Config) GetLogLevel() string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return "info"
}

// GetLogFormat returns the log format (defaults to json)
func (c *Config) GetLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	return "json"
}

// GetTempDir returns the directory temporary work happens in (defaults to the OS temp dir)
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}

// GetFormat returns the archive format (defaults to bzip2)
func (c *Config) GetFormat() (archive.Format, error) {
	return archive.ParseFormat(c.Format)
}

// GetBackupfilePrefix returns the backup name prefix (defaults to "backup")
func (c *Config) GetBackupfilePrefix() string {
	if c.Prune.BackupfilePrefix != "" {
		return c.Prune.BackupfilePrefix
	}
	return rotation.DefaultPrefix
}

// StorageConfig returns the credentials of every provider
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{S3: c.S3, GCS: c.GCS}
}

// RotationOptions returns the prune policy as rotation options
func (c *Config) RotationOptions() rotation.Options {
	return rotation.Options{
		Prefix:               c.GetBackupfilePrefix(),
		DeleteDivide:         c.Prune.DeleteDivide,
		DeleteTargetDaysLeft: c.Prune.DeleteTargetDaysLeft,
		Concurrency:          c.Prune.Concurrency,
	}
}
