package cmd

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/williamokano/bucket_backuper/pkg/config"
)

const envPrefix = "BUCKET_BACKUPER"

// stringSettings maps config keys to the field they override
var stringSettings = map[string]func(*config.Config) *string{
	"log_level":               func(c *config.Config) *string { return &c.LogLevel },
	"log_format":              func(c *config.Config) *string { return &c.LogFormat },
	"temp_dir":                func(c *config.Config) *string { return &c.TempDir },
	"format":                  func(c *config.Config) *string { return &c.Format },
	"s3.endpoint":             func(c *config.Config) *string { return &c.S3.Endpoint },
	"s3.region":               func(c *config.Config) *string { return &c.S3.Region },
	"s3.access_key_id":        func(c *config.Config) *string { return &c.S3.AccessKeyID },
	"s3.secret_access_key":    func(c *config.Config) *string { return &c.S3.SecretAccessKey },
	"gcs.project_id":          func(c *config.Config) *string { return &c.GCS.ProjectID },
	"gcs.endpoint":            func(c *config.Config) *string { return &c.GCS.Endpoint },
	"gcs.key_file":            func(c *config.Config) *string { return &c.GCS.KeyFile },
	"gcs.client_email":        func(c *config.Config) *string { return &c.GCS.ClientEmail },
	"gcs.private_key":         func(c *config.Config) *string { return &c.GCS.PrivateKey },
	"dumper.postgres_dsn":     func(c *config.Config) *string { return &c.Dumper.PostgresDSN },
	"dumper.pgpass_file":      func(c *config.Config) *string { return &c.Dumper.PgpassFile },
	"prune.backupfile_prefix": func(c *config.Config) *string { return &c.Prune.BackupfilePrefix },
	"healthcheck_url":         func(c *config.Config) *string { return &c.HealthcheckURL },
	"metrics.pushgateway_url": func(c *config.Config) *string { return &c.Metrics.PushgatewayURL },
	"metrics.job":             func(c *config.Config) *string { return &c.Metrics.Job },
}

var intSettings = map[string]func(*config.Config) *int{
	"prune.delete_divide":           func(c *config.Config) *int { return &c.Prune.DeleteDivide },
	"prune.delete_target_days_left": func(c *config.Config) *int { return &c.Prune.DeleteTargetDaysLeft },
	"prune.concurrency":             func(c *config.Config) *int { return &c.Prune.Concurrency },
}

var boolSettings = map[string]func(*config.Config) *bool{
	"s3.force_path_style": func(c *config.Config) *bool { return &c.S3.ForcePathStyle },
}

// envFallbacks are conventional variable names read after the prefixed one.
// AWS credentials are left to the SDK's own chain.
var envFallbacks = map[string][]string{
	"gcs.project_id":                {"GCP_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
	"gcs.key_file":                  {"GOOGLE_APPLICATION_CREDENTIALS"},
	"gcs.client_email":              {"GCP_CLIENT_EMAIL"},
	"gcs.private_key":               {"GCP_PRIVATE_KEY"},
	"prune.backupfile_prefix":       {"BACKUPFILE_PREFIX"},
	"prune.delete_divide":           {"DELETE_DIVIDE"},
	"prune.delete_target_days_left": {"DELETE_TARGET_DAYS_LEFT"},
	"healthcheck_url":               {"HEALTHCHECK_URL"},
}

// envName is the prefixed variable for key, s3.region => BUCKET_BACKUPER_S3_REGION
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func bindEnv(v *viper.Viper) {
	keys := make([]string, 0, len(stringSettings)+len(intSettings)+len(boolSettings))
	for key := range stringSettings {
		keys = append(keys, key)
	}
	for key := range intSettings {
		keys = append(keys, key)
	}
	for key := range boolSettings {
		keys = append(keys, key)
	}

	for _, key := range keys {
		names := append([]string{key, envName(key)}, envFallbacks[key]...)
		_ = v.BindEnv(names...)
	}
}

// loadConfig reads the config file when one is given, then applies
// environment variables and flags on top of it
func (a *app) loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if a.cfgFile != "" {
		loaded, err := config.Load(a.cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	bindEnv(a.v)
	applyOverrides(cfg, a.v)

	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	for key, field := range stringSettings {
		if v.IsSet(key) {
			*field(cfg) = v.GetString(key)
		}
	}
	for key, field := range intSettings {
		if v.IsSet(key) {
			*field(cfg) = v.GetInt(key)
		}
	}
	for key, field := range boolSettings {
		if v.IsSet(key) {
			*field(cfg) = v.GetBool(key)
		}
	}
}
