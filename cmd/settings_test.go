package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "BUCKET_BACKUPER_S3_REGION", envName("s3.region"))
	assert.Equal(t, "BUCKET_BACKUPER_PRUNE_DELETE_DIVIDE", envName("prune.delete_divide"))
	assert.Equal(t, "BUCKET_BACKUPER_LOG_LEVEL", envName("log_level"))
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("BUCKET_BACKUPER_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("BUCKET_BACKUPER_PRUNE_DELETE_DIVIDE", "3")
	t.Setenv("BUCKET_BACKUPER_S3_FORCE_PATH_STYLE", "true")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/secrets/sa.json")
	t.Setenv("DELETE_TARGET_DAYS_LEFT", "5")

	a := &app{v: viper.New()}
	cfg, err := a.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000", cfg.S3.Endpoint)
	assert.True(t, cfg.S3.ForcePathStyle)
	assert.Equal(t, 3, cfg.Prune.DeleteDivide)
	assert.Equal(t, 5, cfg.Prune.DeleteTargetDaysLeft)
	assert.Equal(t, "/secrets/sa.json", cfg.GCS.KeyFile)
}

func TestLoadConfig_PrefixedVariableWins(t *testing.T) {
	t.Setenv("BUCKET_BACKUPER_GCS_PROJECT_ID", "primary")
	t.Setenv("GCP_PROJECT_ID", "fallback")

	a := &app{v: viper.New()}
	cfg, err := a.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.GCS.ProjectID)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "log_level: warn\ns3:\n  region: eu-west-1\nprune:\n  delete_divide: 2\n  delete_target_days_left: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("BUCKET_BACKUPER_S3_REGION", "us-east-2")

	a := &app{v: viper.New(), cfgFile: path}
	cfg, err := a.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "us-east-2", cfg.S3.Region)
	assert.Equal(t, "warn", cfg.GetLogLevel())
	assert.Equal(t, 2, cfg.Prune.DeleteDivide)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level": "loud"}`), 0o600))

	a := &app{v: viper.New(), cfgFile: path}
	_, err := a.loadConfig()
	assert.Error(t, err)
}
