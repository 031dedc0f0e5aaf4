package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/williamokano/bucket_backuper/pkg/backup"
	"github.com/williamokano/bucket_backuper/pkg/config"
	"github.com/williamokano/bucket_backuper/pkg/healthcheck"
	"github.com/williamokano/bucket_backuper/pkg/logger"
	"github.com/williamokano/bucket_backuper/pkg/metrics"
	"github.com/williamokano/bucket_backuper/pkg/storage"

	// providers register themselves with the storage factory
	_ "github.com/williamokano/bucket_backuper/pkg/storage/gcs"
	_ "github.com/williamokano/bucket_backuper/pkg/storage/s3"
)

// runtime is everything a command needs after configuration is resolved
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger
	runner *backup.Runner
}

// setup loads configuration, initializes logging and connects to the
// provider that uri points at. The caller closes the runner's client.
func (a *app) setup(ctx context.Context, uri string) (*runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.GetLogLevel(), cfg.GetLogFormat())
	l := log.Logger

	client, err := storage.NewFactory(l).CreateForURI(ctx, uri, cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client for %s: %w", uri, err)
	}

	runner := &backup.Runner{
		Client:  client,
		Logger:  l,
		Metrics: metrics.NewCollector(cfg.Metrics),
		TempDir: cfg.GetTempDir(),
	}
	if cfg.HealthcheckURL != "" {
		runner.HealthCheck = healthcheck.New(cfg.HealthcheckURL, l)
	}

	return &runtime{cfg: cfg, logger: l, runner: runner}, nil
}

func (r *runtime) close() {
	if err := r.runner.Client.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to close storage client")
	}
}
