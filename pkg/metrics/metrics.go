// Package metrics records the outcome of a single run and pushes it to a
// Prometheus Pushgateway. A one-shot process has no scrape window, so the
// values are pushed instead of served.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "bucket_backuper"

// DefaultJob is the Pushgateway job name used when none is configured
const DefaultJob = "bucket_backuper"

// Config represents metrics configuration
type Config struct {
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	Job            string `json:"job" yaml:"job"`
}

// Collector holds the metrics of one run in its own registry
type Collector struct {
	config   Config
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	artifactSize      prometheus.Gauge
	lastSuccess       prometheus.Gauge
	prunedObjects     prometheus.Counter
}

// NewCollector creates a collector with a fresh registry
func NewCollector(config Config) *Collector {
	if config.Job == "" {
		config.Job = DefaultJob
	}

	c := &Collector{
		config:   config,
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of backup, restore and prune operations",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"operation"}),
		operationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_total",
			Help:      "Operations by outcome",
		}, []string{"operation", "status"}),
		artifactSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_size_bytes",
			Help:      "Size of the last uploaded artifact",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful operation",
		}),
		prunedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_objects_total",
			Help:      "Objects deleted by prune",
		}),
	}

	c.registry.MustRegister(
		c.operationDuration,
		c.operationCounter,
		c.artifactSize,
		c.lastSuccess,
		c.prunedObjects,
	)

	return c
}

// Registry exposes the underlying registry, mostly for tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordOperation records an operation with its duration and outcome
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	c.operationCounter.With(prometheus.Labels{
		"operation": operation,
		"status":    status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{
		"operation": operation,
	}).Observe(duration.Seconds())

	if success {
		c.lastSuccess.SetToCurrentTime()
	}
}

// RecordArtifactSize records the size of an uploaded artifact
func (c *Collector) RecordArtifactSize(size int64) {
	c.artifactSize.Set(float64(size))
}

// RecordPruned adds deleted objects to the prune counter
func (c *Collector) RecordPruned(count int) {
	c.prunedObjects.Add(float64(count))
}

// Enabled reports whether a Pushgateway is configured
func (c *Collector) Enabled() bool {
	return c.config.PushgatewayURL != ""
}

// Push sends every metric of the run to the Pushgateway. Without a
// configured URL it does nothing.
func (c *Collector) Push(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	err := push.New(c.config.PushgatewayURL, c.config.Job).
		Gatherer(c.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
