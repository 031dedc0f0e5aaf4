// Package healthcheck notifies an external monitor after a successful backup
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// Pinger sends a GET request to a monitoring URL
type Pinger struct {
	url    string
	retry  RetryConfig
	client *http.Client
	logger zerolog.Logger
}

// Option configures a Pinger
type Option func(*Pinger)

// WithRetryConfig overrides the attempt count and delay
func WithRetryConfig(cfg RetryConfig) Option {
	return func(p *Pinger) { p.retry = cfg }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pinger) { p.client = client }
}

// New creates a pinger for url
func New(url string, logger zerolog.Logger, opts ...Option) *Pinger {
	p := &Pinger{
		url:    url,
		retry:  DefaultRetryConfig(),
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.With().Str("component", "healthcheck").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping calls the URL until it answers 2xx or the attempts run out
func (p *Pinger) Ping(ctx context.Context) error {
	return WithRetry(ctx, p.retry, func(attempt int) error {
		err := p.ping(ctx)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", p.retry.MaxAttempts).
				Msg("health check ping failed")
			return err
		}

		p.logger.Debug().Int("attempt", attempt).Msg("health check ping sent")
		return nil
	})
}

func (p *Pinger) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("invalid health check url: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
