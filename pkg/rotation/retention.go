package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// DefaultConcurrency is the number of deletions run in parallel
const DefaultConcurrency = 4

// deleteAll deletes every uri and logs each deletion. A failed deletion does
// not stop the others; the failures are reported together.
func deleteAll(ctx context.Context, client storage.Client, uris []string, concurrency int, logger zerolog.Logger) ([]string, error) {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	var (
		mu      sync.Mutex
		deleted []string
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, uri := range uris {
		g.Go(func() error {
			if err := client.DeleteFile(ctx, uri); err != nil {
				logger.Error().
					Err(err).
					Str("file", uri).
					Msg("failed to delete backup file")

				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}

			event := logger.Info().Str("file", uri)
			if parsed, err := ParseBackupName(uri); err == nil {
				event = event.Time("backup_time", parsed.Timestamp)
			}
			event.Msgf("DELETED past backuped file on %s: %s", client.Provider().Name(), uri)

			mu.Lock()
			deleted = append(deleted, uri)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return deleted, fmt.Errorf("failed to delete %d out of %d files: %w", len(errs), len(uris), errors.Join(errs...))
	}

	logger.Info().
		Int("deleted", len(deleted)).
		Msg("backup prune completed")

	return deleted, nil
}
