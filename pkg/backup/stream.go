package backup

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

var errUploadAborted = errors.New("upload aborted")

// uploadStream copies src into a pipe read by the storage client. The pipe
// has no buffer, so a slow upload blocks the producer. Whichever side fails
// first cancels the other, and src is always closed.
func (r *Runner) uploadStream(ctx context.Context, src io.ReadCloser, name, destination string) (Result, error) {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	var size int64
	g.Go(func() error {
		n, err := io.Copy(pw, src)
		size = n
		if closeErr := src.Close(); err == nil {
			err = closeErr
		}
		_ = pw.CloseWithError(err)
		return err
	})

	g.Go(func() error {
		err := r.Client.UploadStream(gctx, pr, name, destination)
		if err != nil {
			_ = pr.CloseWithError(err)
			return err
		}
		// the client stops at EOF; anything left means it returned early
		_ = pr.CloseWithError(errUploadAborted)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Location: objectLocation(destination, name),
		Size:     size,
	}, nil
}

// chainedCloser closes several closers in order and reports the first error
type chainedCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *chainedCloser) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
