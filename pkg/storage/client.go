package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/williamokano/bucket_backuper/pkg/location"
)

// ObjectClient implements Client on top of a provider ObjectStore. Addressing,
// listing and copy dispatch are shared by every provider.
type ObjectClient struct {
	store     ObjectStore
	logger    zerolog.Logger
	chunkSize int64
}

// NewObjectClient wraps store. The upload part size is derived from the
// memory available when the client is created.
func NewObjectClient(store ObjectStore, logger zerolog.Logger) *ObjectClient {
	return &ObjectClient{
		store:     store,
		logger:    logger.With().Str("provider", store.Provider().Name()).Logger(),
		chunkSize: DefaultChunkSize(),
	}
}

// WithChunkSize overrides the upload part size
func (c *ObjectClient) WithChunkSize(size int64) *ObjectClient {
	c.chunkSize = size
	return c
}

func (c *ObjectClient) Provider() location.Provider { return c.store.Provider() }

func (c *ObjectClient) Close() error { return c.store.Close() }

// owns reports whether loc is a remote location of this client's provider
func (c *ObjectClient) owns(loc location.Location) bool {
	return loc.IsRemote() && loc.Provider() == c.store.Provider()
}

// remote parses uri and rejects anything that is not an address of this
// client's provider. No provider call is made for rejected input.
func (c *ObjectClient) remote(uri string) (location.Location, error) {
	loc, err := location.Parse(uri)
	if err != nil {
		return location.Location{}, err
	}
	if !c.owns(loc) {
		return location.Location{}, fmt.Errorf("%w: %q is not a %s location", ErrSchemeMismatch, uri, c.store.Provider().Scheme())
	}
	return loc, nil
}

// Exists reports whether ListFiles(uri) returns anything
func (c *ObjectClient) Exists(ctx context.Context, uri string) (bool, error) {
	files, err := c.ListFiles(ctx, uri)
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// ListFiles lists keys under uri.
//
// A uri ending in "/" is a folder: every key below it is returned, except the
// folder marker itself unless IncludeFolderInList is set. Any other uri is
// matched exactly, or as a key prefix when ExactMatch is false.
func (c *ObjectClient) ListFiles(ctx context.Context, uri string, opts ...ListOption) ([]string, error) {
	options := DefaultListOptions()
	for _, opt := range opts {
		opt(&options)
	}

	loc, err := c.remote(uri)
	if err != nil {
		return nil, err
	}

	keys, err := c.store.ListKeys(ctx, loc.Bucket(), loc.Key())
	if err != nil {
		return nil, &ListFailedError{URI: uri, Err: WrapError(c.store.Provider(), "list", err)}
	}
	if keys == nil {
		return nil, &ListFailedError{URI: uri}
	}

	query := loc.Key()
	files := make([]string, 0, len(keys))
	for _, key := range keys {
		if !matchKey(key, query, loc.IsFolder(), options) {
			continue
		}
		if options.AbsolutePath {
			files = append(files, loc.WithKey(key).String())
		} else {
			files = append(files, path.Base(key))
		}
	}

	c.logger.Debug().
		Str("uri", uri).
		Int("provider_keys", len(keys)).
		Int("matched", len(files)).
		Msg("listed objects")

	return files, nil
}

func matchKey(key, query string, folder bool, options ListOptions) bool {
	if !strings.HasPrefix(key, query) {
		return false
	}
	if folder {
		return key != query || options.IncludeFolderInList
	}
	if options.ExactMatch {
		return key == query
	}
	return true
}

// DeleteFile removes the object at uri
func (c *ObjectClient) DeleteFile(ctx context.Context, uri string) error {
	loc, err := c.remote(uri)
	if err != nil {
		return err
	}
	if loc.Key() == "" {
		return &location.InvalidURIError{URI: uri, Reason: "missing object key"}
	}

	if err := c.store.Delete(ctx, loc.Bucket(), loc.Key()); err != nil {
		return WrapError(c.store.Provider(), "delete", err)
	}

	c.logger.Debug().Str("uri", uri).Msg("deleted object")
	return nil
}

// CopyFile moves data between source and destination. Local to remote
// uploads, remote to local downloads and remote to remote copies server-side.
// At least one side must belong to this client's provider and the other must
// be either local or of the same provider.
func (c *ObjectClient) CopyFile(ctx context.Context, source, destination string) error {
	src, err := location.Parse(source)
	if err != nil {
		return err
	}
	dst, err := location.Parse(destination)
	if err != nil {
		return err
	}

	switch {
	case src.IsLocal() && c.owns(dst):
		return c.upload(ctx, src, dst)
	case c.owns(src) && dst.IsLocal():
		return c.download(ctx, src, dst)
	case c.owns(src) && c.owns(dst):
		return c.copy(ctx, src, dst)
	default:
		return &UnsupportedCopyError{
			Provider:    c.store.Provider(),
			Source:      source,
			Destination: destination,
		}
	}
}

func (c *ObjectClient) upload(ctx context.Context, src, dst location.Location) error {
	file, err := os.Open(src.Path())
	if err != nil {
		return fmt.Errorf("failed to open upload source: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat upload source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("upload source %s is a directory", src.Path())
	}

	target := dst
	if dst.IsFolder() {
		target = dst.Join(filepath.Base(src.Path()))
	}

	start := time.Now()
	if err := c.store.Upload(ctx, target.Bucket(), target.Key(), file, c.chunkSize); err != nil {
		return WrapError(c.store.Provider(), "upload", err)
	}

	c.logger.Info().
		Str("source", src.Path()).
		Str("destination", target.String()).
		Int64("size_bytes", info.Size()).
		Dur("duration", time.Since(start)).
		Msg("uploaded file")

	return nil
}

func (c *ObjectClient) download(ctx context.Context, src, dst location.Location) error {
	if src.IsFolder() {
		return &location.InvalidURIError{URI: src.String(), Reason: "cannot download a folder"}
	}

	target := dst.Path()
	if strings.HasSuffix(target, string(os.PathSeparator)) || isDir(target) {
		target = filepath.Join(target, src.Base())
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	// Download next to the target and rename, so a failed transfer never
	// leaves a truncated file under the final name.
	partial, err := os.CreateTemp(dir, "."+filepath.Base(target)+".part-*")
	if err != nil {
		return fmt.Errorf("failed to create download file: %w", err)
	}
	defer os.Remove(partial.Name())

	start := time.Now()
	err = c.store.Download(ctx, src.Bucket(), src.Key(), partial)
	if closeErr := partial.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return WrapError(c.store.Provider(), "download", err)
	}

	if err := os.Rename(partial.Name(), target); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	c.logger.Info().
		Str("source", src.String()).
		Str("destination", target).
		Dur("duration", time.Since(start)).
		Msg("downloaded file")

	return nil
}

func (c *ObjectClient) copy(ctx context.Context, src, dst location.Location) error {
	if src.IsFolder() {
		return &location.InvalidURIError{URI: src.String(), Reason: "cannot copy a folder"}
	}

	target := dst
	if dst.IsFolder() {
		target = dst.Join(src.Base())
	}

	if err := c.store.Copy(ctx, src.Bucket(), src.Key(), target.Bucket(), target.Key()); err != nil {
		return WrapError(c.store.Provider(), "copy", err)
	}

	c.logger.Info().
		Str("source", src.String()).
		Str("destination", target.String()).
		Msg("copied object")

	return nil
}

// UploadStream streams r to destination. The reader is consumed part by part,
// so a slow upload blocks the producer instead of buffering the stream.
func (c *ObjectClient) UploadStream(ctx context.Context, r io.Reader, suggestedName, destination string) error {
	dst, err := c.remote(destination)
	if err != nil {
		return err
	}

	target := dst
	if dst.IsFolder() {
		if suggestedName == "" {
			return &location.InvalidURIError{URI: destination, Reason: "folder destination needs an object name"}
		}
		target = dst.Join(suggestedName)
	}

	start := time.Now()
	counter := &countingReader{r: r}
	if err := c.store.Upload(ctx, target.Bucket(), target.Key(), counter, c.chunkSize); err != nil {
		return WrapError(c.store.Provider(), "upload stream", err)
	}

	c.logger.Info().
		Str("destination", target.String()).
		Int64("size_bytes", counter.n).
		Int64("chunk_size", c.chunkSize).
		Dur("duration", time.Since(start)).
		Msg("uploaded stream")

	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
