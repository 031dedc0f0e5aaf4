package gcs

import (
	"context"
	"errors"
	"io"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// Store talks to Google Cloud Storage or an emulator
type Store struct {
	client *gstorage.Client
}

var _ storage.ObjectStore = (*Store)(nil)

func init() {
	storage.RegisterProvider(location.ProviderGCS, func(ctx context.Context, cfg storage.Config) (storage.ObjectStore, error) {
		return New(ctx, cfg.GCS)
	})
}

// New creates a GCS store. A custom endpoint is treated as an emulator and
// used without authentication.
func New(ctx context.Context, cfg storage.GCSConfig) (*Store, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := gstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, storage.WrapError(location.ProviderGCS, "init", err)
	}

	return &Store{client: client}, nil
}

func clientOptions(cfg storage.GCSConfig) ([]option.ClientOption, error) {
	if cfg.Endpoint != "" {
		return []option.ClientOption{
			option.WithEndpoint(cfg.Endpoint),
			option.WithoutAuthentication(),
		}, nil
	}

	if cfg.KeyFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(cfg.KeyFile)}, nil
	}

	creds, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, storage.WrapError(location.ProviderGCS, "encode credentials", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(creds)}, nil
}

func (s *Store) Provider() location.Provider { return location.ProviderGCS }

// ListKeys lists every object name under prefix
func (s *Store) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys := []string{}

	it := s.client.Bucket(bucket).Objects(ctx, &gstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs == nil {
			return nil, storage.ErrNoResponse
		}
		keys = append(keys, attrs.Name)
	}

	return keys, nil
}

// Delete removes an object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	err := s.client.Bucket(bucket).Object(key).Delete(ctx)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// Copy performs a server-side copy
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src := s.client.Bucket(srcBucket).Object(srcKey)
	dst := s.client.Bucket(dstBucket).Object(dstKey)

	_, err := dst.CopierFrom(src).Run(ctx)
	return err
}

// Upload streams r through a resumable upload. The object is only finalized
// by a successful Close; on error the writer context is cancelled first.
func (s *Store) Upload(ctx context.Context, bucket, key string, r io.Reader, partSize int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if partSize > 0 {
		w.ChunkSize = int(partSize)
	}

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return err
	}

	return w.Close()
}

// Download writes the object into w
func (s *Store) Download(ctx context.Context, bucket, key string, w io.WriterAt) error {
	rc, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(io.NewOffsetWriter(w, 0), rc)
	return err
}

// Close releases the underlying HTTP client
func (s *Store) Close() error {
	return s.client.Close()
}
