package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

const defaultRegion = "us-east-1"

// Store talks to S3 or an S3-compatible endpoint
type Store struct {
	client *s3.Client
}

var _ storage.ObjectStore = (*Store)(nil)

func init() {
	storage.RegisterProvider(location.ProviderS3, func(ctx context.Context, cfg storage.Config) (storage.ObjectStore, error) {
		return New(ctx, cfg.S3)
	})
}

// New creates an S3 store. Credentials are checked before any network call.
func New(ctx context.Context, cfg storage.S3Config) (*Store, error) {
	if err := Validate(ctx, cfg); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, storage.WrapError(location.ProviderS3, "init", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		} else {
			o.UsePathStyle = cfg.ForcePathStyle
		}
	})

	return &Store{client: client}, nil
}

func (s *Store) Provider() location.Provider { return location.ProviderS3 }

// ListKeys lists every key under prefix, following continuation tokens
func (s *Store) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	keys := []string{}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, storage.ErrNoResponse
		}

		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// Delete removes an object. S3 reports success for missing keys.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// Copy performs a server-side copy
func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(srcBucket, srcKey)),
	})
	return err
}

// Upload streams r with the multipart upload manager. The manager reads one
// part at a time and aborts the multipart upload when any part fails.
func (s *Store) Upload(ctx context.Context, bucket, key string, r io.Reader, partSize int64) error {
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		if partSize > 0 {
			u.PartSize = partSize
		}
		u.LeavePartsOnError = false
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	return err
}

// Download writes the object into w using ranged parallel gets
func (s *Store) Download(ctx context.Context, bucket, key string, w io.WriterAt) error {
	downloader := manager.NewDownloader(s.client)

	_, err := downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

// Close is a no-op for S3
func (s *Store) Close() error {
	return nil
}

func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/%s", bucket, strings.Join(segments, "/"))
}
