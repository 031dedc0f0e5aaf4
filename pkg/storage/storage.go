package storage

import (
	"context"
	"io"

	"github.com/williamokano/bucket_backuper/pkg/location"
)

// Client moves backup artifacts in and out of one object storage provider.
// All methods take location strings (s3://bucket/key, gs://bucket/key or a
// local path) and behave identically across providers.
type Client interface {
	// Provider returns the provider this client is bound to
	Provider() location.Provider

	// Exists reports whether ListFiles(uri) is non-empty
	Exists(ctx context.Context, uri string) (bool, error)

	// ListFiles returns the keys matching uri, see ListOptions for the matching rules
	ListFiles(ctx context.Context, uri string, opts ...ListOption) ([]string, error)

	// DeleteFile removes one object. Deleting a missing object is not an error.
	DeleteFile(ctx context.Context, uri string) error

	// CopyFile uploads, downloads or copies server-side depending on which
	// side of the pair is remote
	CopyFile(ctx context.Context, source, destination string) error

	// UploadStream writes a live byte stream to destination without a local temp file.
	// suggestedName names the object when destination is a folder.
	UploadStream(ctx context.Context, r io.Reader, suggestedName, destination string) error

	// Close releases the provider session
	Close() error
}

// ObjectStore is the provider-specific primitive layer under Client.
// Implementations only talk to the provider; addressing and listing rules
// live in ObjectClient.
type ObjectStore interface {
	Provider() location.Provider

	// ListKeys returns every key in bucket starting with prefix, exhausting
	// pagination. An empty result is a non-nil empty slice.
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)

	Delete(ctx context.Context, bucket, key string) error

	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// Upload streams r into bucket/key using parts of partSize bytes
	Upload(ctx context.Context, bucket, key string, r io.Reader, partSize int64) error

	Download(ctx context.Context, bucket, key string, w io.WriterAt) error

	Close() error
}

// Config carries the credentials for every provider. Only the section of the
// provider being constructed is read.
type Config struct {
	S3  S3Config  `json:"s3" yaml:"s3"`
	GCS GCSConfig `json:"gcs" yaml:"gcs"`
}

// S3Config holds S3 connection settings. All fields are optional when the
// host has a resolvable AWS credentials profile.
type S3Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`                   // Optional: MinIO, LocalStack, ...
	Region          string `json:"region" yaml:"region"`                       // AWS region
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`         // AWS credentials
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"` // Paired with AccessKeyID
	ForcePathStyle  bool   `json:"force_path_style" yaml:"force_path_style"`   // Implied by Endpoint
}

// GCSConfig holds Google Cloud Storage connection settings
type GCSConfig struct {
	ProjectID   string `json:"project_id" yaml:"project_id"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`         // Optional: emulator endpoint
	KeyFile     string `json:"key_file" yaml:"key_file"`         // Service account JSON key
	ClientEmail string `json:"client_email" yaml:"client_email"` // Used with PrivateKey instead of KeyFile
	PrivateKey  string `json:"private_key" yaml:"private_key"`   // May contain escaped "\n"
}

// ListOptions controls how ListFiles matches and formats keys
type ListOptions struct {
	// ExactMatch returns only the key equal to the query. When false every key
	// starting with the query is returned. Ignored for folder queries.
	ExactMatch bool

	// AbsolutePath returns full location strings. When false only the last
	// path segment is returned.
	AbsolutePath bool

	// IncludeFolderInList keeps the folder marker object (key equal to the
	// folder query) in folder listings.
	IncludeFolderInList bool
}

// DefaultListOptions returns exact matching with absolute paths and no folder marker
func DefaultListOptions() ListOptions {
	return ListOptions{
		ExactMatch:          true,
		AbsolutePath:        true,
		IncludeFolderInList: false,
	}
}

// ListOption modifies ListOptions
type ListOption func(*ListOptions)

// WithPrefixMatch returns every key starting with the query key
func WithPrefixMatch() ListOption {
	return func(o *ListOptions) { o.ExactMatch = false }
}

// WithRelativePaths returns bare file names instead of full locations
func WithRelativePaths() ListOption {
	return func(o *ListOptions) { o.AbsolutePath = false }
}

// WithFolderMarker keeps the folder marker object in folder listings
func WithFolderMarker() ListOption {
	return func(o *ListOptions) { o.IncludeFolderInList = true }
}

// WithListOptions replaces the options wholesale
func WithListOptions(opts ListOptions) ListOption {
	return func(o *ListOptions) { *o = opts }
}
