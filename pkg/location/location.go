// Package location parses backup source and destination strings into typed
// addresses. A string is either a remote object address (s3://bucket/key,
// gs://bucket/key) or a plain local filesystem path.
package location

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Provider identifies an object storage backend
type Provider string

const (
	ProviderS3  Provider = "s3"
	ProviderGCS Provider = "gs"
)

// Scheme returns the URI prefix for the provider (e.g., "s3://")
func (p Provider) Scheme() string {
	return string(p) + "://"
}

// Name returns a human-readable provider name used in logs
func (p Provider) Name() string {
	switch p {
	case ProviderS3:
		return "S3"
	case ProviderGCS:
		return "GCS"
	default:
		return string(p)
	}
}

// schemes is the closed set of recognized remote prefixes
var schemes = []Provider{ProviderS3, ProviderGCS}

var bucketPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

const maxBucketLength = 222

// ErrNotRemote is returned by ParseRemote for strings that are local paths
var ErrNotRemote = errors.New("not a remote location")

// InvalidURIError reports a string that starts with a recognized scheme but
// does not form a valid bucket address.
type InvalidURIError struct {
	URI    string
	Reason string
}

func (e *InvalidURIError) Error() string {
	return fmt.Sprintf("invalid URI %q: %s", e.URI, e.Reason)
}

// Location is either a local path or a provider-scoped bucket/key address.
// The zero value is an empty local path.
type Location struct {
	provider Provider
	bucket   string
	key      string
	path     string
}

// Local builds a local filesystem location
func Local(p string) Location {
	return Location{path: p}
}

// Remote builds a remote object location
func Remote(provider Provider, bucket, key string) Location {
	return Location{provider: provider, bucket: bucket, key: key}
}

// Parse converts a location string into a Location. Strings without a
// recognized scheme are local paths and never produce an error.
func Parse(uri string) (Location, error) {
	for _, provider := range schemes {
		scheme := provider.Scheme()
		if !strings.HasPrefix(uri, scheme) {
			continue
		}

		rest := strings.TrimPrefix(uri, scheme)
		bucket, key, _ := strings.Cut(rest, "/")

		if bucket == "" {
			return Location{}, &InvalidURIError{URI: uri, Reason: "missing bucket name"}
		}
		if len(bucket) > maxBucketLength || !bucketPattern.MatchString(bucket) {
			return Location{}, &InvalidURIError{URI: uri, Reason: fmt.Sprintf("malformed bucket name %q", bucket)}
		}

		return Remote(provider, bucket, key), nil
	}

	return Local(uri), nil
}

// ParseRemote is Parse restricted to remote locations. Local paths yield
// ErrNotRemote.
func ParseRemote(uri string) (Location, error) {
	loc, err := Parse(uri)
	if err != nil {
		return Location{}, err
	}
	if loc.IsLocal() {
		return Location{}, fmt.Errorf("%w: %s", ErrNotRemote, uri)
	}
	return loc, nil
}

func (l Location) IsLocal() bool  { return l.provider == "" }
func (l Location) IsRemote() bool { return l.provider != "" }

func (l Location) Provider() Provider { return l.provider }
func (l Location) Bucket() string     { return l.bucket }
func (l Location) Key() string        { return l.key }
func (l Location) Path() string       { return l.path }

// IsFolder reports whether a remote location addresses a folder: either the
// bucket root or a key ending in "/".
func (l Location) IsFolder() bool {
	if l.IsLocal() {
		return false
	}
	return l.key == "" || strings.HasSuffix(l.key, "/")
}

// Base returns the last element of the key or path
func (l Location) Base() string {
	if l.IsLocal() {
		return filepath.Base(l.path)
	}
	if l.key == "" {
		return l.bucket
	}
	return path.Base(l.key)
}

// WithKey returns a copy of a remote location pointing at another key in the
// same bucket.
func (l Location) WithKey(key string) Location {
	return Remote(l.provider, l.bucket, key)
}

// Join appends name to a folder location. For remote locations the key is
// concatenated as-is so the folder prefix is preserved exactly.
func (l Location) Join(name string) Location {
	if l.IsLocal() {
		return Local(filepath.Join(l.path, name))
	}
	if l.key != "" && !strings.HasSuffix(l.key, "/") {
		return l.WithKey(l.key + "/" + name)
	}
	return l.WithKey(l.key + name)
}

// String reconstructs the location string
func (l Location) String() string {
	if l.IsLocal() {
		return l.path
	}
	if l.key == "" {
		return l.provider.Scheme() + l.bucket
	}
	return l.provider.Scheme() + l.bucket + "/" + l.key
}
