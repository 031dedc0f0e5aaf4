package storage

import (
	"errors"
	"fmt"

	"github.com/williamokano/bucket_backuper/pkg/location"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrSchemeMismatch = errors.New("location does not belong to this provider")
	ErrNoResponse     = errors.New("provider returned no response")
	ErrLocalLocation  = errors.New("local path has no storage provider")
)

// ListFailedError reports a listing the provider could not answer
type ListFailedError struct {
	URI string
	Err error
}

func (e *ListFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to list %s: %v", e.URI, e.Err)
	}
	return fmt.Sprintf("failed to list %s: empty provider response", e.URI)
}

func (e *ListFailedError) Unwrap() error { return e.Err }

// UnsupportedCopyError reports a source/destination pair the client cannot move data between
type UnsupportedCopyError struct {
	Provider    location.Provider
	Source      string
	Destination string
}

func (e *UnsupportedCopyError) Error() string {
	return fmt.Sprintf("%s client cannot copy %s to %s: one side must be a %s location",
		e.Provider.Name(), e.Source, e.Destination, e.Provider.Scheme())
}

// UnknownProviderError reports a provider tag with no client implementation
type UnknownProviderError struct {
	Provider location.Provider
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown storage provider: %q", string(e.Provider))
}

// WrapError adds context to an error
func WrapError(provider location.Provider, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, provider.Name(), err)
}
