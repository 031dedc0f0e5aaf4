// Package memory provides an in-process ObjectStore used to exercise the
// shared client semantics without a provider.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// Store keeps objects in a map keyed by bucket and key
type Store struct {
	provider location.Provider

	mu      sync.RWMutex
	objects map[string]map[string][]byte
	calls   map[string]int
}

// New creates an empty store reporting the given provider
func New(provider location.Provider) *Store {
	return &Store{
		provider: provider,
		objects:  make(map[string]map[string][]byte),
		calls:    make(map[string]int),
	}
}

var _ storage.ObjectStore = (*Store)(nil)

func (s *Store) Provider() location.Provider { return s.provider }

// Put stores data directly, bypassing call accounting
func (s *Store) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(bucket, key, data)
}

func (s *Store) put(bucket, key string, data []byte) {
	if s.objects[bucket] == nil {
		s.objects[bucket] = make(map[string][]byte)
	}
	s.objects[bucket][key] = append([]byte(nil), data...)
}

// Get returns a copy of an object's content
func (s *Store) Get(bucket, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Keys returns all keys of a bucket in lexical order
func (s *Store) Keys(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects[bucket]))
	for key := range s.objects[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns how many times an operation (ListKeys, Delete, ...) ran
func (s *Store) Calls(operation string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[operation]
}

func (s *Store) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls["ListKeys"]++
	s.mu.Unlock()

	keys := []string{}
	for _, key := range s.Keys(bucket) {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Delete"]++
	delete(s.objects[bucket], key)
	return nil
}

func (s *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Copy"]++
	data, ok := s.objects[srcBucket][srcKey]
	if !ok {
		return fmt.Errorf("copy source %s/%s: %w", srcBucket, srcKey, errNotFound)
	}
	s.put(dstBucket, dstKey, data)
	return nil
}

func (s *Store) Upload(ctx context.Context, bucket, key string, r io.Reader, _ int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Upload"]++
	s.put(bucket, key, buf.Bytes())
	return nil
}

func (s *Store) Download(ctx context.Context, bucket, key string, w io.WriterAt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.calls["Download"]++
	data, ok := s.objects[bucket][key]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("download %s/%s: %w", bucket, key, errNotFound)
	}
	_, err := w.WriteAt(data, 0)
	return err
}

func (s *Store) Close() error { return nil }

var errNotFound = errors.New("object not found")
