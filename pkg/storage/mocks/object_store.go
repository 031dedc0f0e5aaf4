// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/williamokano/bucket_backuper/pkg/location"
)

// MockObjectStore is a mock implementation of the storage.ObjectStore interface
type MockObjectStore struct {
	mock.Mock
}

// Provider provides a mock function with given fields:
func (m *MockObjectStore) Provider() location.Provider {
	ret := m.Called()

	var r0 location.Provider
	if rf, ok := ret.Get(0).(func() location.Provider); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(location.Provider)
	}

	return r0
}

// ListKeys provides a mock function with given fields: ctx, bucket, prefix
func (m *MockObjectStore) ListKeys(ctx context.Context, bucket string, prefix string) ([]string, error) {
	ret := m.Called(ctx, bucket, prefix)

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) ([]string, error)); ok {
		return rf(ctx, bucket, prefix)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, bucket, prefix)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Delete provides a mock function with given fields: ctx, bucket, key
func (m *MockObjectStore) Delete(ctx context.Context, bucket string, key string) error {
	ret := m.Called(ctx, bucket, key)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, bucket, key)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Copy provides a mock function with given fields: ctx, srcBucket, srcKey, dstBucket, dstKey
func (m *MockObjectStore) Copy(ctx context.Context, srcBucket string, srcKey string, dstBucket string, dstKey string) error {
	ret := m.Called(ctx, srcBucket, srcKey, dstBucket, dstKey)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, string) error); ok {
		r0 = rf(ctx, srcBucket, srcKey, dstBucket, dstKey)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Upload provides a mock function with given fields: ctx, bucket, key, r, partSize
func (m *MockObjectStore) Upload(ctx context.Context, bucket string, key string, r io.Reader, partSize int64) error {
	ret := m.Called(ctx, bucket, key, r, partSize)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, io.Reader, int64) error); ok {
		r0 = rf(ctx, bucket, key, r, partSize)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Download provides a mock function with given fields: ctx, bucket, key, w
func (m *MockObjectStore) Download(ctx context.Context, bucket string, key string, w io.WriterAt) error {
	ret := m.Called(ctx, bucket, key, w)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string, io.WriterAt) error); ok {
		r0 = rf(ctx, bucket, key, w)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with given fields:
func (m *MockObjectStore) Close() error {
	ret := m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockObjectStore creates a new instance of MockObjectStore
func NewMockObjectStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockObjectStore {
	mock_1 := &MockObjectStore{}
	mock_1.Mock.Test(t)

	t.Cleanup(func() { mock_1.AssertExpectations(t) })

	return mock_1
}
