// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/williamokano/bucket_backuper/pkg/location"
	"github.com/williamokano/bucket_backuper/pkg/storage"
)

// MockClient is a mock implementation of the storage.Client interface
type MockClient struct {
	mock.Mock
}

// Provider provides a mock function with given fields:
func (m *MockClient) Provider() location.Provider {
	ret := m.Called()

	var r0 location.Provider
	if rf, ok := ret.Get(0).(func() location.Provider); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(location.Provider)
	}

	return r0
}

// Exists provides a mock function with given fields: ctx, uri
func (m *MockClient) Exists(ctx context.Context, uri string) (bool, error) {
	ret := m.Called(ctx, uri)

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (bool, error)); ok {
		return rf(ctx, uri)
	}
	r0 = ret.Get(0).(bool)

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, uri)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListFiles provides a mock function with given fields: ctx, uri, opts
func (m *MockClient) ListFiles(ctx context.Context, uri string, opts ...storage.ListOption) ([]string, error) {
	// Options are resolved so expectations can match on the effective ListOptions
	resolved := storage.DefaultListOptions()
	for _, opt := range opts {
		opt(&resolved)
	}

	ret := m.Called(ctx, uri, resolved)

	var r0 []string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, storage.ListOptions) ([]string, error)); ok {
		return rf(ctx, uri, resolved)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, storage.ListOptions) error); ok {
		r1 = rf(ctx, uri, resolved)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteFile provides a mock function with given fields: ctx, uri
func (m *MockClient) DeleteFile(ctx context.Context, uri string) error {
	ret := m.Called(ctx, uri)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string) error); ok {
		r0 = rf(ctx, uri)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CopyFile provides a mock function with given fields: ctx, source, destination
func (m *MockClient) CopyFile(ctx context.Context, source string, destination string) error {
	ret := m.Called(ctx, source, destination)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) error); ok {
		r0 = rf(ctx, source, destination)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// UploadStream provides a mock function with given fields: ctx, r, suggestedName, destination
func (m *MockClient) UploadStream(ctx context.Context, r io.Reader, suggestedName string, destination string) error {
	ret := m.Called(ctx, r, suggestedName, destination)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, io.Reader, string, string) error); ok {
		r0 = rf(ctx, r, suggestedName, destination)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with given fields:
func (m *MockClient) Close() error {
	ret := m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockClient creates a new instance of MockClient
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock_1 := &MockClient{}
	mock_1.Mock.Test(t)

	t.Cleanup(func() { mock_1.AssertExpectations(t) })

	return mock_1
}
