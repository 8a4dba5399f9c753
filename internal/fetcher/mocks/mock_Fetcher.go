// Package mocks provides test doubles for the fetcher interfaces.
package mocks

import (
	"context"
	"io"

	mock "github.com/stretchr/testify/mock"
)

// MockFetcher is a mock type for the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

// Download provides a mock function with given fields: ctx, url
func (_m *MockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	ret := _m.Called(ctx, url)

	if len(ret) == 0 {
		panic("no return value specified for Download")
	}

	var r0 io.ReadCloser
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (io.ReadCloser, error)); ok {
		return rf(ctx, url)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(io.ReadCloser)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// DownloadToFile provides a mock function with given fields: ctx, url, path
func (_m *MockFetcher) DownloadToFile(ctx context.Context, url string, path string) (int64, error) {
	ret := _m.Called(ctx, url, path)

	if len(ret) == 0 {
		panic("no return value specified for DownloadToFile")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string) (int64, error)); ok {
		return rf(ctx, url, path)
	}

	var r0 int64
	if v, ok := ret.Get(0).(int64); ok {
		r0 = v
	}
	return r0, ret.Error(1)
}

// NewMockFetcher creates a new instance of MockFetcher.
func NewMockFetcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockFetcher {
	m := &MockFetcher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
