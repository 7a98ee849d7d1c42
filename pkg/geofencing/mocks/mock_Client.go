// Package mocks provides test doubles for the geofencing client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	geofencing "github.com/sells-group/geoalarm/pkg/geofencing"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// RegisterAll provides a mock function with given fields: ctx, regs
func (_m *MockClient) RegisterAll(ctx context.Context, regs []geofencing.Registration) error {
	ret := _m.Called(ctx, regs)

	if len(ret) == 0 {
		panic("no return value specified for RegisterAll")
	}

	if rf, ok := ret.Get(0).(func(context.Context, []geofencing.Registration) error); ok {
		return rf(ctx, regs)
	}
	return ret.Error(0)
}

// UnregisterAll provides a mock function with given fields: ctx
func (_m *MockClient) UnregisterAll(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for UnregisterAll")
	}

	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		return rf(ctx)
	}
	return ret.Error(0)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
