// Package mocks provides test doubles for the locator client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/sells-group/geoalarm/internal/model"
	locator "github.com/sells-group/geoalarm/pkg/locator"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CurrentPosition provides a mock function with given fields: ctx, accuracy
func (_m *MockClient) CurrentPosition(ctx context.Context, accuracy locator.Accuracy) (*model.Position, error) {
	ret := _m.Called(ctx, accuracy)

	if len(ret) == 0 {
		panic("no return value specified for CurrentPosition")
	}

	var r0 *model.Position
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, locator.Accuracy) (*model.Position, error)); ok {
		return rf(ctx, accuracy)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Position)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// LastKnownPosition provides a mock function with given fields: ctx
func (_m *MockClient) LastKnownPosition(ctx context.Context) (*model.Position, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for LastKnownPosition")
	}

	var r0 *model.Position
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*model.Position, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Position)
	}
	r1 = ret.Error(1)

	return r0, r1
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
