// Package mocks provides test doubles for the reconsvc client.
package mocks

import (
	"context"

	reconsvc "github.com/sells-group/recon-cli/pkg/reconsvc"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Match provides a mock function with given fields: ctx, req
func (_m *MockClient) Match(ctx context.Context, req reconsvc.MatchRequest) (*reconsvc.MatchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Match")
	}

	var r0 *reconsvc.MatchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, reconsvc.MatchRequest) (*reconsvc.MatchResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, reconsvc.MatchRequest) *reconsvc.MatchResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*reconsvc.MatchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, reconsvc.MatchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
