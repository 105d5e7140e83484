package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// CounterReconciler is a mock type for the CounterReconciler type
type CounterReconciler struct {
	mock.Mock
}

func (_m *CounterReconciler) Start(ctx context.Context) {
	_m.Called(ctx)
}

func (_m *CounterReconciler) Send(commentID string) {
	_m.Called(commentID)
}

// NewCounterReconciler creates a new instance of CounterReconciler. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewCounterReconciler(t interface {
	mock.TestingT
	Cleanup(func())
}) *CounterReconciler {
	m := &CounterReconciler{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
