package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// BloomRepository is a mock type for the BloomRepository type
type BloomRepository struct {
	mock.Mock
}

func (_m *BloomRepository) Add(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *BloomRepository) Exists(ctx context.Context, id string) (bool, error) {
	ret := _m.Called(ctx, id)
	return ret.Bool(0), ret.Error(1)
}

func (_m *BloomRepository) BulkAdd(ctx context.Context, ids []string) error {
	ret := _m.Called(ctx, ids)
	return ret.Error(0)
}

func (_m *BloomRepository) Reset(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func (_m *BloomRepository) MarkReady(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewBloomRepository creates a new instance of BloomRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewBloomRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *BloomRepository {
	m := &BloomRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
