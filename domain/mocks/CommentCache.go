package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/civicview/comment-service/domain"
)

// CommentCache is a mock type for the CommentCache type
type CommentCache struct {
	mock.Mock
}

func (_m *CommentCache) GetComment(ctx context.Context, id string) (domain.Comment, bool, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(domain.Comment), ret.Bool(1), ret.Error(2)
}

func (_m *CommentCache) Version(ctx context.Context, id string) (int64, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *CommentCache) SetComment(ctx context.Context, c *domain.Comment, version int64, ttl time.Duration) error {
	ret := _m.Called(ctx, c, version, ttl)
	return ret.Error(0)
}

func (_m *CommentCache) DeleteComments(ctx context.Context, ids ...string) error {
	ret := _m.Called(ctx, ids)
	return ret.Error(0)
}

// NewCommentCache creates a new instance of CommentCache. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewCommentCache(t interface {
	mock.TestingT
	Cleanup(func())
}) *CommentCache {
	m := &CommentCache{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
