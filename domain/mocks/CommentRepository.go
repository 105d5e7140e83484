package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/civicview/comment-service/domain"
)

// CommentRepository is a mock type for the CommentRepository type
type CommentRepository struct {
	mock.Mock
}

func (_m *CommentRepository) Insert(ctx context.Context, c *domain.Comment) error {
	ret := _m.Called(ctx, c)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *domain.Comment) error); ok {
		r0 = rf(ctx, c)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

func (_m *CommentRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	ret := _m.Called(ctx, id)

	var r0 domain.Comment
	if rf, ok := ret.Get(0).(func(context.Context, string) domain.Comment); ok {
		r0 = rf(ctx, id)
	} else {
		r0 = ret.Get(0).(domain.Comment)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

func (_m *CommentRepository) FetchTopLevelByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	ret := _m.Called(ctx, postID)

	var r0 []domain.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentRepository) FetchRepliesByParent(ctx context.Context, parentID string) ([]domain.Comment, error) {
	ret := _m.Called(ctx, parentID)

	var r0 []domain.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentRepository) Update(ctx context.Context, id string, patch domain.CommentPatch) (domain.Comment, error) {
	ret := _m.Called(ctx, id, patch)

	var r0 domain.Comment
	if rf, ok := ret.Get(0).(func(context.Context, string, domain.CommentPatch) domain.Comment); ok {
		r0 = rf(ctx, id, patch)
	} else {
		r0 = ret.Get(0).(domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentRepository) DeleteByID(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *CommentRepository) DeleteManyByParent(ctx context.Context, parentID string) (int64, error) {
	ret := _m.Called(ctx, parentID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *CommentRepository) CountAll(ctx context.Context) (int64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *CommentRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	ret := _m.Called(ctx, since)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *CommentRepository) AttachReply(ctx context.Context, parentID, replyID string) error {
	ret := _m.Called(ctx, parentID, replyID)
	return ret.Error(0)
}

func (_m *CommentRepository) DetachReply(ctx context.Context, parentID, replyID string) error {
	ret := _m.Called(ctx, parentID, replyID)
	return ret.Error(0)
}

func (_m *CommentRepository) ToggleLike(ctx context.Context, id, actorID string) (domain.Comment, error) {
	ret := _m.Called(ctx, id, actorID)

	var r0 domain.Comment
	if rf, ok := ret.Get(0).(func(context.Context, string, string) domain.Comment); ok {
		r0 = rf(ctx, id, actorID)
	} else {
		r0 = ret.Get(0).(domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentRepository) Fetch(ctx context.Context, startIndex, limit int64, sort domain.SortDirection) ([]domain.Comment, error) {
	ret := _m.Called(ctx, startIndex, limit, sort)

	var r0 []domain.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentRepository) FetchIDs(ctx context.Context, cursor string, limit int64) ([]string, error) {
	ret := _m.Called(ctx, cursor, limit)

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

func (_m *CommentRepository) ReconcileCounters(ctx context.Context, ids []string) error {
	ret := _m.Called(ctx, ids)
	return ret.Error(0)
}

// NewCommentRepository creates a new instance of CommentRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewCommentRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *CommentRepository {
	m := &CommentRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
