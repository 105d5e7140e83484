package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/civicview/comment-service/domain"
)

// CommentUsecase is a mock type for the CommentUsecase type
type CommentUsecase struct {
	mock.Mock
}

func (_m *CommentUsecase) Create(ctx context.Context, in domain.NewComment, actor domain.Actor) (domain.Comment, error) {
	ret := _m.Called(ctx, in, actor)
	return ret.Get(0).(domain.Comment), ret.Error(1)
}

func (_m *CommentUsecase) ListTopLevel(ctx context.Context, postID string) ([]domain.Comment, error) {
	ret := _m.Called(ctx, postID)

	var r0 []domain.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentUsecase) ListReplies(ctx context.Context, parentID string) ([]domain.Comment, error) {
	ret := _m.Called(ctx, parentID)

	var r0 []domain.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Comment)
	}
	return r0, ret.Error(1)
}

func (_m *CommentUsecase) ToggleLike(ctx context.Context, commentID, actorID string) (domain.Comment, error) {
	ret := _m.Called(ctx, commentID, actorID)
	return ret.Get(0).(domain.Comment), ret.Error(1)
}

func (_m *CommentUsecase) Edit(ctx context.Context, commentID, content string, actor domain.Actor) (domain.Comment, error) {
	ret := _m.Called(ctx, commentID, content, actor)
	return ret.Get(0).(domain.Comment), ret.Error(1)
}

func (_m *CommentUsecase) Delete(ctx context.Context, commentID string, actor domain.Actor) error {
	ret := _m.Called(ctx, commentID, actor)
	return ret.Error(0)
}

func (_m *CommentUsecase) ListForModeration(ctx context.Context, q domain.ModerationQuery, actor domain.Actor) (domain.ModerationPage, error) {
	ret := _m.Called(ctx, q, actor)
	return ret.Get(0).(domain.ModerationPage), ret.Error(1)
}

func (_m *CommentUsecase) InitBloomFilter(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewCommentUsecase creates a new instance of CommentUsecase. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewCommentUsecase(t interface {
	mock.TestingT
	Cleanup(func())
}) *CommentUsecase {
	m := &CommentUsecase{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
