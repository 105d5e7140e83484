package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/civicview/comment-service/domain"
)

const defaultBloomBackoff = 20 * time.Millisecond

type service struct {
	commentRepo domain.CommentRepository
	bloomRepo   domain.BloomRepository
	reconciler  domain.CounterReconciler
	publisher   domain.EventPublisher
	validate    *validator.Validate
	now         func() time.Time

	bloomGate    bloomGate
	bloomBackoff time.Duration
	warmMu       sync.Mutex
}

var _ domain.CommentUsecase = (*service)(nil)

func NewService(
	commentRepo domain.CommentRepository,
	bloomRepo domain.BloomRepository,
	reconciler domain.CounterReconciler,
	publisher domain.EventPublisher,
) *service {
	return &service{
		commentRepo:  commentRepo,
		bloomRepo:    bloomRepo,
		reconciler:   reconciler,
		publisher:    publisher,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		now:          time.Now,
		bloomBackoff: defaultBloomBackoff,
	}
}

func (s *service) getComment(ctx context.Context, id string) (domain.Comment, error) {
	if err := s.mustExists(ctx, id); err != nil {
		return domain.Comment{}, err
	}
	return s.commentRepo.GetByID(ctx, id)
}

func (s *service) publish(ctx context.Context, typ domain.CommentEventType, c *domain.Comment, actorID string) {
	err := s.publisher.Publish(ctx, domain.CommentEvent{
		Type:       typ,
		CommentID:  c.ID,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		logrus.Warnf("failed to publish %s for comment %s: %v", typ, c.ID, err)
	}
}

func (s *service) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content must not be empty", domain.ErrBadParamInput)
	}
	if err := s.validate.Var(content, "max=2000"); err != nil {
		return fmt.Errorf("%w: content is too long", domain.ErrBadParamInput)
	}
	return nil
}

// Create inserts the comment and, for a reply, attaches it to its parent.
// The two writes commit independently; a failed attach leaves the reply stored
// and queues the parent for counter reconciliation.
func (s *service) Create(ctx context.Context, in domain.NewComment, actor domain.Actor) (domain.Comment, error) {
	if actor.ID == "" || actor.ID != in.UserID {
		return domain.Comment{}, domain.ErrForbidden
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Comment{}, fmt.Errorf("%w: %v", domain.ErrBadParamInput, err)
	}
	if err := s.validateContent(in.Content); err != nil {
		return domain.Comment{}, err
	}

	if in.ParentID != nil {
		parent, err := s.getComment(ctx, *in.ParentID)
		if err != nil {
			return domain.Comment{}, err
		}
		if parent.IsReply {
			return domain.Comment{}, fmt.Errorf("%w: replies cannot be replied to", domain.ErrBadParamInput)
		}
		if parent.PostID != in.PostID {
			return domain.Comment{}, fmt.Errorf("%w: parent comment belongs to another post", domain.ErrBadParamInput)
		}
	}

	c := domain.Comment{
		Content:  in.Content,
		PostID:   in.PostID,
		UserID:   in.UserID,
		ParentID: in.ParentID,
		IsReply:  in.ParentID != nil,
		Likes:    []string{},
		Replies:  []string{},
	}
	if err := s.commentRepo.Insert(ctx, &c); err != nil {
		return domain.Comment{}, err
	}
	s.addToBloom(ctx, c.ID)

	if c.ParentID != nil {
		if err := s.commentRepo.AttachReply(ctx, *c.ParentID, c.ID); err != nil {
			s.reconciler.Send(*c.ParentID)
			return domain.Comment{}, err
		}
	}

	s.publish(ctx, domain.EventCommentCreated, &c, actor.ID)
	return c, nil
}

func (s *service) ListTopLevel(ctx context.Context, postID string) ([]domain.Comment, error) {
	if postID == "" {
		return nil, domain.ErrBadParamInput
	}
	return s.commentRepo.FetchTopLevelByPost(ctx, postID)
}

// ListReplies trusts the parent's replyCount: zero means no store query.
func (s *service) ListReplies(ctx context.Context, parentID string) ([]domain.Comment, error) {
	parent, err := s.getComment(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.ReplyCount == 0 {
		return []domain.Comment{}, nil
	}
	return s.commentRepo.FetchRepliesByParent(ctx, parentID)
}

func (s *service) ToggleLike(ctx context.Context, commentID, actorID string) (domain.Comment, error) {
	if actorID == "" {
		return domain.Comment{}, domain.ErrUnauthorized
	}
	if err := s.mustExists(ctx, commentID); err != nil {
		return domain.Comment{}, err
	}

	res, err := s.commentRepo.ToggleLike(ctx, commentID, actorID)
	if err != nil {
		return domain.Comment{}, err
	}

	typ := domain.EventCommentUnliked
	if res.LikedBy(actorID) {
		typ = domain.EventCommentLiked
	}
	s.publish(ctx, typ, &res, actorID)
	return res, nil
}

func (s *service) Edit(ctx context.Context, commentID, content string, actor domain.Actor) (domain.Comment, error) {
	c, err := s.getComment(ctx, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	if !actor.CanModify(&c) {
		return domain.Comment{}, domain.ErrForbidden
	}
	if err := s.validateContent(content); err != nil {
		return domain.Comment{}, err
	}

	res, err := s.commentRepo.Update(ctx, commentID, domain.CommentPatch{Content: &content})
	if err != nil {
		return domain.Comment{}, err
	}
	s.publish(ctx, domain.EventCommentEdited, &res, actor.ID)
	return res, nil
}

// Delete removes a comment. A top-level comment takes its replies with it;
// a reply is detached from its parent first, tolerating a parent that is gone.
// Completed steps are not rolled back if a later one fails.
func (s *service) Delete(ctx context.Context, commentID string, actor domain.Actor) error {
	c, err := s.getComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !actor.CanModify(&c) {
		return domain.ErrForbidden
	}

	switch c.Kind() {
	case domain.TopLevel:
		if c.ReplyCount > 0 {
			n, err := s.commentRepo.DeleteManyByParent(ctx, c.ID)
			if err != nil {
				return err
			}
			logrus.Debugf("cascade deleted %d replies of comment %s", n, c.ID)
		}
	case domain.Reply:
		err := s.commentRepo.DetachReply(ctx, *c.ParentID, c.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	if err := s.commentRepo.DeleteByID(ctx, c.ID); err != nil {
		return err
	}
	if c.ParentID != nil {
		s.reconciler.Send(*c.ParentID)
	}

	s.publish(ctx, domain.EventCommentDeleted, &c, actor.ID)
	return nil
}

// ListForModeration returns one page of every comment plus the total and the
// number created since the same day of the previous calendar month.
func (s *service) ListForModeration(ctx context.Context, q domain.ModerationQuery, actor domain.Actor) (domain.ModerationPage, error) {
	if !actor.IsAdmin {
		return domain.ModerationPage{}, domain.ErrForbidden
	}
	q = q.Normalize()
	oneMonthAgo := s.now().AddDate(0, -1, 0)

	var (
		comments  []domain.Comment
		total     int64
		lastMonth int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		comments, err = s.commentRepo.Fetch(gctx, q.StartIndex, q.Limit, q.Sort)
		return
	})
	g.Go(func() (err error) {
		total, err = s.commentRepo.CountAll(gctx)
		return
	})
	g.Go(func() (err error) {
		lastMonth, err = s.commentRepo.CountSince(gctx, oneMonthAgo)
		return
	})
	if err := g.Wait(); err != nil {
		return domain.ModerationPage{}, err
	}

	if comments == nil {
		comments = []domain.Comment{}
	}
	return domain.ModerationPage{
		Comments:          comments,
		TotalComments:     total,
		LastMonthComments: lastMonth,
	}, nil
}
