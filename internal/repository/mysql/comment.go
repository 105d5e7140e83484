package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicview/comment-service/domain"
	"github.com/civicview/comment-service/internal/repository/mysql/model"
)

type commentRepository struct {
	DB *gorm.DB
}

var _ domain.CommentRepository = (*commentRepository)(nil)

func NewCommentRepository(db *gorm.DB) *commentRepository {
	return &commentRepository{
		DB: db,
	}
}

type replyRef struct {
	ID       string
	ParentID string
}

// hydrate loads the like sets and reply ids of rows with two IN queries.
func (c *commentRepository) hydrate(ctx context.Context, rows []model.Comment) ([]domain.Comment, error) {
	if len(rows) == 0 {
		return []domain.Comment{}, nil
	}

	ids := make([]string, 0, len(rows))
	parentIDs := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
		if !rows[i].IsReply {
			parentIDs = append(parentIDs, rows[i].ID)
		}
	}

	var likes []model.CommentLike
	err := c.DB.WithContext(ctx).
		Where("comment_id IN ?", ids).
		Order("created_at").
		Find(&likes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load comment likes: %w", err)
	}
	likeMap := make(map[string][]string)
	for _, l := range likes {
		likeMap[l.CommentID] = append(likeMap[l.CommentID], l.UserID)
	}

	replyMap := make(map[string][]string)
	if len(parentIDs) > 0 {
		var refs []replyRef
		err = c.DB.WithContext(ctx).
			Model(&model.Comment{}).
			Select("id", "parent_id").
			Where("parent_id IN ?", parentIDs).
			Order("created_at ASC").
			Find(&refs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load comment replies: %w", err)
		}
		for _, r := range refs {
			replyMap[r.ParentID] = append(replyMap[r.ParentID], r.ID)
		}
	}

	res := make([]domain.Comment, len(rows))
	for i := range rows {
		res[i] = rows[i].ToDomain(likeMap[rows[i].ID], replyMap[rows[i].ID])
	}
	return res, nil
}

func (c *commentRepository) Insert(ctx context.Context, comment *domain.Comment) error {
	commentModel := model.NewCommentFromDomain(comment)
	if err := c.DB.WithContext(ctx).Create(commentModel).Error; err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	comment.ID = commentModel.ID
	comment.IsReply = commentModel.IsReply
	comment.CreatedAt = commentModel.CreatedAt
	comment.UpdatedAt = commentModel.UpdatedAt
	if comment.Likes == nil {
		comment.Likes = []string{}
	}
	if comment.Replies == nil {
		comment.Replies = []string{}
	}
	return nil
}

func (c *commentRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	var comment model.Comment
	err := c.DB.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("failed to get comment %s: %w", id, err)
	}

	res, err := c.hydrate(ctx, []model.Comment{comment})
	if err != nil {
		return domain.Comment{}, err
	}
	return res[0], nil
}

func (c *commentRepository) FetchTopLevelByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	var comments []model.Comment
	err := c.DB.WithContext(ctx).
		Where("post_id = ? AND is_reply = ?", postID, false).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments of post %s: %w", postID, err)
	}
	return c.hydrate(ctx, comments)
}

func (c *commentRepository) FetchRepliesByParent(ctx context.Context, parentID string) ([]domain.Comment, error) {
	var comments []model.Comment
	err := c.DB.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replies of %s: %w", parentID, err)
	}
	return c.hydrate(ctx, comments)
}

func (c *commentRepository) Update(ctx context.Context, id string, patch domain.CommentPatch) (domain.Comment, error) {
	if patch.Content != nil {
		err := c.DB.WithContext(ctx).
			Model(&model.Comment{}).
			Where("id = ?", id).
			Updates(map[string]any{"content": *patch.Content}).Error
		if err != nil {
			return domain.Comment{}, fmt.Errorf("failed to update comment %s: %w", id, err)
		}
	}
	// a missing row surfaces as ErrNotFound here
	return c.GetByID(ctx, id)
}

func (c *commentRepository) DeleteByID(ctx context.Context, id string) error {
	result := c.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *commentRepository) DeleteManyByParent(ctx context.Context, parentID string) (int64, error) {
	result := c.DB.WithContext(ctx).Where("parent_id = ?", parentID).Delete(&model.Comment{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete replies of %s: %w", parentID, result.Error)
	}
	return result.RowsAffected, nil
}

func (c *commentRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := c.DB.WithContext(ctx).Model(&model.Comment{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (c *commentRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := c.DB.WithContext(ctx).
		Model(&model.Comment{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count comments since %s: %w", since, err)
	}
	return n, nil
}

// Reply counters are never adjusted by a delta: every write recounts the child
// rows inside one UPDATE, so attach, detach and reconciliation can interleave
// in any order and still converge on the committed rows.
const (
	recountRepliesSQL = "UPDATE comments p " +
		"CROSS JOIN (SELECT COUNT(*) AS n FROM comments WHERE parent_id = ? AND id <> ?) r " +
		"SET p.reply_count = r.n, p.updated_at = ? " +
		"WHERE p.id = ? AND p.is_reply = ?"

	reconcileCountersSQL = "UPDATE comments c " +
		"LEFT JOIN (SELECT parent_id, COUNT(*) AS n FROM comments WHERE parent_id IN ? GROUP BY parent_id) r ON r.parent_id = c.id " +
		"LEFT JOIN (SELECT comment_id, COUNT(*) AS n FROM comment_likes WHERE comment_id IN ? GROUP BY comment_id) l ON l.comment_id = c.id " +
		"SET c.reply_count = COALESCE(r.n, 0), c.number_of_likes = COALESCE(l.n, 0) " +
		"WHERE c.id IN ?"
)

// recountReplies sets the parent's reply_count to its child rows, leaving out
// excludeID. The reply list itself is materialized from parent_id.
func (c *commentRepository) recountReplies(ctx context.Context, parentID, excludeID string) error {
	result := c.DB.WithContext(ctx).Exec(recountRepliesSQL, parentID, excludeID, time.Now(), parentID, false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// an unchanged count reports zero affected rows too
	var n int64
	err := c.DB.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id = ? AND is_reply = ?", parentID, false).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("failed to check parent %s: %w", parentID, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *commentRepository) AttachReply(ctx context.Context, parentID, replyID string) error {
	err := c.recountReplies(ctx, parentID, "")
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to attach reply %s to %s: %w", replyID, parentID, err)
	}
	return err
}

// DetachReply runs before the reply row is deleted, so the reply is left out
// of the count explicitly.
func (c *commentRepository) DetachReply(ctx context.Context, parentID, replyID string) error {
	err := c.recountReplies(ctx, parentID, replyID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to detach reply %s from %s: %w", replyID, parentID, err)
	}
	return err
}

func (c *commentRepository) ToggleLike(ctx context.Context, id, actorID string) (domain.Comment, error) {
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked model.Comment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", id).
			Take(&locked).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		removed := tx.Where("comment_id = ? AND user_id = ?", id, actorID).Delete(&model.CommentLike{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected == 0 {
			like := model.CommentLike{CommentID: id, UserID: actorID, CreatedAt: time.Now()}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Comment{}).
			Where("id = ?", id).
			UpdateColumn("number_of_likes", gorm.Expr("(SELECT COUNT(*) FROM comment_likes WHERE comment_id = ?)", id)).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Comment{}, err
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("failed to toggle like on %s: %w", id, err)
	}

	return c.GetByID(ctx, id)
}

func (c *commentRepository) Fetch(ctx context.Context, startIndex, limit int64, sort domain.SortDirection) ([]domain.Comment, error) {
	order := "created_at ASC"
	if sort == domain.SortDesc {
		order = "created_at DESC"
	}

	var comments []model.Comment
	err := c.DB.WithContext(ctx).
		Order(order).
		Offset(int(startIndex)).
		Limit(int(limit)).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return c.hydrate(ctx, comments)
}

func (c *commentRepository) FetchIDs(ctx context.Context, cursor string, limit int64) (ids []string, err error) {
	err = c.DB.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id > ?", cursor).
		Order("id").
		Limit(int(limit)).
		Pluck("id", &ids).Error
	return
}

// ReconcileCounters recounts replies and likes in a single statement; no
// value read beforehand is written back.
func (c *commentRepository) ReconcileCounters(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := c.DB.WithContext(ctx).Exec(reconcileCountersSQL, ids, ids, ids).Error
	if err != nil {
		return fmt.Errorf("failed to reconcile counters of %d comments: %w", len(ids), err)
	}
	return nil
}
