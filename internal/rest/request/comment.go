package request

import "github.com/civicview/comment-service/domain"

type CreateComment struct {
	Content  string  `json:"content" binding:"required"`
	PostID   string  `json:"postId" binding:"required"`
	UserID   string  `json:"userId"`
	ParentID *string `json:"parentId"`
}

// ToDomain: Request -> Domain. A missing userId defaults to the caller.
func (r *CreateComment) ToDomain(actor domain.Actor) domain.NewComment {
	userID := r.UserID
	if userID == "" {
		userID = actor.ID
	}
	return domain.NewComment{
		Content:  r.Content,
		PostID:   r.PostID,
		UserID:   userID,
		ParentID: r.ParentID,
	}
}

type EditComment struct {
	Content string `json:"content" binding:"required"`
}

type ModerationQuery struct {
	StartIndex int64  `form:"startIndex" binding:"min=0"`
	Limit      int64  `form:"limit" binding:"min=0"`
	Sort       string `form:"sort" binding:"omitempty,oneof=asc desc"`
}

func (q *ModerationQuery) ToDomain() domain.ModerationQuery {
	return domain.ModerationQuery{
		StartIndex: q.StartIndex,
		Limit:      q.Limit,
		Sort:       domain.SortDirection(q.Sort),
	}
}
