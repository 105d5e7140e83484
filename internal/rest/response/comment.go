package response

import (
	"time"

	"github.com/civicview/comment-service/domain"
)

type Comment struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	PostID        string    `json:"postId"`
	UserID        string    `json:"userId"`
	Likes         []string  `json:"likes"`
	NumberOfLikes int64     `json:"numberOfLikes"`
	ParentID      *string   `json:"parentId"`
	IsReply       bool      `json:"isReply"`
	Replies       []string  `json:"replies"`
	ReplyCount    int64     `json:"replyCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewCommentFromDomain: Domain -> Response
func NewCommentFromDomain(c *domain.Comment) Comment {
	likes := c.Likes
	if likes == nil {
		likes = []string{}
	}
	replies := c.Replies
	if replies == nil {
		replies = []string{}
	}
	return Comment{
		ID:            c.ID,
		Content:       c.Content,
		PostID:        c.PostID,
		UserID:        c.UserID,
		Likes:         likes,
		NumberOfLikes: c.NumberOfLikes,
		ParentID:      c.ParentID,
		IsReply:       c.IsReply,
		Replies:       replies,
		ReplyCount:    c.ReplyCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func NewCommentsFromDomain(cs []domain.Comment) []Comment {
	res := make([]Comment, len(cs))
	for i := range cs {
		res[i] = NewCommentFromDomain(&cs[i])
	}
	return res
}

type ModerationPage struct {
	Comments          []Comment `json:"comments"`
	TotalComments     int64     `json:"totalComments"`
	LastMonthComments int64     `json:"lastMonthComments"`
}

func NewModerationPageFromDomain(p *domain.ModerationPage) ModerationPage {
	return ModerationPage{
		Comments:          NewCommentsFromDomain(p.Comments),
		TotalComments:     p.TotalComments,
		LastMonthComments: p.LastMonthComments,
	}
}
