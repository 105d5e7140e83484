package model

import "time"

// CommentLike is one member of a comment's like set.
// (comment_id, user_id) is unique.
type CommentLike struct {
	CommentID string    `gorm:"column:comment_id;type:char(36);primaryKey"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"type:datetime(3)"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
