package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civicview/comment-service/domain"
)

type Comment struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	Content       string    `gorm:"type:text;not null"`
	PostID        string    `gorm:"column:post_id;type:varchar(64);not null;index"`
	UserID        string    `gorm:"column:user_id;type:varchar(64);not null"`
	ParentID      *string   `gorm:"column:parent_id;type:char(36);index"`
	IsReply       bool      `gorm:"column:is_reply;not null;default:false"`
	NumberOfLikes int64     `gorm:"column:number_of_likes;not null;default:0"`
	ReplyCount    int64     `gorm:"column:reply_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"type:datetime(3)"`
	UpdatedAt     time.Time `gorm:"type:datetime(3)"`
}

func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate assigns the opaque id
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func NewCommentFromDomain(c *domain.Comment) *Comment {
	return &Comment{
		ID:            c.ID,
		Content:       c.Content,
		PostID:        c.PostID,
		UserID:        c.UserID,
		ParentID:      c.ParentID,
		IsReply:       c.ParentID != nil,
		NumberOfLikes: c.NumberOfLikes,
		ReplyCount:    c.ReplyCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToDomain fills the like set and reply ids that live outside the comments row.
func (m *Comment) ToDomain(likes, replies []string) domain.Comment {
	if likes == nil {
		likes = []string{}
	}
	if replies == nil {
		replies = []string{}
	}
	return domain.Comment{
		ID:            m.ID,
		Content:       m.Content,
		PostID:        m.PostID,
		UserID:        m.UserID,
		Likes:         likes,
		NumberOfLikes: m.NumberOfLikes,
		ParentID:      m.ParentID,
		IsReply:       m.IsReply,
		Replies:       replies,
		ReplyCount:    m.ReplyCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
