package domain

import (
	"context"
	"time"
)

type CommentEventType string

const (
	EventCommentCreated CommentEventType = "comment.created"
	EventCommentEdited  CommentEventType = "comment.edited"
	EventCommentDeleted CommentEventType = "comment.deleted"
	EventCommentLiked   CommentEventType = "comment.liked"
	EventCommentUnliked CommentEventType = "comment.unliked"
)

type CommentEvent struct {
	Type       CommentEventType `json:"type"`
	CommentID  string           `json:"commentId"`
	PostID     string           `json:"postId"`
	ParentID   *string          `json:"parentId,omitempty"`
	ActorID    string           `json:"actorId"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, e CommentEvent) error
}
