package domain

import (
	"context"
	"time"
)

// CommentKind tells a top-level comment apart from a reply.
// Replies never own replies, so there is no third kind.
type CommentKind int8

const (
	TopLevel CommentKind = iota
	Reply
)

func (k CommentKind) String() string {
	switch k {
	case TopLevel:
		return "TOP_LEVEL"
	case Reply:
		return "REPLY"
	default:
		return "UNKNOWN"
	}
}

// Comment is the sole entity of the comment subsystem.
// NumberOfLikes mirrors len(Likes) and ReplyCount mirrors len(Replies).
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

// Kind derives the variant from the parent reference.
func (c *Comment) Kind() CommentKind {
	if c.ParentID != nil {
		return Reply
	}
	return TopLevel
}

// LikedBy reports whether actorID is in the like set.
func (c *Comment) LikedBy(actorID string) bool {
	for _, id := range c.Likes {
		if id == actorID {
			return true
		}
	}
	return false
}

// NewComment is the create request. UserID is the author asserted by the caller,
// which is checked against the authenticated Actor.
type NewComment struct {
	Content  string  `validate:"required,max=2000"`
	PostID   string  `validate:"required"`
	UserID   string  `validate:"required"`
	ParentID *string `validate:"omitempty,min=1"`
}

// CommentPatch is a partial update. Only content is mutable.
type CommentPatch struct {
	Content *string
}

// Actor is the identity resolved by the access control guard.
type Actor struct {
	ID      string
	IsAdmin bool
}

// CanModify reports whether the actor may edit or delete c.
func (a Actor) CanModify(c *Comment) bool {
	return a.IsAdmin || (a.ID != "" && a.ID == c.UserID)
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const (
	DefaultModerationLimit = 9
	MaxModerationLimit     = 100
)

// ModerationQuery selects one page of the unfiltered comment listing.
type ModerationQuery struct {
	StartIndex int64
	Limit      int64
	Sort       SortDirection
}

// Normalize applies the listing defaults: start 0, limit 9, ascending unless desc.
func (q ModerationQuery) Normalize() ModerationQuery {
	if q.StartIndex < 0 {
		q.StartIndex = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultModerationLimit
	}
	if q.Limit > MaxModerationLimit {
		q.Limit = MaxModerationLimit
	}
	if q.Sort != SortDesc {
		q.Sort = SortAsc
	}
	return q
}

type ModerationPage struct {
	Comments          []Comment `json:"comments"`
	TotalComments     int64     `json:"totalComments"`
	LastMonthComments int64     `json:"lastMonthComments"`
}

// CommentRepository defines the contract for comment persistence.
type CommentRepository interface {
	// Insert persists a new comment and backfills ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, c *Comment) error

	// GetByID returns ErrNotFound if the comment doesn't exist.
	GetByID(ctx context.Context, id string) (Comment, error)

	// FetchTopLevelByPost returns the non-reply comments of a post, newest first.
	FetchTopLevelByPost(ctx context.Context, postID string) ([]Comment, error)

	// FetchRepliesByParent returns the replies of a comment, newest first.
	FetchRepliesByParent(ctx context.Context, parentID string) ([]Comment, error)

	// Update applies patch and returns the updated record.
	// Returns ErrNotFound if the comment doesn't exist.
	Update(ctx context.Context, id string, patch CommentPatch) (Comment, error)

	DeleteByID(ctx context.Context, id string) error

	// DeleteManyByParent removes every reply of parentID and returns how many were removed.
	DeleteManyByParent(ctx context.Context, parentID string) (int64, error)

	CountAll(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)

	// AttachReply appends replyID to the parent's replies and increments replyCount
	// in one store operation. Returns ErrNotFound if the parent doesn't exist.
	AttachReply(ctx context.Context, parentID, replyID string) error

	// DetachReply is the inverse of AttachReply.
	DetachReply(ctx context.Context, parentID, replyID string) error

	// ToggleLike adds actorID to likes or removes it, keeping numberOfLikes in step.
	ToggleLike(ctx context.Context, id, actorID string) (Comment, error)

	// Fetch pages over every comment regardless of post or reply status.
	Fetch(ctx context.Context, startIndex, limit int64, sort SortDirection) ([]Comment, error)

	// FetchIDs scans ids greater than cursor in ascending order.
	FetchIDs(ctx context.Context, cursor string, limit int64) ([]string, error)

	// ReconcileCounters recomputes replyCount and numberOfLikes from the
	// authoritative reply and like data of the given comments.
	ReconcileCounters(ctx context.Context, ids []string) error
}

type CommentCache interface {
	GetComment(ctx context.Context, id string) (res Comment, expired bool, err error)

	// Version returns the invalidation counter of id. Read it before loading
	// from the store and hand it to SetComment.
	Version(ctx context.Context, id string) (int64, error)

	// SetComment returns ErrCacheStale and stores nothing if id was
	// invalidated since version was read.
	SetComment(ctx context.Context, c *Comment, version int64, ttl time.Duration) error

	// DeleteComments drops the entries and bumps their versions.
	DeleteComments(ctx context.Context, ids ...string) error
}

type CommentUsecase interface {
	Create(ctx context.Context, in NewComment, actor Actor) (Comment, error)
	ListTopLevel(ctx context.Context, postID string) ([]Comment, error)
	ListReplies(ctx context.Context, parentID string) ([]Comment, error)
	ToggleLike(ctx context.Context, commentID, actorID string) (Comment, error)
	Edit(ctx context.Context, commentID, content string, actor Actor) (Comment, error)
	Delete(ctx context.Context, commentID string, actor Actor) error
	ListForModeration(ctx context.Context, q ModerationQuery, actor Actor) (ModerationPage, error)
	InitBloomFilter(ctx context.Context) error
}
