package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civicview/comment-service/domain"
)

const CommentCollection = "comments"

// commentDocument keeps the field names of the original comments collection.
type commentDocument struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	Content       string               `bson:"content"`
	PostID        string               `bson:"postId"`
	UserID        string               `bson:"userId"`
	Likes         []string             `bson:"likes"`
	NumberOfLikes int64                `bson:"numberOfLikes"`
	ParentID      *primitive.ObjectID  `bson:"parentId"`
	IsReply       bool                 `bson:"isReply"`
	Replies       []primitive.ObjectID `bson:"replies"`
	ReplyCount    int64                `bson:"replyCount"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

// parseID maps a malformed hex id to ErrNotFound: no document can carry it.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrNotFound
	}
	return oid, nil
}

func newDocumentFromDomain(c *domain.Comment) (*commentDocument, error) {
	doc := &commentDocument{
		Content:       c.Content,
		PostID:        c.PostID,
		UserID:        c.UserID,
		Likes:         c.Likes,
		NumberOfLikes: int64(len(c.Likes)),
		IsReply:       c.ParentID != nil,
		Replies:       []primitive.ObjectID{},
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if doc.Likes == nil {
		doc.Likes = []string{}
	}
	if c.ParentID != nil {
		pid, err := parseID(*c.ParentID)
		if err != nil {
			return nil, err
		}
		doc.ParentID = &pid
	}
	return doc, nil
}

func (d *commentDocument) toDomain() domain.Comment {
	res := domain.Comment{
		ID:            d.ID.Hex(),
		Content:       d.Content,
		PostID:        d.PostID,
		UserID:        d.UserID,
		Likes:         d.Likes,
		NumberOfLikes: d.NumberOfLikes,
		IsReply:       d.IsReply,
		Replies:       make([]string, len(d.Replies)),
		ReplyCount:    d.ReplyCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if res.Likes == nil {
		res.Likes = []string{}
	}
	if d.ParentID != nil {
		pid := d.ParentID.Hex()
		res.ParentID = &pid
	}
	for i, r := range d.Replies {
		res.Replies[i] = r.Hex()
	}
	return res
}
