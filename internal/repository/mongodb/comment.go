package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicview/comment-service/domain"
)

const (
	toggleLikeMaxAttempts = 3
	reconcileMaxAttempts  = 3
)

type commentRepository struct {
	coll *mongo.Collection
}

var _ domain.CommentRepository = (*commentRepository)(nil)

func NewCommentRepository(db *mongo.Database) *commentRepository {
	return &commentRepository{
		coll: db.Collection(CommentCollection),
	}
}

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the listing queries rely on.
func (r *commentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "isReply", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "parentId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}
	return nil
}

func (r *commentRepository) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]domain.Comment, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []commentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	res := make([]domain.Comment, len(docs))
	for i := range docs {
		res[i] = docs[i].toDomain()
	}
	return res, nil
}

func (r *commentRepository) Insert(ctx context.Context, c *domain.Comment) error {
	doc, err := newDocumentFromDomain(c)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	*c = doc.toDomain()
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	oid, err := parseID(id)
	if err != nil {
		return domain.Comment{}, err
	}

	var doc commentDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("failed to get comment %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

func (r *commentRepository) FetchTopLevelByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	res, err := r.find(ctx,
		bson.M{"postId": postID, "isReply": false},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments of post %s: %w", postID, err)
	}
	return res, nil
}

func (r *commentRepository) FetchRepliesByParent(ctx context.Context, parentID string) ([]domain.Comment, error) {
	oid, err := parseID(parentID)
	if err != nil {
		return []domain.Comment{}, nil
	}
	res, err := r.find(ctx,
		bson.M{"parentId": oid},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch replies of %s: %w", parentID, err)
	}
	return res, nil
}

func (r *commentRepository) Update(ctx context.Context, id string, patch domain.CommentPatch) (domain.Comment, error) {
	oid, err := parseID(id)
	if err != nil {
		return domain.Comment{}, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}

	var doc commentDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("failed to update comment %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

func (r *commentRepository) DeleteByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *commentRepository) DeleteManyByParent(ctx context.Context, parentID string) (int64, error) {
	oid, err := parseID(parentID)
	if err != nil {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"parentId": oid})
	if err != nil {
		return 0, fmt.Errorf("failed to delete replies of %s: %w", parentID, err)
	}
	return res.DeletedCount, nil
}

func (r *commentRepository) CountAll(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (r *commentRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("failed to count comments since %s: %w", since, err)
	}
	return n, nil
}

// orEmpty reads an array field, treating a missing one as empty.
func orEmpty(field string) bson.D {
	return bson.D{{Key: "$ifNull", Value: bson.A{field, bson.A{}}}}
}

// setReplies rewrites the reply list with expr and recounts it in the same
// update, so replyCount cannot drift from the array.
func setReplies(expr any, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "replies", Value: expr}}}},
		{{Key: "$set", Value: bson.D{
			{Key: "replyCount", Value: bson.D{{Key: "$size", Value: "$replies"}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
}

// AttachReply is idempotent: a reply already listed is not appended twice.
func (r *commentRepository) AttachReply(ctx context.Context, parentID, replyID string) error {
	pid, err := parseID(parentID)
	if err != nil {
		return err
	}
	rid, err := parseID(replyID)
	if err != nil {
		return err
	}

	appended := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$in", Value: bson.A{rid, orEmpty("$replies")}}},
		"$replies",
		bson.D{{Key: "$concatArrays", Value: bson.A{orEmpty("$replies"), bson.A{rid}}}},
	}}}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": pid, "isReply": false},
		setReplies(appended, time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to attach reply %s to %s: %w", replyID, parentID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *commentRepository) DetachReply(ctx context.Context, parentID, replyID string) error {
	pid, err := parseID(parentID)
	if err != nil {
		return err
	}
	rid, err := parseID(replyID)
	if err != nil {
		return err
	}

	kept := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: orEmpty("$replies")},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", rid}}}},
	}}}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": pid, "isReply": false},
		setReplies(kept, time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to detach reply %s from %s: %w", replyID, parentID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ToggleLike flips membership with conditional single-document updates, so the
// array and the counter always move together.
func (r *commentRepository) ToggleLike(ctx context.Context, id, actorID string) (domain.Comment, error) {
	oid, err := parseID(id)
	if err != nil {
		return domain.Comment{}, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for range toggleLikeMaxAttempts {
		var doc commentDocument
		now := time.Now().UTC()

		err = r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "likes": bson.M{"$ne": actorID}},
			bson.M{
				"$push": bson.M{"likes": actorID},
				"$inc":  bson.M{"numberOfLikes": 1},
				"$set":  bson.M{"updatedAt": now},
			},
			opts,
		).Decode(&doc)
		if err == nil {
			return doc.toDomain(), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Comment{}, fmt.Errorf("failed to like comment %s: %w", id, err)
		}

		err = r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "likes": actorID},
			bson.M{
				"$pull": bson.M{"likes": actorID},
				"$inc":  bson.M{"numberOfLikes": -1},
				"$set":  bson.M{"updatedAt": now},
			},
			opts,
		).Decode(&doc)
		if err == nil {
			return doc.toDomain(), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Comment{}, fmt.Errorf("failed to unlike comment %s: %w", id, err)
		}

		// neither branch matched: the comment is gone or a concurrent toggle won
		if _, err := r.GetByID(ctx, id); err != nil {
			return domain.Comment{}, err
		}
	}

	return domain.Comment{}, fmt.Errorf("failed to toggle like on %s: %w", id, domain.ErrConflict)
}

func (r *commentRepository) Fetch(ctx context.Context, startIndex, limit int64, sort domain.SortDirection) ([]domain.Comment, error) {
	dir := 1
	if sort == domain.SortDesc {
		dir = -1
	}
	res, err := r.find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: dir}}).
			SetSkip(startIndex).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	return res, nil
}

func (r *commentRepository) FetchIDs(ctx context.Context, cursor string, limit int64) ([]string, error) {
	filter := bson.M{}
	if cursor != "" {
		oid, err := primitive.ObjectIDFromHex(cursor)
		if err != nil {
			return nil, domain.ErrBadParamInput
		}
		filter["_id"] = bson.M{"$gt": oid}
	}

	cur, err := r.coll.Find(ctx, filter,
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan comment ids: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID.Hex()
	}
	return ids, nil
}

// ReconcileCounters rebuilds the reply list from parentId and recounts both
// counters. The write is guarded on the reply list read beforehand and is
// retried when an attach or detach lands in between.
func (r *commentRepository) ReconcileCounters(ctx context.Context, ids []string) error {
	for _, id := range ids {
		oid, err := parseID(id)
		if err != nil {
			continue
		}
		if err := r.reconcileOne(ctx, oid); err != nil {
			return err
		}
	}
	return nil
}

func (r *commentRepository) reconcileOne(ctx context.Context, oid primitive.ObjectID) error {
	for range reconcileMaxAttempts {
		var current struct {
			Replies []primitive.ObjectID `bson:"replies"`
		}
		err := r.coll.FindOne(ctx,
			bson.M{"_id": oid},
			options.FindOne().SetProjection(bson.M{"replies": 1}),
		).Decode(&current)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load comment %s: %w", oid.Hex(), err)
		}

		replies, err := r.childIDs(ctx, oid)
		if err != nil {
			return fmt.Errorf("failed to load replies of %s: %w", oid.Hex(), err)
		}

		filter := bson.M{"_id": oid, "replies": current.Replies}
		if len(current.Replies) == 0 {
			filter = bson.M{"_id": oid, "$or": bson.A{
				bson.M{"replies": bson.A{}},
				bson.M{"replies": nil},
			}}
		}
		res, err := r.coll.UpdateOne(ctx, filter, mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "replies", Value: bson.D{{Key: "$literal", Value: replies}}},
				{Key: "replyCount", Value: len(replies)},
				{Key: "numberOfLikes", Value: bson.D{{Key: "$size", Value: orEmpty("$likes")}}},
			}}},
		})
		if err != nil {
			return fmt.Errorf("failed to reconcile counters of %s: %w", oid.Hex(), err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return fmt.Errorf("failed to reconcile counters of %s: %w", oid.Hex(), domain.ErrConflict)
}

func (r *commentRepository) childIDs(ctx context.Context, parent primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"parentId": parent},
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var children []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &children); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(children))
	for i := range children {
		ids[i] = children[i].ID
	}
	return ids, nil
}
