package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/civicview/comment-service/domain"
)

const DefaultCommentCacheTTL = 5 * time.Minute

// commentRepository coordinates the store and the cache. The store is the
// source of truth; every mutation drops the cached copies it touches after
// the store write returns.
type commentRepository struct {
	db            domain.CommentRepository
	cache         domain.CommentCache
	ttl           time.Duration
	loadGroup     singleflight.Group
	mu            sync.Mutex
	rebuildingMap map[string]bool
}

var _ domain.CommentRepository = (*commentRepository)(nil)

func NewCommentRepository(db domain.CommentRepository, cache domain.CommentCache, ttl time.Duration) *commentRepository {
	if ttl <= 0 {
		ttl = DefaultCommentCacheTTL
	}
	return &commentRepository{
		db:            db,
		cache:         cache,
		ttl:           ttl,
		rebuildingMap: make(map[string]bool),
	}
}

func (r *commentRepository) invalidate(ctx context.Context, ids ...string) {
	if err := r.cache.DeleteComments(ctx, ids...); err != nil {
		logrus.Warnf("failed to invalidate cached comments %v: %v", ids, err)
	}
}

func (r *commentRepository) Insert(ctx context.Context, c *domain.Comment) error {
	return r.db.Insert(ctx, c)
}

// GetByID serves from cache with logical expiry; misses are loaded once per id.
func (r *commentRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	cached, expired, err := r.cache.GetComment(ctx, id)
	if err == nil {
		if expired {
			go r.rebuildComment(context.Background(), id)
		}
		return cached, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		logrus.Warnf("cache get error for comment %s: %v", id, err)
	}

	result, err, _ := r.loadGroup.Do("comment:"+id, func() (any, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return result.(domain.Comment), nil
}

// load reads the store and fills the cache under the version seen before the
// read, so a concurrent invalidation wins over this fill.
func (r *commentRepository) load(ctx context.Context, id string) (domain.Comment, error) {
	version, verErr := r.cache.Version(ctx, id)
	c, err := r.db.GetByID(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}
	if verErr != nil {
		logrus.Warnf("skip caching comment %s, version unavailable: %v", id, verErr)
		return c, nil
	}

	err = r.cache.SetComment(ctx, &c, version, r.ttl)
	switch {
	case errors.Is(err, domain.ErrCacheStale):
		logrus.Debugf("comment %s changed while loading, not cached", id)
	case err != nil:
		logrus.Warnf("failed to cache comment %s: %v", id, err)
	}
	return c, nil
}

func (r *commentRepository) FetchTopLevelByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	return r.db.FetchTopLevelByPost(ctx, postID)
}

func (r *commentRepository) FetchRepliesByParent(ctx context.Context, parentID string) ([]domain.Comment, error) {
	return r.db.FetchRepliesByParent(ctx, parentID)
}

func (r *commentRepository) Update(ctx context.Context, id string, patch domain.CommentPatch) (domain.Comment, error) {
	res, err := r.db.Update(ctx, id, patch)
	r.invalidate(ctx, id)
	return res, err
}

func (r *commentRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.db.DeleteByID(ctx, id)
	r.invalidate(ctx, id)
	return err
}

// DeleteManyByParent collects the reply ids first so their cached copies go
// together with the parent's.
func (r *commentRepository) DeleteManyByParent(ctx context.Context, parentID string) (int64, error) {
	replies, err := r.db.FetchRepliesByParent(ctx, parentID)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(replies)+1)
	ids = append(ids, parentID)
	for i := range replies {
		ids = append(ids, replies[i].ID)
	}

	n, err := r.db.DeleteManyByParent(ctx, parentID)
	r.invalidate(ctx, ids...)
	return n, err
}

func (r *commentRepository) CountAll(ctx context.Context) (int64, error) {
	return r.db.CountAll(ctx)
}

func (r *commentRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return r.db.CountSince(ctx, since)
}

func (r *commentRepository) AttachReply(ctx context.Context, parentID, replyID string) error {
	err := r.db.AttachReply(ctx, parentID, replyID)
	r.invalidate(ctx, parentID)
	return err
}

func (r *commentRepository) DetachReply(ctx context.Context, parentID, replyID string) error {
	err := r.db.DetachReply(ctx, parentID, replyID)
	r.invalidate(ctx, parentID, replyID)
	return err
}

func (r *commentRepository) ToggleLike(ctx context.Context, id, actorID string) (domain.Comment, error) {
	res, err := r.db.ToggleLike(ctx, id, actorID)
	r.invalidate(ctx, id)
	return res, err
}

func (r *commentRepository) Fetch(ctx context.Context, startIndex, limit int64, sort domain.SortDirection) ([]domain.Comment, error) {
	return r.db.Fetch(ctx, startIndex, limit, sort)
}

func (r *commentRepository) FetchIDs(ctx context.Context, cursor string, limit int64) ([]string, error) {
	return r.db.FetchIDs(ctx, cursor, limit)
}

func (r *commentRepository) ReconcileCounters(ctx context.Context, ids []string) error {
	err := r.db.ReconcileCounters(ctx, ids)
	r.invalidate(ctx, ids...)
	return err
}

// rebuildComment refreshes a logically expired entry in the background.
func (r *commentRepository) rebuildComment(ctx context.Context, id string) {
	r.mu.Lock()
	if r.rebuildingMap[id] {
		r.mu.Unlock()
		return
	}
	r.rebuildingMap[id] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.rebuildingMap, id)
		r.mu.Unlock()
	}()

	_, err, _ := r.loadGroup.Do("rebuild:"+id, func() (any, error) {
		c, err := r.load(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			r.invalidate(ctx, id)
		}
		return c, err
	})

	if err != nil {
		logrus.Errorf("rebuildComment failed for id %s: %v", id, err)
	}
}
