package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicview/comment-service/domain"
	"github.com/civicview/comment-service/internal/repository/cache"
)

const (
	KeyComment        = "comment:%s"
	KeyCommentVersion = "comment:%s:ver"

	// hard TTL is a multiple of the logical one so stale entries still get served
	// while a rebuild is running, but never linger forever
	hardTTLFactor = 3

	// versions must outlive any load that started before the bump
	versionTTL = time.Hour
)

// setIfVersionScript stores the entry only while the version counter still
// holds the value the caller read before loading from the store.
var setIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type commentCache struct {
	client *redis.Client
}

var _ domain.CommentCache = (*commentCache)(nil)

func NewCommentCache(client *redis.Client) *commentCache {
	return &commentCache{
		client,
	}
}

func (c *commentCache) GetComment(ctx context.Context, id string) (res domain.Comment, expired bool, err error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(KeyComment, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Comment{}, false, domain.ErrCacheMiss
	} else if err != nil {
		return domain.Comment{}, false, err
	}

	var wrapped cache.DataWithLogicalExpire[domain.Comment]
	if err = json.Unmarshal(data, &wrapped); err != nil {
		return domain.Comment{}, false, err
	}
	return wrapped.Data, wrapped.IsLogicalExpired(), nil
}

func (c *commentCache) Version(ctx context.Context, id string) (int64, error) {
	v, err := c.client.Get(ctx, fmt.Sprintf(KeyCommentVersion, id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetComment is a no-op when the comment was invalidated after version was read.
func (c *commentCache) SetComment(ctx context.Context, cm *domain.Comment, version int64, ttl time.Duration) error {
	data, err := json.Marshal(cache.NewDataWithLogicalExpire(*cm, ttl))
	if err != nil {
		return err
	}

	keys := []string{fmt.Sprintf(KeyComment, cm.ID), fmt.Sprintf(KeyCommentVersion, cm.ID)}
	stored, err := setIfVersionScript.Run(ctx, c.client, keys,
		strconv.FormatInt(version, 10),
		string(data),
		strconv.FormatInt((hardTTLFactor * ttl).Milliseconds(), 10),
	).Int()
	if err != nil {
		return err
	}
	if stored == 0 {
		return domain.ErrCacheStale
	}
	return nil
}

// DeleteComments bumps every version before dropping the entries, so fills
// that loaded before this call are rejected.
func (c *commentCache) DeleteComments(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	pipe := c.client.TxPipeline()
	for i, id := range ids {
		keys[i] = fmt.Sprintf(KeyComment, id)
		verKey := fmt.Sprintf(KeyCommentVersion, id)
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, versionTTL)
	}
	pipe.Del(ctx, keys...)

	_, err := pipe.Exec(ctx)
	return err
}
