package comment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/civicview/comment-service/domain"
)

// memoryStore is an in-process domain.CommentRepository used by the scenario tests.
type memoryStore struct {
	mu   sync.Mutex
	seq  int
	base time.Time
	rows map[string]*domain.Comment
}

func newMemoryStore(base time.Time) *memoryStore {
	return &memoryStore{base: base, rows: make(map[string]*domain.Comment)}
}

func clone(c *domain.Comment) domain.Comment {
	res := *c
	res.Likes = slices.Clone(c.Likes)
	res.Replies = slices.Clone(c.Replies)
	if res.Likes == nil {
		res.Likes = []string{}
	}
	if res.Replies == nil {
		res.Replies = []string{}
	}
	return res
}

func (m *memoryStore) sorted(keep func(*domain.Comment) bool, desc bool) []domain.Comment {
	res := []domain.Comment{}
	for _, c := range m.rows {
		if keep(c) {
			res = append(res, clone(c))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if desc {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

func (m *memoryStore) Insert(_ context.Context, c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	c.ID = fmt.Sprintf("c%04d", m.seq)
	c.CreatedAt = m.base.Add(time.Duration(m.seq) * time.Second)
	c.UpdatedAt = c.CreatedAt
	c.IsReply = c.ParentID != nil
	stored := clone(c)
	m.rows[c.ID] = &stored
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id string) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.rows[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return clone(c), nil
}

func (m *memoryStore) FetchTopLevelByPost(_ context.Context, postID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sorted(func(c *domain.Comment) bool {
		return c.PostID == postID && !c.IsReply
	}, true), nil
}

func (m *memoryStore) FetchRepliesByParent(_ context.Context, parentID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sorted(func(c *domain.Comment) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	}, true), nil
}

func (m *memoryStore) Update(_ context.Context, id string, patch domain.CommentPatch) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.rows[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	if patch.Content != nil {
		c.Content = *patch.Content
		c.UpdatedAt = c.UpdatedAt.Add(time.Millisecond)
	}
	return clone(c), nil
}

func (m *memoryStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryStore) DeleteManyByParent(_ context.Context, parentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, c := range m.rows {
		if c.ParentID != nil && *c.ParentID == parentID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CountAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memoryStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, c := range m.rows {
		if !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) AttachReply(_ context.Context, parentID, replyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.rows[parentID]
	if !ok || p.IsReply {
		return domain.ErrNotFound
	}
	p.Replies = append(p.Replies, replyID)
	p.ReplyCount++
	return nil
}

func (m *memoryStore) DetachReply(_ context.Context, parentID, replyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.rows[parentID]
	if !ok {
		return domain.ErrNotFound
	}
	if i := slices.Index(p.Replies, replyID); i >= 0 {
		p.Replies = slices.Delete(p.Replies, i, i+1)
	}
	if p.ReplyCount > 0 {
		p.ReplyCount--
	}
	return nil
}

func (m *memoryStore) ToggleLike(_ context.Context, id, actorID string) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.rows[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	if i := slices.Index(c.Likes, actorID); i >= 0 {
		c.Likes = slices.Delete(c.Likes, i, i+1)
		c.NumberOfLikes--
	} else {
		c.Likes = append(c.Likes, actorID)
		c.NumberOfLikes++
	}
	return clone(c), nil
}

func (m *memoryStore) Fetch(_ context.Context, startIndex, limit int64, sortDir domain.SortDirection) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.sorted(func(*domain.Comment) bool { return true }, sortDir == domain.SortDesc)
	if startIndex >= int64(len(all)) {
		return []domain.Comment{}, nil
	}
	end := min(startIndex+limit, int64(len(all)))
	return all[startIndex:end], nil
}

func (m *memoryStore) FetchIDs(_ context.Context, cursor string, limit int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := []string{}
	for id := range m.rows {
		if id > cursor {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memoryStore) ReconcileCounters(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		c, ok := m.rows[id]
		if !ok {
			continue
		}
		replies := []string{}
		for _, r := range m.rows {
			if r.ParentID != nil && *r.ParentID == id {
				replies = append(replies, r.ID)
			}
		}
		c.Replies = replies
		c.ReplyCount = int64(len(replies))
		c.NumberOfLikes = int64(len(c.Likes))
	}
	return nil
}

// memoryBloom never reports false negatives for ids it was given. failAdds
// makes that many Add calls fail first.
type memoryBloom struct {
	mu       sync.Mutex
	ids      map[string]struct{}
	ready    bool
	failAdds int
}

func newMemoryBloom() *memoryBloom {
	return &memoryBloom{ids: make(map[string]struct{})}
}

func (b *memoryBloom) Add(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAdds > 0 {
		b.failAdds--
		return errors.New("i/o timeout")
	}
	b.ids[id] = struct{}{}
	return nil
}

func (b *memoryBloom) Exists(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return false, domain.ErrBloomNotReady
	}
	_, ok := b.ids[id]
	return ok, nil
}

func (b *memoryBloom) BulkAdd(_ context.Context, ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		b.ids[id] = struct{}{}
	}
	return nil
}

func (b *memoryBloom) Reset(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = make(map[string]struct{})
	b.ready = false
	return nil
}

func (b *memoryBloom) MarkReady(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = true
	return nil
}

type recordingReconciler struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingReconciler) Start(context.Context) {}

func (r *recordingReconciler) Send(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CommentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.CommentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []domain.CommentEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]domain.CommentEventType, len(p.events))
	for i, e := range p.events {
		res[i] = e.Type
	}
	return res
}
