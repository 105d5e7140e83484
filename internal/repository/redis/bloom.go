package redis

import (
	"context"
	"hash/fnv"

	"github.com/redis/go-redis/v9"

	"github.com/civicview/comment-service/domain"
)

const (
	DefaultBloomKey    = "bloom:comment:ids"
	DefaultBloomHashes = 3

	// ids per pipeline while warming
	bloomBulkChunk = 500
)

// commentBloom is a bitmap bloom filter over comment ids kept in one Redis
// string. Bit `bits` (one past the last hashed position) is the ready flag: it
// lives in the same key, so losing the key also drops the flag.
type commentBloom struct {
	client *redis.Client
	key    string
	bits   uint64
	hashes uint64
}

var _ domain.BloomRepository = (*commentBloom)(nil)

func NewCommentBloom(client *redis.Client, key string, bits uint64, hashes int) *commentBloom {
	if key == "" {
		key = DefaultBloomKey
	}
	if hashes <= 0 {
		hashes = DefaultBloomHashes
	}
	return &commentBloom{
		client: client,
		key:    key,
		bits:   bits,
		hashes: uint64(hashes),
	}
}

// positions derives the bit positions by double hashing the two halves of a
// 128-bit FNV-1a digest: p_i = h1 + i*h2 mod bits.
func (b *commentBloom) positions(id string) []int64 {
	h := fnv.New128a()
	h.Write([]byte(id))
	sum := h.Sum(nil)

	var h1, h2 uint64
	for i := 0; i < 8; i++ {
		h1 = h1<<8 | uint64(sum[i])
		h2 = h2<<8 | uint64(sum[8+i])
	}
	// an even step could cycle over a fraction of an even-sized bitmap
	h2 |= 1

	res := make([]int64, b.hashes)
	for i := uint64(0); i < b.hashes; i++ {
		res[i] = int64((h1 + i*h2) % b.bits)
	}
	return res
}

func (b *commentBloom) setBits(ctx context.Context, pipe redis.Pipeliner, id string) {
	for _, pos := range b.positions(id) {
		pipe.SetBit(ctx, b.key, pos, 1)
	}
}

func (b *commentBloom) Add(ctx context.Context, id string) error {
	pipe := b.client.Pipeline()
	b.setBits(ctx, pipe, id)
	_, err := pipe.Exec(ctx)
	return err
}

func (b *commentBloom) Exists(ctx context.Context, id string) (bool, error) {
	pipe := b.client.Pipeline()
	ready := pipe.GetBit(ctx, b.key, int64(b.bits))
	checks := make([]*redis.IntCmd, 0, b.hashes)
	for _, pos := range b.positions(id) {
		checks = append(checks, pipe.GetBit(ctx, b.key, pos))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if ready.Val() == 0 {
		return false, domain.ErrBloomNotReady
	}
	for _, cmd := range checks {
		if cmd.Val() == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (b *commentBloom) BulkAdd(ctx context.Context, ids []string) error {
	for start := 0; start < len(ids); start += bloomBulkChunk {
		end := min(start+bloomBulkChunk, len(ids))
		pipe := b.client.Pipeline()
		for _, id := range ids[start:end] {
			b.setBits(ctx, pipe, id)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *commentBloom) Reset(ctx context.Context) error {
	return b.client.Del(ctx, b.key).Err()
}

func (b *commentBloom) MarkReady(ctx context.Context) error {
	return b.client.SetBit(ctx, b.key, int64(b.bits), 1).Err()
}
