package domain

import (
	"context"
	"errors"
)

// ErrBloomNotReady is returned by Exists when the filter was never completed
// or its contents were lost, so an absent bit proves nothing.
var ErrBloomNotReady = errors.New("bloom filter is not warmed")

type BloomRepository interface {
	// Add puts the id into the filter
	Add(ctx context.Context, id string) error

	// Exists reports whether the id may exist.
	// true: maybe present, look it up in cache/store
	// false: definitely absent, answer NotFound directly
	Exists(ctx context.Context, id string) (bool, error)

	// BulkAdd is used to warm the filter
	BulkAdd(ctx context.Context, ids []string) error

	// Reset drops every bit, including the ready flag.
	Reset(ctx context.Context) error

	// MarkReady flags the filter as holding every stored id.
	MarkReady(ctx context.Context) error
}

// BloomWarmer rebuilds the filter from the store when it is not complete.
type BloomWarmer interface {
	InitBloomFilter(ctx context.Context) error
}
