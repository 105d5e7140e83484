package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civicview/comment-service/domain"
)

type bloomWarmer struct {
	Warmer   domain.BloomWarmer
	interval time.Duration
}

func NewBloomWarmer(w domain.BloomWarmer, interval time.Duration) *bloomWarmer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &bloomWarmer{
		Warmer:   w,
		interval: interval,
	}
}

// Start retries the warm-up every tick until ctx is done. A complete filter
// makes each tick a no-op.
func (b *bloomWarmer) Start(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Warmer.InitBloomFilter(ctx); err != nil && ctx.Err() == nil {
				logrus.Errorf("bloom filter re-warm failed: %v", err)
			}
		case <-ctx.Done():
			logrus.Info("shutting down BloomWarmer")
			return
		}
	}
}
