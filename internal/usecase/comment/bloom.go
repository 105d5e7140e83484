package comment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civicview/comment-service/domain"
)

const (
	bloomWarmupBatch = 1000
	bloomAddAttempts = 3
	bloomAddTimeout  = time.Second
)

var errBloomWarmupInterrupted = errors.New("bloom filter missed an id during warm-up")

// bloomGate is open only while the filter holds every stored id. A missed Add
// closes it; a warm-up reopens it unless something closed it meanwhile.
type bloomGate struct {
	mu    sync.Mutex
	open  bool
	epoch uint64
}

func (g *bloomGate) isOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *bloomGate) close() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	g.epoch++
	return g.epoch
}

func (g *bloomGate) reopen(epoch uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != epoch {
		return false
	}
	g.open = true
	return true
}

func (s *service) mustExists(ctx context.Context, id string) error {
	if !s.bloomGate.isOpen() {
		return nil
	}
	exists, err := s.bloomRepo.Exists(ctx, id)
	switch {
	case errors.Is(err, domain.ErrBloomNotReady):
		s.bloomGate.close()
		logrus.Warn("bloom filter contents lost, lookups go to the store until it is re-warmed")
		return nil
	case err != nil:
		logrus.Warnf("bloom filter lookup failed for comment %s: %v", id, err)
		return nil
	case !exists:
		logrus.Debugf("bloom filter says comment %s does not exist", id)
		return domain.ErrNotFound
	}
	return nil
}

// addToBloom outlives the request: a cancelled caller must not leave a stored
// id out of the filter.
func (s *service) addToBloom(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= bloomAddAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, bloomAddTimeout)
		err = s.bloomRepo.Add(actx, id)
		cancel()
		if err == nil {
			return
		}
		if attempt < bloomAddAttempts {
			time.Sleep(time.Duration(attempt) * s.bloomBackoff)
		}
	}

	s.bloomGate.close()
	logrus.Errorf("failed to add comment %s to bloom filter, disabled until re-warmed: %v", id, err)
}

// InitBloomFilter rebuilds the filter from every stored id. It is a no-op
// while the filter is complete, so it can be called periodically.
func (s *service) InitBloomFilter(ctx context.Context) error {
	s.warmMu.Lock()
	defer s.warmMu.Unlock()

	if s.bloomGate.isOpen() {
		return nil
	}
	epoch := s.bloomGate.close()

	if err := s.bloomRepo.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset bloom filter: %w", err)
	}

	cursor := ""
	total := 0
	for {
		ids, err := s.commentRepo.FetchIDs(ctx, cursor, bloomWarmupBatch)
		if err != nil {
			return fmt.Errorf("failed to scan comment ids: %w", err)
		}
		if err := s.bloomRepo.BulkAdd(ctx, ids); err != nil {
			return fmt.Errorf("failed to fill bloom filter: %w", err)
		}
		total += len(ids)
		if len(ids) < bloomWarmupBatch {
			break
		}
		cursor = ids[len(ids)-1]
	}

	if err := s.bloomRepo.MarkReady(ctx); err != nil {
		return fmt.Errorf("failed to mark bloom filter ready: %w", err)
	}
	if !s.bloomGate.reopen(epoch) {
		return errBloomWarmupInterrupted
	}
	logrus.Infof("bloom filter warmed with %d comment ids", total)
	return nil
}
