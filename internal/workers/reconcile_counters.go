package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/civicview/comment-service/domain"
)

const (
	reconcileBatchSize    = 100
	reconcileQueueSize    = 1024
	reconcileFlushTimeout = 5 * time.Second
)

type counterReconciler struct {
	CommentRepo domain.CommentRepository
	interval    time.Duration
	ch          chan string
}

var _ domain.CounterReconciler = (*counterReconciler)(nil)

func NewCounterReconciler(cr domain.CommentRepository, interval time.Duration) *counterReconciler {
	if interval <= 0 {
		interval = time.Second
	}
	return &counterReconciler{
		CommentRepo: cr,
		interval:    interval,
		ch:          make(chan string, reconcileQueueSize),
	}
}

// Send queues a comment whose replyCount or numberOfLikes may have drifted.
func (r *counterReconciler) Send(commentID string) {
	select {
	case r.ch <- commentID:
	default:
		logrus.Infof("CounterReconciler's channel is full, comment %s dropped", commentID)
	}
}

// Start blocks until ctx is done, flushing every batchSize ids or every tick.
func (r *counterReconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	batch := make([]string, 0, reconcileBatchSize)
	for {
		select {
		case id := <-r.ch:
			batch = append(batch, id)
			if len(batch) == reconcileBatchSize {
				r.flush(ctx, batch)
				batch = make([]string, 0, reconcileBatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(ctx, batch)
				batch = make([]string, 0, reconcileBatchSize)
			}
		case <-ctx.Done():
			logrus.Info("shutting down CounterReconciler, flushing remaining ids...")
			r.drain(batch)
			return
		}
	}
}

func (r *counterReconciler) drain(batch []string) {
	for {
		select {
		case id := <-r.ch:
			batch = append(batch, id)
		default:
			if len(batch) == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), reconcileFlushTimeout)
			defer cancel()
			r.flush(ctx, batch)
			return
		}
	}
}

func (r *counterReconciler) flush(ctx context.Context, batch []string) {
	seen := make(map[string]struct{}, len(batch))
	ids := make([]string, 0, len(batch))
	for _, id := range batch {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if err := r.CommentRepo.ReconcileCounters(ctx, ids); err != nil {
		logrus.Errorf("failed to reconcile counters of %d comments: %v", len(ids), err)
	}
}
