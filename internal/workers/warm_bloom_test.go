package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/civicview/comment-service/domain/mocks"
)

func TestBloomWarmerRetriesUntilStopped(t *testing.T) {
	uc := mocks.NewCommentUsecase(t)
	calls := make(chan struct{}, 1)
	uc.On("InitBloomFilter", mock.Anything).Return(errors.New("redis down")).Once()
	uc.On("InitBloomFilter", mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case calls <- struct{}{}:
			default:
			}
		}).
		Return(nil)

	w := NewBloomWarmer(uc, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("warmer did not retry after a failure")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("warmer did not stop")
	}
}
