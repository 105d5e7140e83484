package domain

import "context"

// CounterReconciler repairs replyCount / numberOfLikes drift in the background.
type CounterReconciler interface {
	Start(ctx context.Context)

	// Send schedules the comment for reconciliation. It never blocks.
	Send(commentID string)
}
