// Package queue implements C3: a FIFO over job ids with a pending list and
// an in-flight set, at-least-once delivery, and a visibility timeout.
package queue

import (
	"context"
	"time"
)

// Queue is the contract the Ingress (enqueue) and Executor (dequeue/ack/
// fail) depend on.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	// Dequeue blocks up to timeout for a job id. found is false on an empty
	// queue; that is not an error.
	Dequeue(ctx context.Context, timeout time.Duration) (jobID string, found bool, err error)
	Ack(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID string) error
	Depth(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}
